package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rkapur/omniwork/internal/audio"
	"github.com/rkapur/omniwork/internal/workspace"
)

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.helpVisible {
		m.helpVisible = false
		return m, nil
	}
	if m.settingsOpen {
		return m.handleSettingsKey(msg)
	}
	if m.composing {
		return m.handleComposerKey(msg)
	}

	switch msg.String() {
	case "tab":
		m.switchTab(1)
		return m, m.enterTabCmd()
	case "shift+tab":
		m.switchTab(-1)
		return m, m.enterTabCmd()
	case "?":
		m.helpVisible = true
		return m, nil
	}

	// Digits jump straight to a view unless an input owns the keyboard.
	if !m.inputFocused() {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "1", "2", "3", "4", "5":
			m.activeTab = tabSequence[int(msg.String()[0]-'1')]
			return m, m.enterTabCmd()
		}
	}

	switch m.activeTab {
	case tabDashboard:
		return m.handleDashboardKey(msg)
	case tabNotes:
		return m.handleNotesKey(msg)
	case tabTasks:
		return m.handleTasksKey(msg)
	case tabWork:
		return m.handleWorkKey(msg)
	case tabAssistant:
		return m.handleAssistantKey(msg)
	}
	return m, nil
}

func (m *model) inputFocused() bool {
	return m.quickAdd.Focused() || m.chatInput.Focused()
}

func (m *model) switchTab(delta int) {
	index := int(m.activeTab) + delta
	if index < 0 {
		index = len(tabSequence) - 1
	}
	if index >= len(tabSequence) {
		index = 0
	}
	m.activeTab = tabSequence[index]
}

// enterTabCmd runs per-tab focus bookkeeping after navigation.
func (m *model) enterTabCmd() tea.Cmd {
	m.quickAdd.Blur()
	m.chatInput.Blur()
	if m.activeTab == tabAssistant {
		m.chatInput.Focus()
		return textinput.Blink
	}
	return nil
}

func (m *model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "t":
		m.theme = nextTheme(m.theme)
		m.styles = newStyles(m.theme)
		m.infoMessage = fmt.Sprintf("Theme: %s", m.theme.Name)
		return m, m.persistCmd()
	case "n":
		return m.openComposer("")
	}
	return m, nil
}

func (m *model) handleNotesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "n":
		return m.openComposer("")
	case "up", "k":
		if m.noteCursor > 0 {
			m.noteCursor--
		}
	case "down", "j":
		if m.noteCursor < len(m.notes)-1 {
			m.noteCursor++
		}
	case "enter":
		if m.noteCursor < len(m.notes) {
			return m.openComposer(m.notes[m.noteCursor].ID)
		}
	case "d":
		if m.noteCursor < len(m.notes) {
			removed := m.notes[m.noteCursor]
			m.notes = workspace.RemoveNote(m.notes, removed.ID)
			if m.noteCursor >= len(m.notes) && m.noteCursor > 0 {
				m.noteCursor--
			}
			m.infoMessage = fmt.Sprintf("Deleted %q.", removed.Title)
			return m, m.persistCmd()
		}
	}
	return m, nil
}

func (m *model) handleTasksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.quickAdd.Focused() {
		switch msg.String() {
		case "esc":
			m.quickAdd.Blur()
			m.quickAdd.SetValue("")
			return m, nil
		case "enter":
			task := trimmed(m.quickAdd.Value())
			m.quickAdd.SetValue("")
			m.quickAdd.Blur()
			if task == "" {
				return m, nil
			}
			m.todos = workspace.PrependTodo(m.todos, workspace.NewTodo(task))
			m.todoCursor = 0
			return m, m.persistCmd()
		}
		var cmd tea.Cmd
		m.quickAdd, cmd = m.quickAdd.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "a":
		m.quickAdd.Focus()
		return m, textinput.Blink
	case "up", "k":
		if m.todoCursor > 0 {
			m.todoCursor--
		}
	case "down", "j":
		if m.todoCursor < len(m.todos)-1 {
			m.todoCursor++
		}
	case "enter", " ":
		if m.todoCursor < len(m.todos) {
			m.todos = workspace.ToggleTodo(m.todos, m.todos[m.todoCursor].ID)
			return m, m.persistCmd()
		}
	case "d":
		if m.todoCursor < len(m.todos) {
			m.todos = workspace.RemoveTodo(m.todos, m.todos[m.todoCursor].ID)
			if m.todoCursor >= len(m.todos) && m.todoCursor > 0 {
				m.todoCursor--
			}
			return m, m.persistCmd()
		}
	}
	return m, nil
}

func (m *model) handleWorkKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	account, ok := m.currentAccount()
	if !ok {
		return m, nil
	}
	switch msg.String() {
	case "left", "h", "right", "l":
		if len(m.config.Accounts) > 1 {
			m.workIdx = (m.workIdx + 1) % len(m.config.Accounts)
		}
	case "enter":
		if account.Session.Authenticated() {
			return m, m.startSync(account.Kind)
		}
		return m, m.startConnect(account)
	case "r":
		if account.Session.Authenticated() {
			return m, m.startSync(account.Kind)
		}
	case "x":
		if account.Session.Authenticated() {
			account.Session.Logout()
			delete(m.messages, account.Kind)
			delete(m.events, account.Kind)
			delete(m.syncState, account.Kind)
			// Results from the torn-down session must not resurrect data.
			m.fetchGen++
			m.infoMessage = fmt.Sprintf("Signed out of %s.", account.Label)
		}
	case "o":
		m.settingsOpen = true
		m.focusSettings(account.Kind)
	}
	return m, nil
}

func (m *model) handleAssistantKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if trimmed(m.chatInput.Value()) == "" && len(m.conversation) == 0 {
			// Empty box on a fresh conversation sends the highlighted chip.
			m.chatInput.SetValue(assistantSuggestions[m.suggestionIdx])
		}
		return m, m.sendChat()
	case "up":
		if trimmed(m.chatInput.Value()) == "" && m.suggestionIdx > 0 {
			m.suggestionIdx--
			return m, nil
		}
	case "down":
		if trimmed(m.chatInput.Value()) == "" && m.suggestionIdx < len(assistantSuggestions)-1 {
			m.suggestionIdx++
			return m, nil
		}
	case "ctrl+o":
		if m.config.Assistant != nil {
			if last, ok := lastAssistantTurn(m.conversation); ok {
				m.infoMessage = "Reading reply aloud…"
				return m, m.jobs.Start(jobKindSpeak, speakJob(m.config.Assistant, last.Text))
			}
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m *model) openComposer(noteID string) (tea.Model, tea.Cmd) {
	m.composing = true
	m.editingNoteID = noteID
	m.composerVoice = false
	m.composer.SetValue("")
	if noteID != "" {
		for _, note := range m.notes {
			if note.ID == noteID {
				m.composer.SetValue(note.Content)
				m.composerVoice = note.Kind == workspace.NoteVoice
				break
			}
		}
	}
	m.composer.SetWidth(m.contentWidth())
	m.composer.Focus()
	return m, textinput.Blink
}

func (m *model) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeComposer()
		m.infoMessage = "Discarded."
		return m, nil
	case "ctrl+s":
		return m, m.saveComposer()
	case "ctrl+r":
		return m, m.toggleRecording()
	case "ctrl+p":
		return m, m.togglePause()
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m *model) saveComposer() tea.Cmd {
	if m.finalizing {
		return nil
	}
	content := trimmed(m.composer.Value())
	if content == "" {
		m.infoMessage = "Nothing to save."
		return nil
	}
	kind := workspace.NoteText
	if m.composerVoice {
		kind = workspace.NoteVoice
	}
	if m.config.Assistant == nil {
		// No assistant: file the note directly under the default folder.
		msg := finalizeResultMsg{
			generation: m.composerGen,
			content:    content,
			kind:       kind,
			noteID:     m.editingNoteID,
		}
		msg.result.FolderID = workspace.DefaultFolderID
		_, cmd := m.handleFinalizeResult(msg)
		return cmd
	}
	m.finalizing = true
	m.infoMessage = "Summarizing and filing…"
	return tea.Batch(
		m.jobs.Start(jobKindFinalize, finalizeNoteJob(
			m.config.Assistant, m.composerGen, content, kind, m.editingNoteID,
			append([]workspace.Folder(nil), m.folders...),
		)),
		m.spinner.Tick,
	)
}

func (m *model) toggleRecording() tea.Cmd {
	recorder := m.config.Recorder
	if recorder == nil {
		m.errorMessage = "Recording is unavailable on this system."
		return nil
	}
	switch recorder.State() {
	case audio.StateIdle:
		if err := recorder.Start(context.Background()); err != nil {
			if errors.Is(err, audio.ErrBusy) {
				m.errorMessage = "The microphone is already in use."
			} else {
				m.errorMessage = fmt.Sprintf("could not start recording: %v", err)
			}
			return nil
		}
		m.infoMessage = "Recording… Ctrl+R to stop, Ctrl+P to pause."
		return nil
	default:
		payload, mimeType, err := recorder.Stop()
		if err != nil {
			m.errorMessage = fmt.Sprintf("could not stop recording: %v", err)
			return nil
		}
		if m.config.Assistant == nil {
			m.errorMessage = "Assistant is disabled; dictation cannot be transcribed."
			return nil
		}
		m.transcribing = true
		m.infoMessage = "Transcribing…"
		return tea.Batch(
			m.jobs.Start(jobKindTranscribe, transcribeJob(m.config.Assistant, m.composerGen, payload, mimeType)),
			m.spinner.Tick,
		)
	}
}

func (m *model) togglePause() tea.Cmd {
	recorder := m.config.Recorder
	if recorder == nil {
		return nil
	}
	switch recorder.State() {
	case audio.StateRecording:
		if err := recorder.Pause(); err == nil {
			m.infoMessage = "Recording paused."
		}
	case audio.StatePaused:
		if err := recorder.Resume(); err == nil {
			m.infoMessage = "Recording resumed."
		}
	}
	return nil
}

func (m *model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.settingsOpen = false
		m.settingsInput.Blur()
		return m, nil
	case "tab", "shift+tab":
		if len(m.config.Accounts) > 1 {
			m.settingsIdx = (m.settingsIdx + 1) % len(m.config.Accounts)
			account := m.config.Accounts[m.settingsIdx]
			m.settingsInput.SetValue(m.clientIDs[string(account.Kind)])
		}
		return m, nil
	case "enter":
		return m, m.saveSettings()
	}
	var cmd tea.Cmd
	m.settingsInput, cmd = m.settingsInput.Update(msg)
	return m, cmd
}

func (m *model) saveSettings() tea.Cmd {
	if m.settingsIdx >= len(m.config.Accounts) {
		return nil
	}
	account := m.config.Accounts[m.settingsIdx]
	value := trimmed(m.settingsInput.Value())
	if value != "" && len(value) < minClientIDLength {
		m.errorMessage = fmt.Sprintf("That doesn't look like a valid %s client ID.", account.Label)
		return nil
	}
	m.errorMessage = ""
	m.clientIDs[string(account.Kind)] = value
	if account.SetClientID != nil {
		// Takes effect immediately; no restart needed.
		account.SetClientID(value)
	}
	m.settingsOpen = false
	m.settingsInput.Blur()
	if value == "" {
		m.infoMessage = fmt.Sprintf("Cleared the %s client ID.", account.Label)
	} else {
		m.infoMessage = fmt.Sprintf("Saved the %s client ID.", account.Label)
	}
	return m.persistCmd()
}

func lastAssistantTurn(turns []chatTurn) (chatTurn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == roleAssistant {
			return turns[i], true
		}
	}
	return chatTurn{}, false
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
