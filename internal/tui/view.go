package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/rkapur/omniwork/internal/audio"
	"github.com/rkapur/omniwork/internal/workspace"
)

func (m *model) View() string {
	var body string
	switch {
	case m.settingsOpen:
		body = m.viewSettings()
	case m.composing:
		body = m.viewComposer()
	default:
		switch m.activeTab {
		case tabDashboard:
			body = m.viewDashboard()
		case tabNotes:
			body = m.viewNotes()
		case tabTasks:
			body = m.viewTasks()
		case tabWork:
			body = m.viewWork()
		case tabAssistant:
			body = m.viewAssistant()
		}
	}

	parts := []string{m.headerView(), body}
	if m.helpVisible {
		parts = append(parts, m.helpView())
	}
	parts = append(parts, m.statusView())
	return joinNonEmpty(parts)
}

func (m *model) headerView() string {
	title := m.styles.sectionHeader.Render("OmniWork")
	tagline := m.styles.tagline.Render(heroTagline)

	var tabs []string
	for _, t := range tabSequence {
		label := fmt.Sprintf("%d %s", int(t)+1, t.title())
		if t == m.activeTab {
			tabs = append(tabs, m.styles.tabActive.Render(label))
		} else {
			tabs = append(tabs, m.styles.tabInactive.Render(label))
		}
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return joinNonEmpty([]string{
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", tagline),
		tabBar,
	})
}

func (m *model) statusView() string {
	var parts []string
	if m.errorMessage != "" {
		parts = append(parts, m.styles.errorText.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.busy() {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, m.styles.helper.Render(message))
	}
	parts = append(parts, m.styles.statusBar.Render(m.keyHintLine()))
	return joinNonEmpty(parts)
}

func (m *model) keyHintLine() string {
	common := "Tab: switch view • ?: keys • Ctrl+C: quit"
	switch {
	case m.settingsOpen:
		return "Enter: save • Tab: switch provider • Esc: close"
	case m.composing:
		return "Ctrl+S: save • Ctrl+R: dictate • Ctrl+P: pause • Esc: discard"
	}
	switch m.activeTab {
	case tabNotes:
		return "n: new • Enter: edit • d: delete • " + common
	case tabTasks:
		return "a: add • Enter: toggle • d: delete • " + common
	case tabWork:
		return "Enter: connect/sync • r: resync • x: sign out • o: settings • " + common
	case tabAssistant:
		return "Enter: send • Ctrl+O: read aloud • " + common
	default:
		return "t: theme • n: new note • " + common
	}
}

func (m *model) viewDashboard() string {
	now := time.Now()
	openTasks := 0
	for _, todo := range m.todos {
		if !todo.Completed {
			openTasks++
		}
	}
	unread := len(m.mergedMessages())

	counts := []string{
		fmt.Sprintf("%s notes", m.styles.currentLine.Render(fmt.Sprintf("%d", len(m.notes)))),
		fmt.Sprintf("%s open tasks", m.styles.currentLine.Render(fmt.Sprintf("%d", openTasks))),
		fmt.Sprintf("%s unread emails", m.styles.currentLine.Render(fmt.Sprintf("%d", unread))),
		fmt.Sprintf("%s upcoming events", m.styles.currentLine.Render(fmt.Sprintf("%d", len(m.sortedEvents())))),
	}

	var meeting string
	if event, ok := m.nextEvent(now); ok {
		meeting = fmt.Sprintf("Next meeting: %s at %s (%s)",
			event.Summary, event.Start.Format(time.Kitchen), event.Location)
	} else {
		meeting = "No upcoming meetings."
	}

	greeting := "Good evening."
	switch hour := now.Hour(); {
	case hour < 12:
		greeting = "Good morning."
	case hour < 18:
		greeting = "Good afternoon."
	}

	return joinNonEmpty([]string{
		m.styles.sectionHeader.Render(greeting),
		strings.Join(counts, m.styles.helper.Render("  •  ")),
		m.styles.panel.Render(meeting),
		m.styles.helper.Render(fmt.Sprintf("Theme: %s (press t to cycle)", m.theme.Name)),
	})
}

func (m *model) viewNotes() string {
	if len(m.notes) == 0 {
		return joinNonEmpty([]string{
			m.styles.sectionHeader.Render("Notes"),
			m.styles.helper.Render("No notes yet. Press n to write one."),
		})
	}

	var b strings.Builder
	b.WriteString(m.styles.sectionHeader.Render("Notes"))
	b.WriteRune('\n')
	for idx, note := range m.notes {
		folder := workspace.FolderByID(m.folders, note.FolderID)
		marker := "  "
		title := note.Title
		if idx == m.noteCursor {
			marker = "▸ "
			title = m.styles.currentLine.Render(title)
		}
		kind := ""
		if note.Kind == workspace.NoteVoice {
			kind = " ♪"
		}
		b.WriteString(fmt.Sprintf("%s%s%s  %s\n", marker, title, kind,
			m.styles.folderTag.Render("["+folder.Name+"]")))
		detail := note.Summary
		if detail == "" {
			detail = note.Content
		}
		b.WriteString(m.styles.helper.Render("    " + previewText(detail, 70)))
		b.WriteRune('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *model) viewTasks() string {
	parts := []string{m.styles.sectionHeader.Render("Tasks")}
	if m.quickAdd.Focused() {
		parts = append(parts, m.quickAdd.View())
	}
	if len(m.todos) == 0 {
		parts = append(parts, m.styles.helper.Render("Nothing here. Press a to add an objective."))
		return joinNonEmpty(parts)
	}

	var b strings.Builder
	for idx, todo := range m.todos {
		box := "[ ]"
		task := todo.Task
		if todo.Completed {
			box = "[x]"
			task = m.styles.helper.Render(task)
		}
		line := fmt.Sprintf("%s %s", box, task)
		if idx == m.todoCursor && !m.quickAdd.Focused() {
			line = "▸ " + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteRune('\n')
	}
	parts = append(parts, strings.TrimRight(b.String(), "\n"))
	return joinNonEmpty(parts)
}

func (m *model) viewWork() string {
	account, ok := m.currentAccount()
	if !ok {
		return m.styles.helper.Render("No workspace accounts are configured.")
	}

	header := m.styles.sectionHeader.Render("Work — " + account.Label)
	if len(m.config.Accounts) > 1 {
		header += m.styles.helper.Render("  (←/→ to switch)")
	}

	if !account.Session.Authenticated() {
		return joinNonEmpty([]string{
			header,
			m.styles.helper.Render("Not connected. Press Enter to sign in with your browser."),
		})
	}

	profile := account.Session.Profile()
	identity := profile.Email
	if profile.Name != "" {
		identity = fmt.Sprintf("%s <%s>", profile.Name, profile.Email)
	}
	parts := []string{header, m.styles.success.Render("Connected: " + identity)}

	status := m.syncState[account.Kind]
	parts = append(parts, m.renderMailSection(account.Kind, status))
	parts = append(parts, m.renderCalendarSection(account.Kind, status))
	return joinNonEmpty(parts)
}

func (m *model) viewAssistant() string {
	parts := []string{m.styles.sectionHeader.Render("Assistant")}
	if m.config.Assistant == nil {
		parts = append(parts, m.styles.helper.Render(
			"The assistant is disabled. Set GEMINI_API_KEY and restart to enable it."))
		return joinNonEmpty(parts)
	}

	if len(m.conversation) == 0 {
		parts = append(parts, m.styles.helper.Render("Ask about your notes, tasks, mail, or calendar. Try:"))
		var chips []string
		for idx, suggestion := range assistantSuggestions {
			marker := "  "
			text := suggestion
			if idx == m.suggestionIdx {
				marker = "▸ "
				text = m.styles.currentLine.Render(text)
			}
			chips = append(chips, marker+text)
		}
		parts = append(parts, strings.Join(chips, "\n"))
	} else {
		wrap := m.contentWidth()
		var b strings.Builder
		for idx, turn := range m.conversation {
			body := wordwrap.String(turn.Text, wrap)
			if turn.Role == roleUser {
				b.WriteString(m.styles.userTurn.Render("You"))
				b.WriteRune('\n')
				b.WriteString(indentMultiline(body, "  "))
			} else {
				b.WriteString(m.styles.assistantTurn.Render(body))
			}
			if idx < len(m.conversation)-1 {
				b.WriteString("\n\n")
			}
		}
		parts = append(parts, b.String())
	}

	if m.chatInFlight {
		parts = append(parts, m.styles.helper.Render(fmt.Sprintf("%s Thinking…", m.spinner.View())))
	}
	parts = append(parts, m.chatInput.View())
	return joinNonEmpty(parts)
}

func (m *model) viewComposer() string {
	title := "New Note"
	if m.editingNoteID != "" {
		title = "Edit Note"
	}
	parts := []string{m.styles.sectionHeader.Render(title), m.composer.View()}

	if m.config.Recorder != nil {
		switch m.config.Recorder.State() {
		case audio.StateRecording:
			parts = append(parts, m.styles.errorText.Render(
				fmt.Sprintf("● Recording %s", m.config.Recorder.Elapsed().Round(time.Second))))
		case audio.StatePaused:
			parts = append(parts, m.styles.helper.Render("‖ Recording paused"))
		}
	}
	if m.transcribing {
		parts = append(parts, m.styles.helper.Render(fmt.Sprintf("%s Transcribing…", m.spinner.View())))
	}
	if m.finalizing {
		parts = append(parts, m.styles.helper.Render(fmt.Sprintf("%s Summarizing and filing…", m.spinner.View())))
	}
	return joinNonEmpty(parts)
}

func (m *model) viewSettings() string {
	if m.settingsIdx >= len(m.config.Accounts) {
		return ""
	}
	account := m.config.Accounts[m.settingsIdx]
	lines := []string{
		m.styles.sectionHeader.Render("Settings — OAuth Client IDs"),
		m.styles.helper.Render(fmt.Sprintf(
			"Paste the OAuth client ID for your %s app registration.", account.Label)),
		m.styles.key.Render(account.Label) + " client ID:",
		m.settingsInput.View(),
	}
	return m.styles.panel.Render(strings.Join(lines, "\n"))
}

func (m *model) helpView() string {
	hints := [][2]string{
		{"Tab / Shift+Tab", "Cycle views"},
		{"1–5", "Jump to a view"},
		{"n", "New note"},
		{"Ctrl+R", "Dictate in the composer"},
		{"a", "Add a task"},
		{"Enter", "Connect, sync, toggle, or send"},
		{"t", "Cycle theme (dashboard)"},
		{"o", "Open settings (work)"},
		{"Ctrl+C", "Quit"},
	}
	rows := []string{m.styles.sectionHeader.Render("Keys")}
	for _, hint := range hints {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			m.styles.key.Render(fmt.Sprintf("%-18s", hint[0])),
			m.styles.keyDesc.Render(hint[1])))
	}
	return m.styles.panel.Render(strings.Join(rows, "\n"))
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func previewText(value string, limit int) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
