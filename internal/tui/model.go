package tui

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/rkapur/omniwork/internal/assistant"
	"github.com/rkapur/omniwork/internal/audio"
	"github.com/rkapur/omniwork/internal/digest"
	"github.com/rkapur/omniwork/internal/provider"
	"github.com/rkapur/omniwork/internal/store"
	"github.com/rkapur/omniwork/internal/workspace"
)

// Config wires runtime options into the shell.
type Config struct {
	StatePath string
	Assistant assistant.Client
	Accounts  []Account
	Recorder  *audio.Recorder
	Logger    *logrus.Logger
}

// New loads the persisted snapshot and returns a tea.Model ready to mount.
func New(config Config) tea.Model {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	composer := textarea.New()
	composer.Placeholder = composerPlaceholder
	composer.CharLimit = 4000

	quickAdd := textinput.New()
	quickAdd.Placeholder = quickAddPlaceholder
	quickAdd.CharLimit = 200
	quickAdd.Width = 50

	chatInput := textinput.New()
	chatInput.Placeholder = chatPlaceholder
	chatInput.CharLimit = 400
	chatInput.Width = 60

	settingsInput := textinput.New()
	settingsInput.Placeholder = settingsPlaceholder
	settingsInput.CharLimit = 80
	settingsInput.Width = 44

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	snapshot := store.Load(config.StatePath)
	theme := themeByName(snapshot.Theme)

	m := &model{
		config:        config,
		jobs:          newJobBus(config.Logger),
		digest:        digest.NewBuilder(nil),
		notes:         snapshot.Notes,
		todos:         snapshot.Todos,
		folders:       snapshot.Folders,
		clientIDs:     snapshot.ClientIDs,
		theme:         theme,
		styles:        newStyles(theme),
		messages:      map[provider.Kind][]provider.Message{},
		events:        map[provider.Kind][]provider.Event{},
		syncState:     map[provider.Kind]*syncStatus{},
		composer:      composer,
		quickAdd:      quickAdd,
		chatInput:     chatInput,
		settingsInput: settingsInput,
		spinner:       spin,
		infoMessage:   "Press Tab to move between views, ? for keys.",
	}
	for index, account := range config.Accounts {
		if account.SetClientID != nil {
			account.SetClientID(m.clientIDs[string(account.Kind)])
		}
		config.Accounts[index] = account
	}
	return m
}

type model struct {
	config Config
	jobs   *jobBus
	digest *digest.Builder

	// Aggregate-owned collections; this model is the sole writer to the
	// persistence snapshot.
	notes     []workspace.Note
	todos     []workspace.Todo
	folders   []workspace.Folder
	clientIDs map[string]string

	// Transient provider snapshots, replaced wholesale per sync.
	messages  map[provider.Kind][]provider.Message
	events    map[provider.Kind][]provider.Event
	syncState map[provider.Kind]*syncStatus
	syncing   bool
	workIdx   int

	// fetchGen guards stale async results: it advances whenever a newer
	// sync supersedes an in-flight one or the session is torn down.
	fetchGen int

	conversation  []chatTurn
	chatInput     textinput.Model
	chatInFlight  bool
	chatSeq       int
	suggestionIdx int

	composing     bool
	composer      textarea.Model
	composerGen   int
	composerVoice bool
	editingNoteID string
	transcribing  bool
	finalizing    bool
	noteCursor    int

	quickAdd   textinput.Model
	todoCursor int

	settingsOpen  bool
	settingsIdx   int
	settingsInput textinput.Model

	activeTab tab
	theme     Theme
	styles    styles
	spinner   spinner.Model
	width     int
	height    int

	infoMessage  string
	errorMessage string
	helpVisible  bool
}

type authResultMsg struct {
	kind       provider.Kind
	generation int
	profile    provider.Profile
	err        error
}

type syncResultMsg struct {
	kind        provider.Kind
	generation  int
	messages    []provider.Message
	events      []provider.Event
	mailErr     error
	calendarErr error
}

type chatResultMsg struct {
	seq   int
	reply assistant.ChatReply
}

type transcribeResultMsg struct {
	generation int
	text       string
	err        error
}

type finalizeResultMsg struct {
	generation int
	content    string
	kind       workspace.NoteKind
	noteID     string
	result     assistant.NoteFinalization
}

type saveResultMsg struct {
	err error
}

type speechResultMsg struct {
	played bool
	err    error
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) busy() bool {
	return m.syncing || m.chatInFlight || m.transcribing || m.finalizing
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.composer.SetWidth(m.contentWidth())
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case jobSignalMsg:
		return m, nil
	case jobResultEnvelope:
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case authResultMsg:
		return m.handleAuthResult(msg)
	case syncResultMsg:
		return m.handleSyncResult(msg)
	case chatResultMsg:
		return m.handleChatResult(msg)
	case transcribeResultMsg:
		return m.handleTranscribeResult(msg)
	case finalizeResultMsg:
		return m.handleFinalizeResult(msg)
	case saveResultMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("saving state failed: %v", msg.err)
		}
		return m, nil
	case speechResultMsg:
		if msg.err != nil {
			m.infoMessage = "Voice playback unavailable."
		}
		return m, nil
	}
	return m, nil
}

func (m *model) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	if msg.generation != m.fetchGen {
		return m, nil
	}
	m.syncing = false
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, provider.ErrMissingConfiguration):
			m.settingsOpen = true
			m.focusSettings(msg.kind)
			m.errorMessage = ""
			m.infoMessage = fmt.Sprintf("Add your %s client ID to connect.", kindLabel(msg.kind))
		case errors.Is(msg.err, provider.ErrConsentRequired):
			m.errorMessage = fmt.Sprintf("%s requires an administrator to approve OmniWork before you can sign in.", kindLabel(msg.kind))
			m.infoMessage = "Ask your admin to grant consent, then try again."
		case errors.Is(msg.err, provider.ErrAuthDismissed):
			m.errorMessage = "Sign-in was cancelled."
			m.infoMessage = "Press Enter to retry."
		default:
			m.errorMessage = fmt.Sprintf("sign-in failed: %v", msg.err)
			m.infoMessage = "Press Enter to retry."
		}
		return m, nil
	}
	m.errorMessage = ""
	label := msg.profile.Email
	if label == "" {
		label = kindLabel(msg.kind)
	}
	m.infoMessage = fmt.Sprintf("Signed in as %s. Syncing…", label)
	return m, m.startSync(msg.kind)
}

func (m *model) handleSyncResult(msg syncResultMsg) (tea.Model, tea.Cmd) {
	if msg.generation != m.fetchGen {
		// A newer sync or a logout superseded this fetch.
		return m, nil
	}
	m.syncing = false

	// Snapshot overwrite, keyed by provider: no merging across fetches.
	m.messages[msg.kind] = msg.messages
	m.events[msg.kind] = msg.events

	status := &syncStatus{Synced: true, SyncedAt: time.Now()}
	if msg.mailErr != nil {
		status.MailErr = msg.mailErr.Error()
	}
	if msg.calendarErr != nil {
		status.CalendarErr = msg.calendarErr.Error()
	}
	m.syncState[msg.kind] = status

	switch {
	case msg.mailErr != nil && msg.calendarErr != nil:
		m.errorMessage = fmt.Sprintf("%s sync failed. Press r to retry.", kindLabel(msg.kind))
	case msg.mailErr != nil:
		m.errorMessage = fmt.Sprintf("%s mail fetch failed; calendar is current.", kindLabel(msg.kind))
	case msg.calendarErr != nil:
		m.errorMessage = fmt.Sprintf("%s calendar fetch failed; mail is current.", kindLabel(msg.kind))
	default:
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("%s synced: %d unread, %d events.",
			kindLabel(msg.kind), len(msg.messages), len(msg.events))
	}
	return m, nil
}

func (m *model) handleChatResult(msg chatResultMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.chatSeq {
		return m, nil
	}
	m.chatInFlight = false
	m.conversation = append(m.conversation, chatTurn{
		Role:   roleAssistant,
		Text:   msg.reply.Reply,
		SentAt: time.Now(),
	})

	var cmds []tea.Cmd
	if msg.reply.TaskSuggestion != "" {
		// Exactly one task per suggestion, default priority.
		todo := workspace.NewTodo(msg.reply.TaskSuggestion)
		m.todos = workspace.PrependTodo(m.todos, todo)
		m.infoMessage = fmt.Sprintf("Added task: %s", todo.Task)
		cmds = append(cmds, m.persistCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m *model) handleTranscribeResult(msg transcribeResultMsg) (tea.Model, tea.Cmd) {
	if msg.generation != m.composerGen || !m.composing {
		return m, nil
	}
	m.transcribing = false
	if msg.err != nil {
		m.errorMessage = "Transcription failed; your typed text is untouched."
		return m, nil
	}
	if msg.text == "" {
		m.infoMessage = "No speech detected."
		return m, nil
	}
	current := m.composer.Value()
	if current != "" {
		current += "\n"
	}
	m.composer.SetValue(current + msg.text)
	m.composerVoice = true
	m.infoMessage = "Transcription added."
	return m, nil
}

func (m *model) handleFinalizeResult(msg finalizeResultMsg) (tea.Model, tea.Cmd) {
	if msg.generation != m.composerGen {
		return m, nil
	}
	m.finalizing = false

	var note workspace.Note
	if msg.noteID != "" {
		for _, existing := range m.notes {
			if existing.ID == msg.noteID {
				note = existing
				break
			}
		}
	}
	if note.ID == "" {
		note = workspace.NewNote(msg.content, msg.result.Summary, msg.result.FolderID, msg.kind)
	} else {
		note.Content = msg.content
		note.Title = workspace.DeriveTitle(msg.content)
		note.Summary = msg.result.Summary
		note.FolderID = msg.result.FolderID
		note.Kind = msg.kind
		note.Timestamp = time.Now().UnixMilli()
	}
	m.notes = workspace.UpsertNote(m.notes, note)
	m.closeComposer()
	// Saving always lands back on the notes list.
	m.activeTab = tabNotes
	m.noteCursor = 0
	folder := workspace.FolderByID(m.folders, note.FolderID)
	m.infoMessage = fmt.Sprintf("Saved %q to %s.", note.Title, folder.Name)
	return m, m.persistCmd()
}

// startConnect either routes to settings (no client ID, no network call) or
// kicks off the interactive sign-in.
func (m *model) startConnect(account Account) tea.Cmd {
	if m.clientIDs[string(account.Kind)] == "" {
		m.settingsOpen = true
		m.focusSettings(account.Kind)
		m.infoMessage = fmt.Sprintf("Add your %s client ID to connect.", account.Label)
		return nil
	}
	m.syncing = true
	m.infoMessage = fmt.Sprintf("Opening browser to sign in to %s…", account.Label)
	return tea.Batch(
		m.jobs.Start(jobKindSync, authenticateJob(account, m.fetchGen)),
		m.spinner.Tick,
	)
}

func (m *model) startSync(kind provider.Kind) tea.Cmd {
	account, ok := m.accountFor(kind)
	if !ok {
		return nil
	}
	// Supersede any in-flight fetch; last writer wins by initiation order.
	m.fetchGen++
	m.syncing = true
	return tea.Batch(
		m.jobs.Start(jobKindSync, syncJob(account, m.fetchGen)),
		m.spinner.Tick,
	)
}

func (m *model) sendChat() tea.Cmd {
	if m.config.Assistant == nil {
		m.errorMessage = "Assistant is disabled; set GEMINI_API_KEY to enable it."
		return nil
	}
	if m.chatInFlight {
		// One question at a time; duplicate submission is ignored.
		return nil
	}
	query := trimmed(m.chatInput.Value())
	if query == "" {
		return nil
	}
	m.chatInput.SetValue("")
	m.conversation = append(m.conversation, chatTurn{Role: roleUser, Text: query, SentAt: time.Now()})
	m.chatInFlight = true
	m.chatSeq++
	digestText := m.digest.Build(m.notes, m.mergedMessages(), m.sortedEvents(), m.todos)
	return tea.Batch(
		m.jobs.Start(jobKindChat, chatJob(m.config.Assistant, m.chatSeq, query, digestText)),
		m.spinner.Tick,
	)
}

func (m *model) persistCmd() tea.Cmd {
	snapshot := store.Snapshot{
		Theme:     m.theme.Name,
		Notes:     append([]workspace.Note(nil), m.notes...),
		Todos:     append([]workspace.Todo(nil), m.todos...),
		Folders:   append([]workspace.Folder(nil), m.folders...),
		ClientIDs: copyStringMap(m.clientIDs),
	}
	return m.jobs.Start(jobKindSave, saveSnapshotJob(m.config.StatePath, snapshot))
}

func (m *model) accountFor(kind provider.Kind) (Account, bool) {
	for _, account := range m.config.Accounts {
		if account.Kind == kind {
			return account, true
		}
	}
	return Account{}, false
}

func (m *model) currentAccount() (Account, bool) {
	if len(m.config.Accounts) == 0 {
		return Account{}, false
	}
	if m.workIdx >= len(m.config.Accounts) {
		m.workIdx = 0
	}
	return m.config.Accounts[m.workIdx], true
}

func (m *model) focusSettings(kind provider.Kind) {
	for index, account := range m.config.Accounts {
		if account.Kind == kind {
			m.settingsIdx = index
			break
		}
	}
	m.settingsInput.SetValue(m.clientIDs[string(kind)])
	m.settingsInput.Focus()
}

func (m *model) closeComposer() {
	if m.config.Recorder != nil {
		// Always release the microphone on teardown.
		m.config.Recorder.Cancel()
	}
	m.composing = false
	m.composerVoice = false
	m.transcribing = false
	m.finalizing = false
	m.editingNoteID = ""
	m.composer.SetValue("")
	m.composer.Blur()
	m.composerGen++
}

func (m *model) mergedMessages() []provider.Message {
	var merged []provider.Message
	for _, account := range m.config.Accounts {
		merged = append(merged, m.messages[account.Kind]...)
	}
	return merged
}

// sortedEvents merges provider snapshots and orders them by start time;
// provider ordering is never trusted for display.
func (m *model) sortedEvents() []provider.Event {
	var merged []provider.Event
	for _, account := range m.config.Accounts {
		merged = append(merged, m.events[account.Kind]...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start.Before(merged[j].Start)
	})
	return merged
}

// nextEvent picks the first upcoming event after now from the sorted merge.
func (m *model) nextEvent(now time.Time) (provider.Event, bool) {
	for _, event := range m.sortedEvents() {
		if event.Start.After(now) {
			return event, true
		}
	}
	return provider.Event{}, false
}

func (m *model) contentWidth() int {
	width := m.width - contentHorizontalPadding
	if width < minContentWidth {
		width = minContentWidth
	}
	return width
}

func kindLabel(kind provider.Kind) string {
	switch kind {
	case provider.KindGoogle:
		return "Google"
	case provider.KindMicrosoft:
		return "Microsoft"
	default:
		return string(kind)
	}
}

func copyStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
