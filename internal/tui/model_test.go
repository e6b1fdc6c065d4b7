package tui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rkapur/omniwork/internal/assistant"
	"github.com/rkapur/omniwork/internal/provider"
	"github.com/rkapur/omniwork/internal/workspace"
)

type fakeSession struct {
	authenticated bool
	profile       provider.Profile
	authErr       error
	logoutCalls   int
}

func (s *fakeSession) Authenticate(ctx context.Context) (provider.Profile, error) {
	if s.authErr != nil {
		return provider.Profile{}, s.authErr
	}
	s.authenticated = true
	return s.profile, nil
}

func (s *fakeSession) Authenticated() bool       { return s.authenticated }
func (s *fakeSession) Profile() provider.Profile { return s.profile }
func (s *fakeSession) Logout()                   { s.authenticated = false; s.logoutCalls++ }

type fakeMail struct {
	messages []provider.Message
	events   []provider.Event
	mailErr  error
	calErr   error
}

func (f *fakeMail) ListUnreadMessages(ctx context.Context, limit int) ([]provider.Message, error) {
	if f.mailErr != nil {
		return []provider.Message{}, f.mailErr
	}
	return f.messages, nil
}

func (f *fakeMail) ListUpcomingEvents(ctx context.Context, start, end time.Time) ([]provider.Event, error) {
	if f.calErr != nil {
		return []provider.Event{}, f.calErr
	}
	return f.events, nil
}

type fakeAssistant struct {
	reply        assistant.ChatReply
	finalization assistant.NoteFinalization
}

func (f *fakeAssistant) Chat(ctx context.Context, query, digest string) assistant.ChatReply {
	return f.reply
}

func (f *fakeAssistant) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return "", nil
}

func (f *fakeAssistant) FinalizeNote(ctx context.Context, content string, folders []workspace.Folder) assistant.NoteFinalization {
	return f.finalization
}

func (f *fakeAssistant) SynthesizeSpeech(ctx context.Context, text string) []byte { return nil }
func (f *fakeAssistant) Name() string                                             { return "fake" }

func newTestModel(t *testing.T, accounts []Account, client assistant.Client) *model {
	t.Helper()
	m := New(Config{
		StatePath: filepath.Join(t.TempDir(), "omniwork.json"),
		Assistant: client,
		Accounts:  accounts,
	}).(*model)
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTabNavigation(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil, nil)
	if m.activeTab != tabDashboard {
		t.Fatalf("expected dashboard first, got %v", m.activeTab)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.activeTab != tabNotes {
		t.Fatalf("expected notes after tab, got %v", m.activeTab)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.activeTab != tabDashboard {
		t.Fatalf("expected dashboard after shift+tab, got %v", m.activeTab)
	}

	m.Update(keyRunes("4"))
	if m.activeTab != tabWork {
		t.Fatalf("expected digit to jump to work, got %v", m.activeTab)
	}
}

func TestConnectWithoutClientIDRoutesToSettings(t *testing.T) {
	t.Parallel()

	session := &fakeSession{}
	m := newTestModel(t, []Account{{
		Kind:    provider.KindMicrosoft,
		Label:   "Microsoft",
		Session: session,
		Mail:    &fakeMail{},
	}}, nil)
	m.activeTab = tabWork

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatalf("missing client ID must not start any network job")
	}
	if !m.settingsOpen {
		t.Fatalf("expected settings modal to open")
	}
	if session.authenticated {
		t.Fatalf("no sign-in may happen without a client ID")
	}
}

func TestAuthMissingConfigurationOpensSettings(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, []Account{{
		Kind: provider.KindGoogle, Label: "Google", Session: &fakeSession{}, Mail: &fakeMail{},
	}}, nil)

	m.Update(authResultMsg{kind: provider.KindGoogle, generation: m.fetchGen, err: provider.ErrMissingConfiguration})
	if !m.settingsOpen {
		t.Fatalf("expected settings to open on missing configuration")
	}
	if m.errorMessage != "" {
		t.Fatalf("missing config is guidance, not an error banner: %q", m.errorMessage)
	}
}

func TestStaleSyncResultIsDiscarded(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, []Account{{
		Kind: provider.KindGoogle, Label: "Google", Session: &fakeSession{authenticated: true}, Mail: &fakeMail{},
	}}, nil)

	stale := m.fetchGen
	m.fetchGen++ // a newer sync superseded it

	m.Update(syncResultMsg{
		kind:       provider.KindGoogle,
		generation: stale,
		messages:   []provider.Message{{ID: "ghost"}},
	})
	if len(m.messages[provider.KindGoogle]) != 0 {
		t.Fatalf("stale sync result must not land, got %+v", m.messages)
	}
}

func TestSyncResultDegradesPerLeg(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, []Account{{
		Kind: provider.KindGoogle, Label: "Google", Session: &fakeSession{authenticated: true}, Mail: &fakeMail{},
	}}, nil)

	m.Update(syncResultMsg{
		kind:        provider.KindGoogle,
		generation:  m.fetchGen,
		messages:    []provider.Message{},
		events:      []provider.Event{{ID: "e1", Summary: "standup"}},
		mailErr:     context.DeadlineExceeded,
		calendarErr: nil,
	})

	if len(m.events[provider.KindGoogle]) != 1 {
		t.Fatalf("calendar leg succeeded and must land, got %+v", m.events)
	}
	status := m.syncState[provider.KindGoogle]
	if status == nil || status.MailErr == "" || status.CalendarErr != "" {
		t.Fatalf("expected mail failure flagged and calendar clean, got %+v", status)
	}
	if m.errorMessage == "" {
		t.Fatalf("partial failure must be surfaced to the user")
	}
}

func TestLogoutClearsSnapshotsAndGuardsStragglers(t *testing.T) {
	t.Parallel()

	session := &fakeSession{authenticated: true}
	m := newTestModel(t, []Account{{
		Kind: provider.KindGoogle, Label: "Google", Session: session, Mail: &fakeMail{},
	}}, nil)
	m.activeTab = tabWork
	m.messages[provider.KindGoogle] = []provider.Message{{ID: "m1"}}
	inFlight := m.fetchGen

	m.Update(keyRunes("x"))
	if session.logoutCalls != 1 {
		t.Fatalf("expected session logout, got %d calls", session.logoutCalls)
	}
	if len(m.messages[provider.KindGoogle]) != 0 {
		t.Fatalf("logout must clear provider snapshots")
	}

	// A result from before the logout must not resurrect the data.
	m.Update(syncResultMsg{kind: provider.KindGoogle, generation: inFlight,
		messages: []provider.Message{{ID: "ghost"}}})
	if len(m.messages[provider.KindGoogle]) != 0 {
		t.Fatalf("straggler sync result must be ignored after logout")
	}
}

func TestChatSuggestionCreatesExactlyOneTask(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil, &fakeAssistant{})
	m.chatInFlight = true
	m.chatSeq = 1

	m.Update(chatResultMsg{seq: 1, reply: assistant.ChatReply{
		Reply:          "Done, I added it.",
		TaskSuggestion: "Email the vendor",
	}})

	if len(m.todos) != 1 {
		t.Fatalf("expected exactly one task, got %d", len(m.todos))
	}
	if m.todos[0].Task != "Email the vendor" {
		t.Fatalf("unexpected task: %+v", m.todos[0])
	}
	if m.todos[0].Priority != workspace.PriorityNone {
		t.Fatalf("suggested tasks carry default priority, got %q", m.todos[0].Priority)
	}
	if m.chatInFlight {
		t.Fatalf("reply must clear the in-flight flag")
	}
}

func TestDuplicateChatSubmissionIsIgnored(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil, &fakeAssistant{})
	m.activeTab = tabAssistant
	m.chatInput.Focus()

	m.chatInput.SetValue("first question")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected chat job to start")
	}
	seq := m.chatSeq

	m.chatInput.SetValue("second question")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.chatSeq != seq {
		t.Fatalf("in-flight chat must swallow the duplicate submission")
	}
	userTurns := 0
	for _, turn := range m.conversation {
		if turn.Role == roleUser {
			userTurns++
		}
	}
	if userTurns != 1 {
		t.Fatalf("expected one pending question, got %d", userTurns)
	}
}

func TestStaleChatReplyIsDiscarded(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil, &fakeAssistant{})
	m.chatSeq = 5
	m.chatInFlight = true

	m.Update(chatResultMsg{seq: 4, reply: assistant.ChatReply{Reply: "old news"}})
	if len(m.conversation) != 0 {
		t.Fatalf("stale chat reply must be dropped, got %+v", m.conversation)
	}
	if !m.chatInFlight {
		t.Fatalf("stale reply must not clear the newer in-flight request")
	}
}

func TestFinalizeResultSavesNoteAndLandsOnNotesTab(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil, &fakeAssistant{})
	m.activeTab = tabDashboard
	m.composing = true
	m.finalizing = true

	m.Update(finalizeResultMsg{
		generation: m.composerGen,
		content:    "Met with the design team\nfollow up next week",
		kind:       workspace.NoteText,
		result:     assistant.NoteFinalization{Summary: "- design sync", FolderID: "work"},
	})

	if len(m.notes) != 1 {
		t.Fatalf("expected one saved note, got %d", len(m.notes))
	}
	note := m.notes[0]
	if note.Title != "Met with the design team" || note.FolderID != "work" || note.Summary != "- design sync" {
		t.Fatalf("unexpected note: %+v", note)
	}
	if m.composing {
		t.Fatalf("composer must close after save")
	}
	if m.activeTab != tabNotes {
		t.Fatalf("saving must land on the notes tab, got %v", m.activeTab)
	}
}

func TestFinalizeResultUpdatesExistingNoteInPlace(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil, &fakeAssistant{})
	existing := workspace.NewNote("original", "", "general", workspace.NoteText)
	m.notes = []workspace.Note{existing}
	m.composing = true

	m.Update(finalizeResultMsg{
		generation: m.composerGen,
		content:    "revised content",
		kind:       workspace.NoteText,
		noteID:     existing.ID,
		result:     assistant.NoteFinalization{FolderID: "general"},
	})

	if len(m.notes) != 1 {
		t.Fatalf("editing must not duplicate the note, got %d", len(m.notes))
	}
	if m.notes[0].Content != "revised content" || m.notes[0].ID != existing.ID {
		t.Fatalf("expected in-place update, got %+v", m.notes[0])
	}
}

func TestCancelledComposerDiscardsLateFinalizeResult(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil, &fakeAssistant{})
	m.composing = true
	m.composer.SetValue("draft")
	pending := m.composerGen

	m.Update(tea.KeyMsg{Type: tea.KeyEsc}) // discard bumps the generation
	m.Update(finalizeResultMsg{
		generation: pending,
		content:    "draft",
		kind:       workspace.NoteText,
		result:     assistant.NoteFinalization{FolderID: "general"},
	})

	if len(m.notes) != 0 {
		t.Fatalf("late result for a cancelled composer must not create a note")
	}
}

func TestQuickAddCreatesTask(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil, nil)
	m.activeTab = tabTasks

	m.Update(keyRunes("a"))
	if !m.quickAdd.Focused() {
		t.Fatalf("expected quick-add input to take focus")
	}
	m.quickAdd.SetValue("  water the plants  ")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if len(m.todos) != 1 || m.todos[0].Task != "water the plants" {
		t.Fatalf("unexpected todos: %+v", m.todos)
	}
	if m.quickAdd.Focused() {
		t.Fatalf("submit must blur the quick-add input")
	}
}

func TestNextEventPicksEarliestUpcoming(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, []Account{{
		Kind: provider.KindGoogle, Label: "Google", Session: &fakeSession{}, Mail: &fakeMail{},
	}}, nil)

	now := time.Now()
	// Deliberately out of order: provider ordering is not trusted.
	m.events[provider.KindGoogle] = []provider.Event{
		{ID: "later", Summary: "later", Start: now.Add(3 * time.Hour)},
		{ID: "past", Summary: "past", Start: now.Add(-time.Hour)},
		{ID: "soon", Summary: "soon", Start: now.Add(30 * time.Minute)},
	}

	event, ok := m.nextEvent(now)
	if !ok || event.ID != "soon" {
		t.Fatalf("expected earliest upcoming event, got %+v (ok=%v)", event, ok)
	}
}

func TestSettingsSaveValidatesAndAppliesClientID(t *testing.T) {
	t.Parallel()

	var applied string
	m := newTestModel(t, []Account{{
		Kind:        provider.KindGoogle,
		Label:       "Google",
		Session:     &fakeSession{},
		Mail:        &fakeMail{},
		SetClientID: func(id string) { applied = id },
	}}, nil)
	m.settingsOpen = true
	m.focusSettings(provider.KindGoogle)

	m.settingsInput.SetValue("short")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.settingsOpen {
		t.Fatalf("invalid client ID must keep the modal open")
	}
	if m.errorMessage == "" {
		t.Fatalf("invalid client ID must be called out")
	}

	m.settingsInput.SetValue("1234567890-abc.apps.example")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.settingsOpen {
		t.Fatalf("valid client ID must close the modal")
	}
	if applied != "1234567890-abc.apps.example" {
		t.Fatalf("expected client ID pushed to the flow, got %q", applied)
	}
	if m.clientIDs["google"] != "1234567890-abc.apps.example" {
		t.Fatalf("expected client ID recorded for persistence")
	}
}

func TestThemeCyclesAndRebuildsStyles(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil, nil)
	before := m.theme.Name

	_, cmd := m.Update(keyRunes("t"))
	if m.theme.Name == before {
		t.Fatalf("expected theme change, still %q", m.theme.Name)
	}
	if cmd == nil {
		t.Fatalf("theme change must persist")
	}
}

func TestChatWithoutAssistantExplainsItself(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, nil, nil)
	m.activeTab = tabAssistant
	m.chatInput.Focus()
	m.chatInput.SetValue("hello")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatalf("disabled assistant must not start a job")
	}
	if m.errorMessage == "" {
		t.Fatalf("expected guidance about enabling the assistant")
	}
}
