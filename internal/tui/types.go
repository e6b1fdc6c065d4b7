package tui

import "time"

type tab int

const (
	tabDashboard tab = iota
	tabNotes
	tabTasks
	tabWork
	tabAssistant
)

var tabSequence = []tab{tabDashboard, tabNotes, tabTasks, tabWork, tabAssistant}

func (t tab) title() string {
	switch t {
	case tabDashboard:
		return "Dashboard"
	case tabNotes:
		return "Notes"
	case tabTasks:
		return "Tasks"
	case tabWork:
		return "Work"
	case tabAssistant:
		return "Assistant"
	default:
		return ""
	}
}

const heroTagline = "Your notes, tasks, mail, and calendar in one place."

const (
	minContentWidth          = 40
	contentHorizontalPadding = 4
	unreadFetchLimit         = 10
	eventWindow              = 24 * time.Hour
)

type chatRole string

const (
	roleUser      chatRole = "user"
	roleAssistant chatRole = "assistant"
)

type chatTurn struct {
	Role   chatRole
	Text   string
	SentAt time.Time
}

var assistantSuggestions = []string{
	"What are my most important emails?",
	"Summarize my latest notes.",
}

// syncStatus keeps "call failed" distinct from "zero items" for one
// provider snapshot.
type syncStatus struct {
	MailErr     string
	CalendarErr string
	Synced      bool
	SyncedAt    time.Time
}

const (
	composerPlaceholder = "Type your note here, or Ctrl+R to dictate…"
	quickAddPlaceholder = "Add new objective…"
	chatPlaceholder     = "Type your question…"
	settingsPlaceholder = "00000000-0000-0000-0000-000000000000"
)

// Client IDs shorter than this are rejected by the settings form.
const minClientIDLength = 10
