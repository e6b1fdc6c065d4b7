package workspace

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NoteKind distinguishes typed notes from voice captures.
type NoteKind string

const (
	NoteText  NoteKind = "text"
	NoteVoice NoteKind = "voice"
)

// Priority is the optional four-level todo priority.
type Priority string

const (
	PriorityNone Priority = ""
	PriorityP1   Priority = "p1"
	PriorityP2   Priority = "p2"
	PriorityP3   Priority = "p3"
	PriorityP4   Priority = "p4"
)

// Note is a stored knowledge entry.
type Note struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Summary   string   `json:"summary,omitempty"`
	Timestamp int64    `json:"timestamp"`
	Kind      NoteKind `json:"kind"`
	FolderID  string   `json:"folderId"`
}

// Folder groups notes. At least the default set always exists.
type Folder struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Todo is a single task entry.
type Todo struct {
	ID        string   `json:"id"`
	Task      string   `json:"task"`
	Completed bool     `json:"completed"`
	CreatedAt int64    `json:"createdAt"`
	Priority  Priority `json:"priority,omitempty"`
	DueDate   string   `json:"dueDate,omitempty"`
}

// DefaultFolderID is the deterministic fallback when classification cannot
// pick from the candidate set.
const DefaultFolderID = "general"

// DefaultFolders returns the folder taxonomy seeded on first run.
func DefaultFolders() []Folder {
	return []Folder{
		{ID: DefaultFolderID, Name: "General", Color: "#6b7280"},
		{ID: "work", Name: "Work", Color: "#3b82f6"},
		{ID: "personal", Name: "Personal", Color: "#10b981"},
	}
}

// DeriveTitle produces a note title from the first non-empty content line,
// clipped to 50 runes.
func DeriveTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > 50 {
			return string(runes[:50])
		}
		return line
	}
	return "Untitled Note"
}

// NewNote builds a note with a fresh id and derived title.
func NewNote(content, summary, folderID string, kind NoteKind) Note {
	if folderID == "" {
		folderID = DefaultFolderID
	}
	return Note{
		ID:        uuid.NewString(),
		Title:     DeriveTitle(content),
		Content:   content,
		Summary:   summary,
		Timestamp: time.Now().UnixMilli(),
		Kind:      kind,
		FolderID:  folderID,
	}
}

// NewTodo builds a quick-add task with default priority.
func NewTodo(task string) Todo {
	return Todo{
		ID:        uuid.NewString(),
		Task:      strings.TrimSpace(task),
		CreatedAt: time.Now().UnixMilli(),
	}
}

// NewFolder builds a user-created folder.
func NewFolder(name, color string) Folder {
	return Folder{ID: uuid.NewString(), Name: strings.TrimSpace(name), Color: color}
}
