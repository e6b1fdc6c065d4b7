// Package digest assembles the textual context blob sent with every chat
// call. The assistant holds no server-side session, so the digest is rebuilt
// from current state on each request, with per-section character budgets so
// a large workspace cannot blow up the prompt.
package digest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rkapur/omniwork/internal/provider"
	"github.com/rkapur/omniwork/internal/workspace"
)

// Section identifies one budgeted block of the digest.
type Section string

const (
	SectionNotes  Section = "notes"
	SectionEmails Section = "emails"
	SectionEvents Section = "events"
	SectionTasks  Section = "tasks"
)

const (
	maxNotesChars  = 1500
	maxEmailsChars = 1000
	maxEventsChars = 700
	maxTasksChars  = 700

	maxItemsPerSection = 5
)

var whitespaceSanity = regexp.MustCompile(`\s+`)

// SectionLimit reports the character budget for the given section.
func SectionLimit(section Section) int {
	switch section {
	case SectionNotes:
		return maxNotesChars
	case SectionEmails:
		return maxEmailsChars
	case SectionEvents:
		return maxEventsChars
	case SectionTasks:
		return maxTasksChars
	default:
		return maxNotesChars
	}
}

// Builder renders workspace and provider snapshots into the digest.
type Builder struct {
	budgets map[Section]int
}

// NewBuilder returns a Builder with the provided budget overrides; nil or
// non-positive entries fall back to the defaults.
func NewBuilder(budgets map[Section]int) *Builder {
	result := map[Section]int{}
	for _, section := range []Section{SectionNotes, SectionEmails, SectionEvents, SectionTasks} {
		if budgets != nil && budgets[section] > 0 {
			result[section] = budgets[section]
			continue
		}
		result[section] = SectionLimit(section)
	}
	return &Builder{budgets: result}
}

// Build renders the digest. Empty sections are omitted entirely.
func (b *Builder) Build(notes []workspace.Note, messages []provider.Message, events []provider.Event, todos []workspace.Todo) string {
	var sections []string

	if block := b.renderNotes(notes); block != "" {
		sections = append(sections, block)
	}
	if block := b.renderEmails(messages); block != "" {
		sections = append(sections, block)
	}
	if block := b.renderEvents(events); block != "" {
		sections = append(sections, block)
	}
	if block := b.renderTasks(todos); block != "" {
		sections = append(sections, block)
	}
	return strings.Join(sections, "\n\n")
}

func (b *Builder) renderNotes(notes []workspace.Note) string {
	lines := make([]string, 0, maxItemsPerSection)
	for _, note := range clipCount(notes) {
		body := note.Summary
		if body == "" {
			body = note.Content
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", note.Title, canonical(body)))
	}
	return renderSection("RECENT NOTES", lines, b.budgets[SectionNotes])
}

func (b *Builder) renderEmails(messages []provider.Message) string {
	lines := make([]string, 0, maxItemsPerSection)
	for _, message := range clipCount(messages) {
		marker := ""
		if message.Important {
			marker = " [important]"
		}
		lines = append(lines, fmt.Sprintf("- From %s: %s%s", message.From, canonical(message.Subject), marker))
	}
	return renderSection("UNREAD EMAILS", lines, b.budgets[SectionEmails])
}

func (b *Builder) renderEvents(events []provider.Event) string {
	lines := make([]string, 0, maxItemsPerSection)
	for _, event := range clipCount(events) {
		when := ""
		if !event.Start.IsZero() {
			when = " at " + event.Start.Format(time.Kitchen)
		}
		lines = append(lines, fmt.Sprintf("- %s%s (%s)", canonical(event.Summary), when, event.Location))
	}
	return renderSection("UPCOMING EVENTS", lines, b.budgets[SectionEvents])
}

func (b *Builder) renderTasks(todos []workspace.Todo) string {
	lines := make([]string, 0, maxItemsPerSection)
	for _, todo := range clipCount(todos) {
		status := "open"
		if todo.Completed {
			status = "done"
		}
		lines = append(lines, fmt.Sprintf("- %s (%s)", canonical(todo.Task), status))
	}
	return renderSection("TASKS", lines, b.budgets[SectionTasks])
}

func renderSection(header string, lines []string, budget int) string {
	if len(lines) == 0 {
		return ""
	}
	body := clipText(strings.Join(lines, "\n"), budget)
	if body == "" {
		return ""
	}
	return header + ":\n" + body
}

func clipCount[T any](items []T) []T {
	if len(items) > maxItemsPerSection {
		return items[:maxItemsPerSection]
	}
	return items
}

func canonical(text string) string {
	return whitespaceSanity.ReplaceAllString(strings.TrimSpace(text), " ")
}

func clipText(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
