package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"

	"github.com/rkapur/omniwork/internal/provider"
)

// renderMailSection keeps "fetch failed" visually distinct from "inbox zero":
// a failed leg shows the error, a successful empty fetch says so outright.
func (m *model) renderMailSection(kind provider.Kind, status *syncStatus) string {
	var b strings.Builder
	b.WriteString(m.styles.sectionHeader.Render("Unread Mail"))
	b.WriteRune('\n')

	switch {
	case status == nil:
		b.WriteString(m.styles.helper.Render("Press Enter to sync."))
	case status.MailErr != "":
		b.WriteString(m.styles.errorText.Render("Could not fetch mail: " + status.MailErr))
	case len(m.messages[kind]) == 0:
		b.WriteString(m.styles.helper.Render("No unread emails. Nice."))
	default:
		wrap := m.contentWidth() - 4
		for _, message := range m.messages[kind] {
			subject := message.Subject
			if message.Important {
				subject = m.styles.important.Render("! ") + subject
			}
			b.WriteString(fmt.Sprintf("• %s — %s\n", m.styles.currentLine.Render(message.From), subject))
			if message.Snippet != "" {
				b.WriteString(m.styles.helper.Render(indentMultiline(
					wordwrap.String(previewText(message.Snippet, 120), wrap), "    ")))
				b.WriteRune('\n')
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *model) renderCalendarSection(kind provider.Kind, status *syncStatus) string {
	var b strings.Builder
	b.WriteString(m.styles.sectionHeader.Render("Today's Calendar"))
	b.WriteRune('\n')

	switch {
	case status == nil:
		b.WriteString(m.styles.helper.Render("Press Enter to sync."))
	case status.CalendarErr != "":
		b.WriteString(m.styles.errorText.Render("Could not fetch calendar: " + status.CalendarErr))
	case len(m.events[kind]) == 0:
		b.WriteString(m.styles.helper.Render("No events in the next 24 hours."))
	default:
		for _, event := range m.events[kind] {
			window := fmt.Sprintf("%s–%s",
				event.Start.Format(time.Kitchen), event.End.Format(time.Kitchen))
			b.WriteString(fmt.Sprintf("• %s  %s\n", m.styles.currentLine.Render(window), event.Summary))
			b.WriteString(m.styles.helper.Render("    " + event.Location))
			b.WriteRune('\n')
		}
	}
	if status != nil && status.Synced {
		b.WriteString(m.styles.statusBar.Render(
			"Last synced " + status.SyncedAt.Format(time.Kitchen)))
	}
	return strings.TrimRight(b.String(), "\n")
}
