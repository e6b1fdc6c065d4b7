package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultGmailBase    = "https://gmail.googleapis.com"
	defaultCalendarBase = "https://www.googleapis.com"

	googleNoLocation = "No location"
)

// GoogleClient reads unread mail and upcoming events through the Gmail and
// Calendar REST APIs, normalizing both into the flat Message/Event shapes.
type GoogleClient struct {
	tokens       TokenSource
	gmailBase    string
	calendarBase string
	client       *http.Client
	logger       *logrus.Logger
}

func NewGoogleClient(tokens TokenSource, logger *logrus.Logger) *GoogleClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &GoogleClient{
		tokens:       tokens,
		gmailBase:    defaultGmailBase,
		calendarBase: defaultCalendarBase,
		client:       &http.Client{Timeout: 20 * time.Second},
		logger:       logger,
	}
}

// ListUnreadMessages fetches up to limit most-recent unread messages. A
// transport or authorization failure yields an empty slice plus the error as
// a failure flag; it never panics the caller and never returns nil together
// with success.
func (c *GoogleClient) ListUnreadMessages(ctx context.Context, limit int) ([]Message, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("gmail: no usable token")
		return []Message{}, err
	}

	listURL := fmt.Sprintf("%s/gmail/v1/users/me/messages?maxResults=%d&q=%s",
		c.gmailBase, limit, url.QueryEscape("is:unread"))
	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := c.getJSON(ctx, listURL, token, &list); err != nil {
		c.logger.WithError(err).Warn("gmail: message list fetch failed")
		return []Message{}, err
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		detailURL := fmt.Sprintf("%s/gmail/v1/users/me/messages/%s", c.gmailBase, ref.ID)
		var detail struct {
			ID       string   `json:"id"`
			Snippet  string   `json:"snippet"`
			LabelIDs []string `json:"labelIds"`
			Payload  struct {
				Headers []struct {
					Name  string `json:"name"`
					Value string `json:"value"`
				} `json:"headers"`
			} `json:"payload"`
		}
		if err := c.getJSON(ctx, detailURL, token, &detail); err != nil {
			c.logger.WithError(err).Warnf("gmail: detail fetch failed for %s", ref.ID)
			return []Message{}, err
		}
		header := func(name string) string {
			for _, h := range detail.Payload.Headers {
				if h.Name == name {
					return h.Value
				}
			}
			return ""
		}
		from := header("From")
		if from == "" {
			from = "Unknown"
		}
		subject := header("Subject")
		if subject == "" {
			subject = "No Subject"
		}
		messages = append(messages, Message{
			ID:        detail.ID,
			From:      from,
			Subject:   subject,
			Snippet:   detail.Snippet,
			Received:  parseMailDate(header("Date")),
			Important: containsLabel(detail.LabelIDs, "IMPORTANT"),
		})
	}
	return messages, nil
}

// ListUpcomingEvents fetches events inside the window, ordered by start time
// on the provider side. Callers must still sort before display; ordering is
// not part of the contract.
func (c *GoogleClient) ListUpcomingEvents(ctx context.Context, windowStart, windowEnd time.Time) ([]Event, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("calendar: no usable token")
		return []Event{}, err
	}

	values := url.Values{
		"timeMin":      {windowStart.UTC().Format(time.RFC3339)},
		"timeMax":      {windowEnd.UTC().Format(time.RFC3339)},
		"maxResults":   {strconv.Itoa(50)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
	}
	eventsURL := fmt.Sprintf("%s/calendar/v3/calendars/primary/events?%s", c.calendarBase, values.Encode())
	var payload struct {
		Items []struct {
			ID       string `json:"id"`
			Summary  string `json:"summary"`
			Location string `json:"location"`
			Start    struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"end"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, eventsURL, token, &payload); err != nil {
		c.logger.WithError(err).Warn("calendar: event fetch failed")
		return []Event{}, err
	}

	events := make([]Event, 0, len(payload.Items))
	for _, item := range payload.Items {
		location := item.Location
		if location == "" {
			location = googleNoLocation
		}
		events = append(events, Event{
			ID:       item.ID,
			Summary:  item.Summary,
			Start:    parseEventTime(item.Start.DateTime, item.Start.Date),
			End:      parseEventTime(item.End.DateTime, item.End.Date),
			Location: location,
		})
	}
	return events, nil
}

func (c *GoogleClient) getJSON(ctx context.Context, rawURL, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("google API error: %s (%s)", resp.Status, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func containsLabel(labels []string, needle string) bool {
	for _, label := range labels {
		if label == needle {
			return true
		}
	}
	return false
}

func parseMailDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if parsed, err := mail.ParseDate(value); err == nil {
		return parsed
	}
	return time.Time{}
}

func parseEventTime(dateTime, date string) time.Time {
	if dateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTime); err == nil {
			return parsed
		}
		// Graph-style timestamps omit the offset.
		if parsed, err := time.Parse("2006-01-02T15:04:05", dateTime); err == nil {
			return parsed.UTC()
		}
		if parsed, err := time.Parse("2006-01-02T15:04:05.0000000", dateTime); err == nil {
			return parsed.UTC()
		}
	}
	if date != "" {
		if parsed, err := time.Parse("2006-01-02", date); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
