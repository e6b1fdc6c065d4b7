package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultGraphBase = "https://graph.microsoft.com/v1.0"

	graphNoLocation = "No location set"
)

// MicrosoftClient reads mail and calendar data through Microsoft Graph,
// normalizing into the same flat shapes the Google client produces.
type MicrosoftClient struct {
	tokens TokenSource
	base   string
	client *http.Client
	logger *logrus.Logger
}

func NewMicrosoftClient(tokens TokenSource, logger *logrus.Logger) *MicrosoftClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &MicrosoftClient{
		tokens: tokens,
		base:   defaultGraphBase,
		client: &http.Client{Timeout: 20 * time.Second},
		logger: logger,
	}
}

// ListUnreadMessages fetches up to limit unread messages. Graph flags
// importance as a tri-state string; only "high" maps to the Important bool.
func (c *MicrosoftClient) ListUnreadMessages(ctx context.Context, limit int) ([]Message, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("graph: no usable token")
		return []Message{}, err
	}

	values := url.Values{
		"$top":    {fmt.Sprintf("%d", limit)},
		"$filter": {"isRead eq false"},
		"$select": {"id,subject,from,bodyPreview,receivedDateTime,importance"},
	}
	var payload struct {
		Value []struct {
			ID          string `json:"id"`
			Subject     string `json:"subject"`
			BodyPreview string `json:"bodyPreview"`
			Received    string `json:"receivedDateTime"`
			Importance  string `json:"importance"`
			From        struct {
				EmailAddress struct {
					Name    string `json:"name"`
					Address string `json:"address"`
				} `json:"emailAddress"`
			} `json:"from"`
		} `json:"value"`
	}
	if err := c.getJSON(ctx, c.base+"/me/messages?"+values.Encode(), token, &payload); err != nil {
		c.logger.WithError(err).Warn("graph: message fetch failed")
		return []Message{}, err
	}

	messages := make([]Message, 0, len(payload.Value))
	for _, m := range payload.Value {
		from := m.From.EmailAddress.Name
		if from == "" {
			from = m.From.EmailAddress.Address
		}
		if from == "" {
			from = "Unknown"
		}
		subject := m.Subject
		if subject == "" {
			subject = "No Subject"
		}
		received, _ := time.Parse(time.RFC3339, m.Received)
		messages = append(messages, Message{
			ID:        m.ID,
			From:      from,
			Subject:   subject,
			Snippet:   m.BodyPreview,
			Received:  received,
			Important: m.Importance == "high",
		})
	}
	return messages, nil
}

// ListUpcomingEvents fetches the calendar view for the window.
func (c *MicrosoftClient) ListUpcomingEvents(ctx context.Context, windowStart, windowEnd time.Time) ([]Event, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("graph: no usable token")
		return []Event{}, err
	}

	values := url.Values{
		"startDateTime": {windowStart.UTC().Format(time.RFC3339)},
		"endDateTime":   {windowEnd.UTC().Format(time.RFC3339)},
		"$select":       {"id,subject,start,end,location"},
	}
	var payload struct {
		Value []struct {
			ID      string `json:"id"`
			Subject string `json:"subject"`
			Start   struct {
				DateTime string `json:"dateTime"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
			} `json:"end"`
			Location struct {
				DisplayName string `json:"displayName"`
			} `json:"location"`
		} `json:"value"`
	}
	if err := c.getJSON(ctx, c.base+"/me/calendarview?"+values.Encode(), token, &payload); err != nil {
		c.logger.WithError(err).Warn("graph: calendar fetch failed")
		return []Event{}, err
	}

	events := make([]Event, 0, len(payload.Value))
	for _, e := range payload.Value {
		location := e.Location.DisplayName
		if location == "" {
			location = graphNoLocation
		}
		events = append(events, Event{
			ID:       e.ID,
			Summary:  e.Subject,
			Start:    parseEventTime(e.Start.DateTime, ""),
			End:      parseEventTime(e.End.DateTime, ""),
			Location: location,
		})
	}
	return events, nil
}

func (c *MicrosoftClient) getJSON(ctx context.Context, rawURL, token string, out any) error {
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
		return fmt.Errorf("graph API error: %s (%s)", resp.Status, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
