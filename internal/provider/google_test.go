package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(context.Context) (string, error) {
	return s.token, s.err
}

func TestGoogleListUnreadMessagesNormalizes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/messages"):
			require.Equal(t, "is:unread", r.URL.Query().Get("q"))
			json.NewEncoder(w).Encode(map[string]any{
				"messages": []map[string]string{{"id": "m1"}},
			})
		case strings.HasSuffix(r.URL.Path, "/messages/m1"):
			json.NewEncoder(w).Encode(map[string]any{
				"id":       "m1",
				"snippet":  "quarterly numbers attached",
				"labelIds": []string{"UNREAD", "IMPORTANT"},
				"payload": map[string]any{
					"headers": []map[string]string{
						{"name": "From", "value": "Alice <alice@example.com>"},
						{"name": "Subject", "value": "Q2 numbers"},
						{"name": "Date", "value": "Mon, 02 Mar 2026 10:00:00 +0000"},
					},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewGoogleClient(staticTokens{token: "tok"}, discardLogger())
	client.gmailBase = server.URL

	messages, err := client.ListUnreadMessages(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "Alice <alice@example.com>", messages[0].From)
	require.Equal(t, "Q2 numbers", messages[0].Subject)
	require.True(t, messages[0].Important, "IMPORTANT label must set the flag")
	require.Equal(t, 2026, messages[0].Received.Year())
}

func TestGoogleListUnreadMessagesFailureYieldsEmptySlicePlusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"backend"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewGoogleClient(staticTokens{token: "tok"}, discardLogger())
	client.gmailBase = server.URL

	messages, err := client.ListUnreadMessages(context.Background(), 10)
	require.Error(t, err)
	require.NotNil(t, messages, "failure must yield an empty slice, never nil")
	require.Empty(t, messages)
}

func TestGoogleTokenFailureShortCircuitsWithoutNetwork(t *testing.T) {
	t.Parallel()

	client := NewGoogleClient(staticTokens{err: ErrNotAuthenticated}, discardLogger())
	client.gmailBase = "http://127.0.0.1:1" // would fail loudly if dialed

	messages, err := client.ListUnreadMessages(context.Background(), 10)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	require.Empty(t, messages)
}

func TestGoogleListUpcomingEventsNormalizes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "true", r.URL.Query().Get("singleEvents"))
		require.Equal(t, "startTime", r.URL.Query().Get("orderBy"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"id":      "e1",
					"summary": "Design review",
					"start":   map[string]string{"dateTime": "2026-03-04T14:30:00Z"},
					"end":     map[string]string{"dateTime": "2026-03-04T15:00:00Z"},
				},
				{
					"id":       "e2",
					"summary":  "Company holiday",
					"location": "",
					"start":    map[string]string{"date": "2026-03-05"},
					"end":      map[string]string{"date": "2026-03-06"},
				},
			},
		})
	}))
	defer server.Close()

	client := NewGoogleClient(staticTokens{token: "tok"}, discardLogger())
	client.calendarBase = server.URL

	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	events, err := client.ListUpcomingEvents(context.Background(), now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "Design review", events[0].Summary)
	require.Equal(t, 14, events[0].Start.Hour())
	require.Equal(t, googleNoLocation, events[0].Location, "missing location gets the placeholder")
	require.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), events[1].Start, "all-day events parse the date form")
}

func TestGoogleListUpcomingEventsFailureYieldsEmptySlicePlusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewGoogleClient(staticTokens{token: "tok"}, discardLogger())
	client.calendarBase = server.URL

	events, err := client.ListUpcomingEvents(context.Background(), time.Now(), time.Now().Add(time.Hour))
	require.Error(t, err)
	require.NotNil(t, events)
	require.Empty(t, events)
}

func TestParseEventTimeVariants(t *testing.T) {
	t.Parallel()

	require.False(t, parseEventTime("2026-03-04T14:30:00Z", "").IsZero())
	require.False(t, parseEventTime("2026-03-04T14:30:00", "").IsZero())
	require.False(t, parseEventTime("2026-03-04T14:30:00.0000000", "").IsZero())
	require.False(t, parseEventTime("", "2026-03-04").IsZero())
	require.True(t, parseEventTime("", "").IsZero())
	require.True(t, parseEventTime("garbage", "").IsZero())
}
