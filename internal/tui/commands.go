package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rkapur/omniwork/internal/assistant"
	"github.com/rkapur/omniwork/internal/audio"
	"github.com/rkapur/omniwork/internal/provider"
	"github.com/rkapur/omniwork/internal/store"
	"github.com/rkapur/omniwork/internal/workspace"
)

// mailCalendarClient is the slice of the provider clients the shell needs;
// tests substitute fakes.
type mailCalendarClient interface {
	ListUnreadMessages(ctx context.Context, limit int) ([]provider.Message, error)
	ListUpcomingEvents(ctx context.Context, windowStart, windowEnd time.Time) ([]provider.Event, error)
}

// sessionControl is the slice of provider.Session the shell drives.
type sessionControl interface {
	Authenticate(ctx context.Context) (provider.Profile, error)
	Authenticated() bool
	Profile() provider.Profile
	Logout()
}

// Account wires one provider into the work tab.
type Account struct {
	Kind        provider.Kind
	Label       string
	Session     sessionControl
	Mail        mailCalendarClient
	SetClientID func(id string)
}

func authenticateJob(account Account, generation int) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 5*time.Minute)
		defer cancel()
		profile, err := account.Session.Authenticate(ctx)
		return authResultMsg{kind: account.Kind, generation: generation, profile: profile, err: err}, err
	}
}

// syncJob fetches mail and calendar in one pass. Each leg degrades
// independently; the result carries both snapshots plus per-leg errors so
// the shell can tell "failed" from "empty".
func syncJob(account Account, generation int) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 45*time.Second)
		defer cancel()
		messages, mailErr := account.Mail.ListUnreadMessages(ctx, unreadFetchLimit)
		now := time.Now()
		events, calendarErr := account.Mail.ListUpcomingEvents(ctx, now, now.Add(eventWindow))
		return syncResultMsg{
			kind:        account.Kind,
			generation:  generation,
			messages:    messages,
			events:      events,
			mailErr:     mailErr,
			calendarErr: calendarErr,
		}, nil
	}
}

func chatJob(client assistant.Client, seq int, query, digestText string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
		defer cancel()
		reply := client.Chat(ctx, query, digestText)
		return chatResultMsg{seq: seq, reply: reply}, nil
	}
}

func transcribeJob(client assistant.Client, generation int, payload []byte, mimeType string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
		defer cancel()
		text, err := client.Transcribe(ctx, payload, mimeType)
		return transcribeResultMsg{generation: generation, text: text, err: err}, err
	}
}

// finalizeNoteJob runs summarization plus folder classification for a note
// being saved. The content travels with the message so the note is built
// from exactly what was submitted, not whatever the composer holds later.
func finalizeNoteJob(client assistant.Client, generation int, content string, kind workspace.NoteKind, noteID string, folders []workspace.Folder) jobRunner {
	candidates := append([]workspace.Folder(nil), folders...)
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
		defer cancel()
		result := client.FinalizeNote(ctx, content, candidates)
		return finalizeResultMsg{
			generation: generation,
			content:    content,
			kind:       kind,
			noteID:     noteID,
			result:     result,
		}, nil
	}
}

func saveSnapshotJob(path string, snapshot store.Snapshot) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		if err := store.Save(path, snapshot); err != nil {
			return saveResultMsg{err: err}, err
		}
		return saveResultMsg{}, nil
	}
}

// speakJob synthesizes and plays the reply. Voice output is best-effort:
// a nil synthesis result or playback failure reports, never blocks.
func speakJob(client assistant.Client, text string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
		defer cancel()
		pcm := client.SynthesizeSpeech(ctx, text)
		if pcm == nil {
			return speechResultMsg{played: false}, nil
		}
		if err := audio.PlayPCM(ctx, pcm, assistant.SpeechSampleRate); err != nil {
			return speechResultMsg{played: false, err: err}, err
		}
		return speechResultMsg{played: true}, nil
	}
}
