package assistant

import (
	"context"

	"github.com/rkapur/omniwork/internal/workspace"
)

// Client exposes the four assistant operations. Each call is one stateless
// round trip; conversational context is rebuilt and sent fresh every time.
// The operations degrade independently: a failed transcription never blocks
// note saving, a failed synthesis never blocks showing the text reply.
type Client interface {
	// Chat answers a user query against the supplied context digest. Any
	// transport or schema failure surfaces as the fixed fallback reply, never
	// as an error.
	Chat(ctx context.Context, query, digest string) ChatReply
	// Transcribe converts recorded audio to text. Silent audio yields an
	// empty string without an error; only transport/auth failures error.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
	// FinalizeNote summarizes the note and picks a folder from the candidate
	// set via constrained decoding. The folder id is always drawn from the
	// candidates or the deterministic default, never invented.
	FinalizeNote(ctx context.Context, content string, folders []workspace.Folder) NoteFinalization
	// SynthesizeSpeech returns raw PCM16 audio, or nil on any failure.
	SynthesizeSpeech(ctx context.Context, text string) []byte
	Name() string
}

// ChatReply distinguishes the conversational reply from an optional
// create-a-task side-effect signal.
type ChatReply struct {
	Reply          string `json:"reply"`
	TaskSuggestion string `json:"taskSuggestion,omitempty"`
}

// NoteFinalization carries the generated summary plus the chosen folder.
type NoteFinalization struct {
	Summary  string
	FolderID string
}

// FallbackReply is shown whenever the chat operation cannot produce a valid
// structured response.
const FallbackReply = "I'm sorry, I couldn't process that."
