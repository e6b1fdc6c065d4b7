package assistant

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/rkapur/omniwork/internal/workspace"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeGemini answers generateContent calls with the given part payloads.
func fakeGemini(t *testing.T, handler http.HandlerFunc) (*geminiClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &geminiClient{
		apiKey:   "test-key",
		base:     server.URL,
		model:    "test-model",
		ttsModel: "test-tts",
		client:   server.Client(),
		logger:   discardLogger(),
	}, server
}

func textResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			},
		}},
	}
}

func TestChatParsesStructuredReply(t *testing.T) {
	t.Parallel()

	client, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.Contains(t, r.URL.Path, "test-model:generateContent")

		var request genRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		require.NotNil(t, request.SystemInstruction)
		require.Equal(t, "application/json", request.GenerationConfig.ResponseMimeType)

		json.NewEncoder(w).Encode(textResponse(
			`{"reply":"You have 3 unread emails.","taskSuggestion":"Reply to Alice"}`))
	})

	reply := client.Chat(context.Background(), "what's urgent?", "UNREAD EMAILS:\n- From alice: hi")
	require.Equal(t, "You have 3 unread emails.", reply.Reply)
	require.Equal(t, "Reply to Alice", reply.TaskSuggestion)
}

func TestChatFallsBackOnTransportError(t *testing.T) {
	t.Parallel()

	client, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	reply := client.Chat(context.Background(), "hello", "")
	require.Equal(t, FallbackReply, reply.Reply)
	require.Empty(t, reply.TaskSuggestion)
}

func TestChatFallsBackOnSchemaViolation(t *testing.T) {
	t.Parallel()

	client, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(textResponse("plain prose, not the JSON contract"))
	})

	reply := client.Chat(context.Background(), "hello", "")
	require.Equal(t, FallbackReply, reply.Reply)
}

func TestChatFallsBackOnEmptyReplyField(t *testing.T) {
	t.Parallel()

	client, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(textResponse(`{"reply":"   "}`))
	})

	reply := client.Chat(context.Background(), "hello", "")
	require.Equal(t, FallbackReply, reply.Reply)
}

func TestTranscribeSendsAudioInline(t *testing.T) {
	t.Parallel()

	audio := []byte{0x52, 0x49, 0x46, 0x46}
	client, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		var request genRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		parts := request.Contents[0].Parts
		require.Len(t, parts, 2)
		require.Equal(t, "audio/wav", parts[0].InlineData.MimeType)
		require.Equal(t, base64.StdEncoding.EncodeToString(audio), parts[0].InlineData.Data)
		require.Contains(t, parts[1].Text, "Transcribe this audio")

		json.NewEncoder(w).Encode(textResponse("  buy milk tomorrow  "))
	})

	text, err := client.Transcribe(context.Background(), audio, "audio/wav")
	require.NoError(t, err)
	require.Equal(t, "buy milk tomorrow", text)
}

func TestTranscribeSilenceIsNotAnError(t *testing.T) {
	t.Parallel()

	client, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(textResponse(""))
	})

	text, err := client.Transcribe(context.Background(), []byte{1}, "audio/wav")
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestTranscribeSurfacesTransportError(t *testing.T) {
	t.Parallel()

	client, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := client.Transcribe(context.Background(), []byte{1}, "audio/wav")
	require.Error(t, err)
}

func TestFinalizeNoteResolvesFolderByName(t *testing.T) {
	t.Parallel()

	client, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(textResponse(
			`{"summary":"- sync with design","suggestedFolder":"work"}`))
	})

	result := client.FinalizeNote(context.Background(), "met with design team",
		workspace.DefaultFolders())
	require.Equal(t, "- sync with design", result.Summary)
	require.Equal(t, "work", result.FolderID, "name match is case-insensitive")
}

func TestFinalizeNoteFallsBackToFirstCandidateOnFailure(t *testing.T) {
	t.Parallel()

	client, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	folders := []workspace.Folder{{ID: "inbox", Name: "Inbox"}}
	result := client.FinalizeNote(context.Background(), "note", folders)
	require.Empty(t, result.Summary)
	require.Equal(t, "inbox", result.FolderID)
}

func TestFinalizeNoteEmptyCandidatesUseDefaultFolder(t *testing.T) {
	t.Parallel()

	client, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(textResponse("not json at all"))
	})

	result := client.FinalizeNote(context.Background(), "note", nil)
	require.Equal(t, workspace.DefaultFolderID, result.FolderID)
}

func TestSynthesizeSpeechDecodesInlineAudio(t *testing.T) {
	t.Parallel()

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	client, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "test-tts:generateContent")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{
						"inlineData": map[string]string{
							"mimeType": "audio/pcm",
							"data":     base64.StdEncoding.EncodeToString(pcm),
						},
					}},
				},
			}},
		})
	})

	got := client.SynthesizeSpeech(context.Background(), "hello")
	require.Equal(t, pcm, got)
}

func TestSynthesizeSpeechReturnsNilOnAnyFailure(t *testing.T) {
	t.Parallel()

	client, _ := fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no audio", http.StatusBadRequest)
	})
	require.Nil(t, client.SynthesizeSpeech(context.Background(), "hello"))

	client, _ = fakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(textResponse("text but no audio part"))
	})
	require.Nil(t, client.SynthesizeSpeech(context.Background(), "hello"))
}

func TestResolveFolder(t *testing.T) {
	t.Parallel()

	folders := workspace.DefaultFolders()
	require.Equal(t, "work", resolveFolder("Work", folders))
	require.Equal(t, "work", resolveFolder("WORK", folders))
	require.Equal(t, folders[0].ID, resolveFolder("Nonexistent", folders))
	require.Equal(t, workspace.DefaultFolderID, resolveFolder("anything", nil))
}

func TestNewFromEnvRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := NewFromEnv(Config{}, discardLogger())
	require.Error(t, err)

	client, err := NewFromEnv(Config{APIKey: "k"}, discardLogger())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(client.Name(), "Gemini"))
}
