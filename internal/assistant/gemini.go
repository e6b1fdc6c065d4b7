package assistant

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rkapur/omniwork/internal/workspace"
)

const (
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com"
	defaultGeminiModel    = "gemini-3-flash-preview"
	defaultGeminiTTSModel = "gemini-2.5-flash-preview-tts"

	defaultGeminiHTTPTimeout = 2 * time.Minute
)

// Config describes how to build the Gemini-backed client.
type Config struct {
	APIKey     string
	Endpoint   string
	Model      string
	TTSModel   string
	HTTPClient *http.Client
}

// NewFromEnv builds a Gemini client from config plus GEMINI_API_KEY and
// GEMINI_ENDPOINT fallbacks. A missing key disables the assistant entirely.
func NewFromEnv(cfg Config, logger *logrus.Logger) (Client, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("no Gemini API key configured (set GEMINI_API_KEY)")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if env := os.Getenv("GEMINI_ENDPOINT"); env != "" {
			endpoint = strings.TrimRight(env, "/")
		} else {
			endpoint = defaultGeminiEndpoint
		}
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	ttsModel := cfg.TTSModel
	if ttsModel == "" {
		ttsModel = defaultGeminiTTSModel
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &geminiClient{
		apiKey:   key,
		base:     endpoint,
		model:    model,
		ttsModel: ttsModel,
		client:   pickHTTPClient(cfg.HTTPClient),
		logger:   logger,
	}, nil
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	return &http.Client{Timeout: defaultGeminiHTTPTimeout}
}

type geminiClient struct {
	apiKey   string
	base     string
	model    string
	ttsModel string
	client   *http.Client
	logger   *logrus.Logger
}

func (c *geminiClient) Name() string {
	return fmt.Sprintf("Gemini (%s)", c.model)
}

// Wire types for the generateContent call.

type genRequest struct {
	Contents          []genContent `json:"contents"`
	SystemInstruction *genContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  *genConfig   `json:"generationConfig,omitempty"`
}

type genContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []genPart `json:"parts"`
}

type genPart struct {
	Text       string         `json:"text,omitempty"`
	InlineData *genInlineData `json:"inlineData,omitempty"`
}

type genInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type genConfig struct {
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseSchema     any      `json:"responseSchema,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

func (c *geminiClient) Chat(ctx context.Context, query, digest string) ChatReply {
	request := genRequest{
		Contents: []genContent{{Parts: []genPart{{Text: buildChatPrompt(query, digest)}}}},
		SystemInstruction: &genContent{
			Parts: []genPart{{Text: chatSystemInstruction}},
		},
		GenerationConfig: &genConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   chatSchema(),
		},
	}
	raw, err := c.generateText(ctx, c.model, request)
	if err != nil {
		c.logger.WithError(err).Warn("assistant: chat call failed")
		return ChatReply{Reply: FallbackReply}
	}
	var reply ChatReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil || strings.TrimSpace(reply.Reply) == "" {
		c.logger.WithField("payload", clipForLog(raw)).Warn("assistant: chat response failed schema validation")
		return ChatReply{Reply: FallbackReply}
	}
	reply.Reply = strings.TrimSpace(reply.Reply)
	reply.TaskSuggestion = strings.TrimSpace(reply.TaskSuggestion)
	return reply
}

func (c *geminiClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	request := genRequest{
		Contents: []genContent{{
			Parts: []genPart{
				{InlineData: &genInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(audio),
				}},
				{Text: transcribePrompt},
			},
		}},
	}
	raw, err := c.generateText(ctx, c.model, request)
	if err != nil {
		c.logger.WithError(err).Warn("assistant: transcription call failed")
		return "", err
	}
	// No speech detected is a valid outcome, not an error.
	return strings.TrimSpace(raw), nil
}

func (c *geminiClient) FinalizeNote(ctx context.Context, content string, folders []workspace.Folder) NoteFinalization {
	request := genRequest{
		Contents: []genContent{{Parts: []genPart{{Text: buildFinalizePrompt(content, folders)}}}},
		GenerationConfig: &genConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   finalizeSchema(folders),
		},
	}
	fallback := NoteFinalization{Summary: "", FolderID: resolveFolder("", folders)}
	raw, err := c.generateText(ctx, c.model, request)
	if err != nil {
		c.logger.WithError(err).Warn("assistant: note finalization failed; using default folder")
		return fallback
	}
	var parsed struct {
		Summary         string `json:"summary"`
		SuggestedFolder string `json:"suggestedFolder"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		c.logger.WithField("payload", clipForLog(raw)).Warn("assistant: finalization response failed schema validation")
		return fallback
	}
	return NoteFinalization{
		Summary:  strings.TrimSpace(parsed.Summary),
		FolderID: resolveFolder(parsed.SuggestedFolder, folders),
	}
}

func (c *geminiClient) SynthesizeSpeech(ctx context.Context, text string) []byte {
	request := genRequest{
		Contents:         []genContent{{Parts: []genPart{{Text: text}}}},
		GenerationConfig: &genConfig{ResponseModalities: []string{"AUDIO"}},
	}
	response, err := c.generate(ctx, c.ttsModel, request)
	if err != nil {
		c.logger.WithError(err).Debug("assistant: speech synthesis failed")
		return nil
	}
	data := response.firstInlineData()
	if data == "" {
		return nil
	}
	audio, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		c.logger.WithError(err).Debug("assistant: speech payload not decodable")
		return nil
	}
	return audio
}

type genResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (r *genResponse) firstText() string {
	for _, candidate := range r.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}

func (r *genResponse) firstInlineData() string {
	for _, candidate := range r.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData.Data != "" {
				return part.InlineData.Data
			}
		}
	}
	return ""
}

func (c *geminiClient) generateText(ctx context.Context, model string, request genRequest) (string, error) {
	response, err := c.generate(ctx, model, request)
	if err != nil {
		return "", err
	}
	return response.firstText(), nil
}

func (c *geminiClient) generate(ctx context.Context, model string, request genRequest) (*genResponse, error) {
	buf, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.base, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gemini API error: %s (%s)", resp.Status, clipForLog(string(body)))
	}
	var parsed genResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func clipForLog(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 256 {
		return value
	}
	return value[:256] + "…"
}
