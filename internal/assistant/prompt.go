package assistant

import (
	"fmt"
	"strings"

	"github.com/rkapur/omniwork/internal/workspace"
)

const transcribePrompt = "Transcribe this audio exactly as spoken. " +
	"If there is no speech, return an empty string. Output ONLY the transcription text."

const chatSystemInstruction = "You are OmniWork AI. Use the provided context to help the user " +
	"with work, meetings, emails, and tasks. Be concise and professional. " +
	"When the user asks you to create or add a task, set taskSuggestion to the task text; otherwise leave it empty."

func buildChatPrompt(query, digest string) string {
	var b strings.Builder
	if strings.TrimSpace(digest) != "" {
		b.WriteString("Context (notes, emails, events, tasks):\n")
		b.WriteString(digest)
		b.WriteString("\n\n")
	}
	b.WriteString("User Question: ")
	b.WriteString(query)
	return b.String()
}

func buildFinalizePrompt(content string, folders []workspace.Folder) string {
	names := make([]string, 0, len(folders))
	for _, folder := range folders {
		names = append(names, folder.Name)
	}
	return fmt.Sprintf(
		"Note content: %q\n\n"+
			"1. Summarize the note into short professional bullet points.\n"+
			"2. Pick the best folder for it from: [%s]. If none fit, pick %q.",
		content, strings.Join(names, ", "), "General",
	)
}

// chatSchema constrains the chat response so a reply and an optional task
// suggestion come back as distinct fields instead of free text.
func chatSchema() map[string]any {
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"reply":          map[string]any{"type": "STRING"},
			"taskSuggestion": map[string]any{"type": "STRING"},
		},
		"required": []string{"reply"},
	}
}

// finalizeSchema constrains folder selection to the candidate names, so the
// model cannot invent a folder outside the set.
func finalizeSchema(folders []workspace.Folder) map[string]any {
	names := make([]string, 0, len(folders)+1)
	for _, folder := range folders {
		names = append(names, folder.Name)
	}
	if len(names) == 0 {
		names = append(names, "General")
	}
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"summary":         map[string]any{"type": "STRING"},
			"suggestedFolder": map[string]any{"type": "STRING", "enum": names},
		},
		"required": []string{"summary", "suggestedFolder"},
	}
}

// resolveFolder maps the model's folder name back onto a candidate id. An
// unmatched or empty candidate set resolves to the deterministic default.
func resolveFolder(name string, folders []workspace.Folder) string {
	for _, folder := range folders {
		if strings.EqualFold(folder.Name, name) {
			return folder.ID
		}
	}
	if len(folders) > 0 {
		return folders[0].ID
	}
	return workspace.DefaultFolderID
}
