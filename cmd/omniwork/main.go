package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rkapur/omniwork/internal/assistant"
	"github.com/rkapur/omniwork/internal/audio"
	"github.com/rkapur/omniwork/internal/logging"
	"github.com/rkapur/omniwork/internal/provider"
	"github.com/rkapur/omniwork/internal/tui"
)

func main() {
	statePath := flag.String("state", defaultStatePath(), "path to the workspace JSON file")
	logLevel := flag.String("log-level", "info", "log level written to omniwork.log (debug, info, warn, error)")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	geminiModel := flag.String("gemini-model", "", "override the default Gemini model")
	geminiEndpoint := flag.String("gemini-endpoint", "", "custom Gemini API host")
	flag.Parse()

	absPath, err := filepath.Abs(*statePath)
	if err != nil {
		fmt.Println("failed to resolve state path:", err)
		os.Exit(1)
	}
	logger := logging.New(filepath.Dir(absPath), *logLevel)

	assistantClient, err := assistant.NewFromEnv(assistant.Config{
		Model:    *geminiModel,
		Endpoint: *geminiEndpoint,
	}, logger)
	if err != nil {
		fmt.Println("Assistant disabled:", err)
	}

	googleFlow := provider.NewBrowserFlow("", provider.GoogleEndpoints(), logger)
	googleSession := provider.NewSession(provider.KindGoogle, googleFlow, logger)
	microsoftFlow := provider.NewBrowserFlow("", provider.MicrosoftEndpoints(), logger)
	microsoftSession := provider.NewSession(provider.KindMicrosoft, microsoftFlow, logger)

	accounts := []tui.Account{
		{
			Kind:        provider.KindGoogle,
			Label:       "Google",
			Session:     googleSession,
			Mail:        provider.NewGoogleClient(googleSession, logger),
			SetClientID: googleFlow.SetClientID,
		},
		{
			Kind:        provider.KindMicrosoft,
			Label:       "Microsoft",
			Session:     microsoftSession,
			Mail:        provider.NewMicrosoftClient(microsoftSession, logger),
			SetClientID: microsoftFlow.SetClientID,
		},
	}

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			StatePath: absPath,
			Assistant: assistantClient,
			Accounts:  accounts,
			Recorder:  audio.NewRecorder(audio.MicSource{}, logger),
			Logger:    logger,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}

func defaultStatePath() string {
	if dir := os.Getenv("OMNIWORK_STATE_DIR"); dir != "" {
		return filepath.Join(dir, "omniwork.json")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "omniwork", "omniwork.json")
	}
	return filepath.Join(".", "omniwork.json")
}
