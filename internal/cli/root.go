// Package cli provides the discord-chat command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fpt/discord-chat/internal/audit"
	"github.com/fpt/discord-chat/internal/config"
	pkgLogger "github.com/fpt/discord-chat/pkg/logger"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var (
	debugFlag    bool
	settingsPath string

	// settings is loaded once per invocation by the root PersistentPreRun.
	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "discord-chat",
	Short: "Summarize Discord server activity with an LLM",
	Long: "discord-chat fetches recent messages from a Discord server and uses an LLM\n" +
		"provider (Claude, OpenAI, Gemini, or a local Ollama) to produce a concise digest.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		loaded, err := config.LoadSettings(settingsPath)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to load settings: %v\n", err)
			loaded = config.DefaultSettings()
		}
		settings = loaded

		level := pkgLogger.LogLevel(settings.Log.Level)
		if debugFlag {
			level = pkgLogger.LogLevelDebug
		}
		pkgLogger.SetGlobalLogLevel(level)
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "path to settings file (default ~/.discord-chat/settings.json)")
	rootCmd.AddCommand(digestCmd, activityCmd, versionCmd, initCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// currentSettings returns the loaded settings, or defaults when a command
// runs outside Execute (direct calls in tests).
func currentSettings() *config.Settings {
	if settings == nil {
		return config.DefaultSettings()
	}
	return settings
}

// openAudit opens the security event log, degrading to a no-op logger
// when the destination is unusable.
func openAudit(s *config.Settings) *audit.Logger {
	aud, err := audit.New(s.SecurityLogPath())
	if err != nil {
		pkgLogger.NewComponentLogger("cli").Warn("Security log unavailable", "error", err)
		return audit.Nop()
	}
	return aud
}
