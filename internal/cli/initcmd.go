package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/fpt/discord-chat/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the settings file interactively",
	Long: "Create the settings file interactively.\n\n" +
		"Walks through the default LLM backend, model, and digest window, then\n" +
		"writes ~/.discord-chat/settings.json.",
	RunE: initAction,
}

func initAction(cmd *cobra.Command, _ []string) error {
	backends := []string{"auto", "claude", "openai", "gemini", "ollama"}
	sel := promptui.Select{
		Label: "Default LLM backend",
		Items: backends,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "{{ . }}",
		},
		Size: len(backends),
	}
	_, backend, err := sel.Run()
	if err != nil {
		return promptResult(cmd, err)
	}
	if backend == "auto" {
		backend = ""
	}

	modelPrompt := promptui.Prompt{
		Label:   "Model override (empty for the provider default)",
		Default: "",
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return promptResult(cmd, err)
	}

	hoursPrompt := promptui.Prompt{
		Label:   "Default digest window in hours",
		Default: strconv.Itoa(config.DefaultHours),
		Validate: func(input string) error {
			v, err := strconv.Atoi(strings.TrimSpace(input))
			if err != nil {
				return fmt.Errorf("enter a number")
			}
			if v < config.MinHours || v > config.MaxHours {
				return fmt.Errorf("hours must be between %d and %d", config.MinHours, config.MaxHours)
			}
			return nil
		},
	}
	hoursRaw, err := hoursPrompt.Run()
	if err != nil {
		return promptResult(cmd, err)
	}
	hours, _ := strconv.Atoi(strings.TrimSpace(hoursRaw))

	stg := config.DefaultSettings()
	stg.LLM.Backend = backend
	stg.LLM.Model = strings.TrimSpace(model)
	stg.Fetch.DefaultHours = hours

	path := settingsPath
	if path == "" {
		path = config.DefaultSettingsPath()
	}
	if err := config.SaveSettings(path, stg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", path)
	return nil
}

// promptResult maps a Ctrl-C in the wizard to a clean exit.
func promptResult(cmd *cobra.Command, err error) error {
	if err == promptui.ErrInterrupt {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}
	return err
}
