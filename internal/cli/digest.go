package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpt/discord-chat/internal/audit"
	"github.com/fpt/discord-chat/internal/config"
	"github.com/fpt/discord-chat/internal/digest"
	"github.com/fpt/discord-chat/internal/discord"
	"github.com/fpt/discord-chat/internal/llm"
)

var (
	digestHours   int
	digestLLM     string
	digestStyle   string
	digestFile    string
	digestChannel string
	digestQuiet   bool
	digestNoColor bool
	digestDryRun  bool
)

var digestCmd = &cobra.Command{
	Use:   "digest SERVER_NAME",
	Short: "Generate a digest of Discord server activity",
	Long: "Generate a digest of Discord server activity.\n\n" +
		"Fetches messages from all channels in SERVER_NAME over the given time\n" +
		"period and uses an LLM to create a summarized digest.\n\n" +
		"Requires the DISCORD_BOT_TOKEN environment variable. For the LLM, set\n" +
		"ANTHROPIC_API_KEY (Claude), OPENAI_API_KEY (OpenAI), GEMINI_API_KEY\n" +
		"(Gemini), or OLLAMA_HOST (local Ollama).",
	Example: `  discord-chat digest "my server" --hours 3 --llm claude
  discord-chat digest "my server" --channel general --file digest.md`,
	Args: cobra.ExactArgs(1),
	RunE: digestAction,
}

func init() {
	digestCmd.Flags().IntVar(&digestHours, "hours", config.DefaultHours, "hours to look back for messages")
	digestCmd.Flags().StringVarP(&digestLLM, "llm", "l", "", "LLM provider: claude, openai, gemini, or ollama (auto-selects if not set)")
	digestCmd.Flags().StringVar(&digestStyle, "style", digest.DefaultStyle, "digest style: standard, brief, or actions")
	digestCmd.Flags().StringVar(&digestFile, "file", "", "write the digest to this file or directory (screen only if not set)")
	digestCmd.Flags().StringVarP(&digestChannel, "channel", "c", "", "limit the digest to one specific channel")
	digestCmd.Flags().BoolVarP(&digestQuiet, "quiet", "q", false, "suppress console output")
	digestCmd.Flags().BoolVar(&digestNoColor, "no-color", false, "disable ANSI colors")
	digestCmd.Flags().BoolVar(&digestDryRun, "dry-run", false, "preview the digest request without calling the LLM")
}

// fetchServerMessages is a seam for tests; the default dials Discord.
var fetchServerMessages = func(ctx context.Context, token string, cfg discord.Config, aud *audit.Logger, serverName string, w discord.Window) (*discord.FetchResult, error) {
	client, err := discord.NewClient(token, cfg, aud)
	if err != nil {
		return nil, err
	}
	return client.FetchServerMessages(ctx, serverName, w)
}

// selectProvider is a seam for tests; the default consults the registry.
var selectProvider = llm.Select

func digestAction(cmd *cobra.Command, args []string) error {
	stg := currentSettings()

	hours := stg.Fetch.DefaultHours
	if cmd.Flags().Changed("hours") {
		hours = digestHours
	}
	if hours < config.MinHours || hours > config.MaxHours {
		return fmt.Errorf("Hours must be between %d and %d", config.MinHours, config.MaxHours)
	}

	token, err := config.BotToken()
	if err != nil {
		return err
	}

	aud := openAudit(stg)

	serverName, err := digest.ValidateServerName(args[0])
	if err != nil {
		aud.ValidationFailure("server_name", args[0], err.Error())
		return err
	}

	style, err := pickStyle(digestStyle)
	if err != nil {
		return err
	}

	cx := digest.NewConsole(cmd.OutOrStdout(), digestQuiet, digest.ColorEnabled(digestNoColor))

	window := discord.LastHours(hours)
	var res *discord.FetchResult
	err = cx.Status(fmt.Sprintf("Fetching messages from '%s' (last %d hours)", serverName, hours), func() error {
		var ferr error
		res, ferr = fetchServerMessages(cmd.Context(), token, fetchConfig(stg), aud, serverName, window)
		return ferr
	})
	if err != nil {
		var nf *discord.NotFoundError
		if errors.As(err, &nf) {
			return err
		}
		return fmt.Errorf("Discord error: %s", err)
	}

	channelFilter := strings.TrimPrefix(strings.TrimSpace(digestChannel), "#")
	if channelFilter != "" {
		res, err = filterChannel(res, channelFilter)
		if err != nil {
			return err
		}
		if res.TotalMessages == 0 {
			cx.Printf("No messages found in #%s in the last %d hours.\n", channelFilter, hours)
			return nil
		}
		cx.Printf("Found %d messages in #%s.\n", res.TotalMessages, channelFilter)
	} else {
		if res.TotalMessages == 0 {
			cx.Printf("No messages found in '%s' in the last %d hours.\n", res.ServerName, hours)
			return nil
		}
		cx.Printf("Found %d messages across %d channels.\n", res.TotalMessages, len(res.Channels))
	}

	providerName := digestLLM
	if providerName == "" {
		providerName = stg.LLM.Backend
	}
	opts := llm.Options{Model: stg.LLM.Model, MaxTokens: stg.LLM.MaxTokens}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = style.MaxTokens
	}
	provider, err := selectProvider(providerName, opts)
	if err != nil {
		return err
	}

	req := llm.Request{
		Transcript:   digest.FormatTranscript(res),
		ServerName:   res.ServerName,
		ChannelCount: len(res.Channels),
		MessageCount: res.TotalMessages,
		TimeRange:    digest.FormatTimeRange(res.Window.Start, res.Window.End),
		SystemPrompt: style.Prompt,
	}

	if digestDryRun {
		printDryRun(cx, res, req, provider.Name(), style.Name, channelFilter)
		return nil
	}

	var body string
	err = cx.Status(fmt.Sprintf("Using %s to generate digest", provider.Name()), func() error {
		var gerr error
		body, gerr = provider.GenerateDigest(cmd.Context(), req)
		return gerr
	})
	if err != nil {
		return fmt.Errorf("LLM error: %s", err)
	}

	doc := digest.BuildDocument(res, body, provider.Name(), time.Now())

	cx.Printf("\n")
	cx.Panel(digest.PanelTitle, doc)

	if digestFile != "" {
		path, err := digest.WriteFile(digestFile, res.ServerName, doc, time.Now())
		if err != nil {
			return err
		}
		aud.FileOperation("write", path, "0600")
		cx.Printf("Digest saved to: %s\n", path)
	}
	return nil
}

// filterChannel narrows a fetch result to one channel, matching the name
// case-insensitively. The leading "#" is already stripped by the caller.
func filterChannel(res *discord.FetchResult, name string) (*discord.FetchResult, error) {
	for _, ch := range res.Channels {
		if strings.EqualFold(ch.Channel.Name, name) {
			out := *res
			out.Channels = []discord.ChannelResult{ch}
			out.TotalMessages = len(ch.Messages)
			return &out, nil
		}
	}

	available := "None"
	if len(res.Channels) > 0 {
		names := make([]string, 0, len(res.Channels))
		for _, ch := range res.Channels {
			names = append(names, "#"+ch.Channel.Name)
		}
		available = strings.Join(names, ", ")
	}
	return nil, fmt.Errorf("Channel '#%s' not found in '%s'. Available channels: %s", name, res.ServerName, available)
}

func pickStyle(name string) (*digest.Style, error) {
	styles, err := digest.LoadStyles()
	if err != nil {
		return nil, err
	}
	if s, ok := styles[strings.ToLower(name)]; ok {
		return s, nil
	}

	names := make([]string, 0, len(styles))
	for k := range styles {
		names = append(names, k)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("Unknown style '%s'. Available: %s", name, strings.Join(names, ", "))
}

func printDryRun(cx *digest.Console, res *discord.FetchResult, req llm.Request, provider, style, channelFilter string) {
	cx.Printf("\n[DRY RUN] Preview of digest generation:\n")
	cx.Printf("  Server: %s\n", res.ServerName)
	cx.Printf("  Channels: %d\n", len(res.Channels))
	cx.Printf("  Messages: %d\n", res.TotalMessages)
	if channelFilter != "" {
		cx.Printf("  Channel filter: #%s\n", channelFilter)
	}
	cx.Printf("  Time range: %s\n", req.TimeRange)
	cx.Printf("  LLM provider: %s\n", provider)
	cx.Printf("  Style: %s\n", style)
	cx.Printf("  Estimated prompt size: ~%d characters\n", req.PromptSize())
	if digestFile != "" {
		cx.Printf("  Would save digest to: %s\n", digestFile)
	} else {
		cx.Printf("  Would display digest to screen\n")
	}
	cx.Printf("No API calls made.\n")
}

func fetchConfig(s *config.Settings) discord.Config {
	return discord.Config{
		MaxMessagesPerChannel: s.Fetch.MaxMessagesPerChannel,
		MaxConcurrentChannels: s.Fetch.MaxConcurrentChannels,
		OperationTimeout:      time.Duration(s.Fetch.OperationTimeoutSecs) * time.Second,
	}
}
