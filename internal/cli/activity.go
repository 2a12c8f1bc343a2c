package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fpt/discord-chat/internal/config"
	"github.com/fpt/discord-chat/internal/discord"
)

const (
	activityDefaultHours = 24
	activityMinNameCol   = 20
	activityCountCol     = 10
)

var activityHours int

var activityCmd = &cobra.Command{
	Use:   "activity SERVER_NAME",
	Short: "Check message activity in a Discord server",
	Long: "Check message activity in a Discord server.\n\n" +
		"Outputs each channel name and message count, nothing more.",
	Example: `  discord-chat activity "my server" --hours 12`,
	Args:    cobra.ExactArgs(1),
	RunE:    activityAction,
}

func init() {
	activityCmd.Flags().IntVar(&activityHours, "hours", activityDefaultHours, "hours to look back")
}

func activityAction(cmd *cobra.Command, args []string) error {
	stg := currentSettings()

	token, err := config.BotToken()
	if err != nil {
		return err
	}

	res, err := fetchServerMessages(cmd.Context(), token, fetchConfig(stg), openAudit(stg), args[0], discord.LastHours(activityHours))
	if err != nil {
		var nf *discord.NotFoundError
		if errors.As(err, &nf) {
			return err
		}
		return fmt.Errorf("Discord error: %s", err)
	}

	writeActivityTable(cmd.OutOrStdout(), res)
	return nil
}

// writeActivityTable prints channels sorted by message count descending,
// followed by a total row.
func writeActivityTable(w io.Writer, res *discord.FetchResult) {
	if res.TotalMessages == 0 {
		fmt.Fprintln(w, "No messages found.")
		return
	}

	channels := make([]discord.ChannelResult, len(res.Channels))
	copy(channels, res.Channels)
	sort.SliceStable(channels, func(i, j int) bool {
		return len(channels[i].Messages) > len(channels[j].Messages)
	})

	maxNameLen := 0
	for _, ch := range channels {
		if n := len(ch.Channel.Name); n > maxNameLen {
			maxNameLen = n
		}
	}
	colWidth := maxNameLen + 1
	if colWidth < activityMinNameCol {
		colWidth = activityMinNameCol
	}

	rule := strings.Repeat("-", colWidth) + " " + strings.Repeat("-", activityCountCol)

	fmt.Fprintf(w, "%-*s %*s\n", colWidth, "Channel", activityCountCol, "Messages")
	fmt.Fprintln(w, rule)
	for _, ch := range channels {
		fmt.Fprintf(w, "#%-*s %*d\n", colWidth-1, ch.Channel.Name, activityCountCol, len(ch.Messages))
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-*s %*d\n", colWidth, "Total", activityCountCol, res.TotalMessages)
}
