// Package digest turns fetched Discord messages into LLM prompts and
// rendered output: the transcript fed to the provider, the saved markdown
// document, digest styles, and console/file writers.
package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/fpt/discord-chat/internal/discord"
)

// FormatTranscript renders fetched messages as a markdown transcript for
// the LLM prompt: a "## #channel" section per channel, one line per
// message with attachments and reactions on follow-up lines.
func FormatTranscript(res *discord.FetchResult) string {
	if res == nil || res.TotalMessages == 0 {
		return "No messages found."
	}

	var b strings.Builder
	for _, ch := range res.Channels {
		if len(ch.Messages) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## #%s\n\n", ch.Channel.Name)
		for _, m := range ch.Messages {
			fmt.Fprintf(&b, "**%s** (%s): %s\n", m.Author, m.Timestamp.UTC().Format("15:04"), m.Content)
			if len(m.Attachments) > 0 {
				fmt.Fprintf(&b, "_Attachments: %s_\n", strings.Join(m.Attachments, ", "))
			}
			if len(m.Reactions) > 0 {
				fmt.Fprintf(&b, "_Reactions: %s_\n", formatReactions(m.Reactions))
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func formatReactions(rs []discord.Reaction) string {
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, fmt.Sprintf("%s x%d", r.Emoji, r.Count))
	}
	return strings.Join(parts, ", ")
}

// FormatTimeRange renders a window as
// "2024-01-01 10:00 UTC to 2024-01-01 16:00 UTC".
func FormatTimeRange(start, end time.Time) string {
	const layout = "2006-01-02 15:04"
	return fmt.Sprintf("%s UTC to %s UTC", start.UTC().Format(layout), end.UTC().Format(layout))
}
