package discord

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// readChannelHistory collects the messages of one channel inside the
// window, oldest first, applying the per-message caps. The read walks
// forward from a snowflake cursor derived from the window start, so when
// the channel cap is hit it is the earliest messages that survive.
//
// A channel the bot cannot read yields an empty result, not an error.
// Every other failure propagates to the caller.
func readChannelHistory(ctx context.Context, b Backend, ch Channel, w Window, maxMessages int) (ChannelResult, error) {
	res := ChannelResult{Channel: ch}
	after := snowflakeForTime(w.Start)

	for {
		page, err := b.MessagePage(ctx, ch.ID, after, historyPageSize)
		if err != nil {
			if isPermissionDenied(err) {
				return ChannelResult{Channel: ch}, nil
			}
			return ChannelResult{Channel: ch}, err
		}
		if len(page) == 0 {
			break
		}

		// The API does not promise page ordering, so impose ascending ID
		// order before walking the page.
		sort.Slice(page, func(i, j int) bool { return snowflakeLess(page[i].ID, page[j].ID) })

		done := false
		for _, m := range page {
			after = m.ID
			if m.Timestamp.Before(w.Start) {
				continue
			}
			if !m.Timestamp.Before(w.End) {
				done = true
				break
			}
			if m.Author != nil && m.Author.Bot {
				continue
			}
			if strings.TrimSpace(m.Content) == "" && len(m.Attachments) == 0 {
				continue
			}

			res.Messages = append(res.Messages, normalizeMessage(m))
			if len(res.Messages) >= maxMessages {
				done = true
				break
			}
			if len(res.Messages)%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return ChannelResult{Channel: ch}, err
				}
			}
		}
		if done || len(page) < historyPageSize {
			break
		}
	}

	sort.SliceStable(res.Messages, func(i, j int) bool {
		return res.Messages[i].Timestamp.Before(res.Messages[j].Timestamp)
	})
	return res, nil
}

// normalizeMessage converts an API message into the capped digest record.
func normalizeMessage(m *discordgo.Message) Message {
	out := Message{
		Content:   capRunes(m.Content, maxContentRunes, truncatedMarker),
		Timestamp: m.Timestamp,
	}

	if m.Author != nil {
		name := m.Author.Username
		if m.Author.GlobalName != "" {
			name = m.Author.GlobalName
		}
		out.Author = capRunes(name, maxAuthorRunes, "")
	}

	for i, att := range m.Attachments {
		if i == maxAttachments {
			out.Attachments = append(out.Attachments, fmt.Sprintf("...and %d more", len(m.Attachments)-maxAttachments))
			break
		}
		out.Attachments = append(out.Attachments, att.Filename)
	}

	for i, r := range m.Reactions {
		if i == maxReactions {
			break
		}
		if r.Emoji == nil {
			continue
		}
		out.Reactions = append(out.Reactions, Reaction{Emoji: r.Emoji.APIName(), Count: r.Count})
	}

	return out
}

// capRunes truncates s to limit runes, appending the marker when anything
// was cut.
func capRunes(s string, limit int, marker string) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + marker
}
