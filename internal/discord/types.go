package discord

import (
	"time"
)

// Per-message caps applied while reading channel history. They bound the
// size of a single record so one oversized message cannot dominate the
// digest or the LLM prompt.
const (
	maxContentRunes = 100_000
	maxAttachments  = 10
	maxReactions    = 20
	maxAuthorRunes  = 100
)

// truncatedMarker is appended to content cut at maxContentRunes.
const truncatedMarker = "...[truncated]"

// historyPageSize is the per-request message page limit of the Discord API.
const historyPageSize = 100

// cancelCheckInterval is how many accumulated messages a reader collects
// between cooperative cancellation checks.
const cancelCheckInterval = 100

// Server identifies a guild the bot can see.
type Server struct {
	ID   string
	Name string
}

// Channel identifies a text channel within a server.
type Channel struct {
	ID   string
	Name string
}

// Reaction is an emoji reaction tally on a message.
type Reaction struct {
	Emoji string
	Count int
}

// Message is a single chat message normalized for digesting. Content and
// author are already capped, attachments reduced to filenames.
type Message struct {
	Author      string
	Content     string
	Timestamp   time.Time
	Attachments []string
	Reactions   []Reaction
}

// ChannelResult holds everything read from one channel, oldest first.
type ChannelResult struct {
	Channel  Channel
	Messages []Message
}

// FetchResult aggregates the per-channel reads for one server. Channels
// that yielded no messages are dropped before aggregation.
type FetchResult struct {
	ServerName    string
	Channels      []ChannelResult
	TotalMessages int
	Window        Window
}

// Window bounds history reads to [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// LastHours returns a window covering the given number of hours up to now.
func LastHours(hours int) Window {
	now := time.Now().UTC()
	return Window{Start: now.Add(-time.Duration(hours) * time.Hour), End: now}
}

// Config bounds the fetch pipeline. Zero values fall back to defaults;
// callers normally populate this from settings, which clamp to the same
// ranges.
type Config struct {
	// MaxMessagesPerChannel caps how many messages one channel contributes.
	MaxMessagesPerChannel int
	// MaxConcurrentChannels caps how many channel readers run at once.
	MaxConcurrentChannels int
	// OperationTimeout bounds one whole fetch, connection included.
	OperationTimeout time.Duration
	// ReadyTimeout bounds the wait for gateway readiness.
	ReadyTimeout time.Duration
}

const (
	defaultMaxMessages   = 1000
	defaultMaxConcurrent = 5
	defaultOpTimeout     = 60 * time.Second
	defaultReadyTimeout  = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxMessagesPerChannel <= 0 {
		c.MaxMessagesPerChannel = defaultMaxMessages
	}
	if c.MaxConcurrentChannels <= 0 {
		c.MaxConcurrentChannels = defaultMaxConcurrent
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = defaultOpTimeout
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = defaultReadyTimeout
	}
	return c
}
