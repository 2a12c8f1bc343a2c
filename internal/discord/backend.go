package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
)

// Backend is the slice of the Discord API the fetch pipeline uses. The
// production implementation wraps a discordgo session; tests substitute an
// in-process fake.
type Backend interface {
	// Open establishes the gateway connection. The ready callback given to
	// the dialer fires once the session reaches READY.
	Open() error
	// Close tears the connection down. Safe to call more than once.
	Close() error
	// Servers lists the guilds visible to the bot, in enumeration order.
	Servers(ctx context.Context) ([]Server, error)
	// TextChannels lists the text channels of one server.
	TextChannels(ctx context.Context, serverID string) ([]Channel, error)
	// MessagePage returns up to limit messages with IDs above afterID.
	// Page ordering is whatever the API returns; callers must sort.
	MessagePage(ctx context.Context, channelID, afterID string, limit int) ([]*discordgo.Message, error)
}

// DialFunc builds a Backend for a bot token. onReady fires once the
// gateway session reaches READY and may fire again after reconnects.
type DialFunc func(token string, onReady func()) (Backend, error)

// guildPageSize is the per-request guild page limit of the Discord API.
const guildPageSize = 200

// Gateway close codes that identify why a connection was refused.
const (
	closeCodeAuthFailed        = 4004
	closeCodeDisallowedIntents = 4014
)

// dialDiscord is the production DialFunc.
func dialDiscord(token string, onReady func()) (Backend, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		onReady()
	})

	return &gatewayBackend{session: dg}, nil
}

// gatewayBackend adapts a discordgo session to the Backend interface.
type gatewayBackend struct {
	session *discordgo.Session
}

func (g *gatewayBackend) Open() error {
	return g.session.Open()
}

func (g *gatewayBackend) Close() error {
	return g.session.Close()
}

func (g *gatewayBackend) Servers(ctx context.Context) ([]Server, error) {
	var out []Server
	after := ""
	for {
		page, err := g.session.UserGuilds(guildPageSize, "", after, false, discordgo.WithContext(ctx))
		if err != nil {
			return nil, wrapAPIError(err)
		}
		for _, ug := range page {
			out = append(out, Server{ID: ug.ID, Name: ug.Name})
		}
		if len(page) < guildPageSize {
			return out, nil
		}
		after = page[len(page)-1].ID
	}
}

func (g *gatewayBackend) TextChannels(ctx context.Context, serverID string) ([]Channel, error) {
	chans, err := g.session.GuildChannels(serverID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapAPIError(err)
	}
	out := make([]Channel, 0, len(chans))
	for _, ch := range chans {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		out = append(out, Channel{ID: ch.ID, Name: ch.Name})
	}
	return out, nil
}

func (g *gatewayBackend) MessagePage(ctx context.Context, channelID, afterID string, limit int) ([]*discordgo.Message, error) {
	msgs, err := g.session.ChannelMessages(channelID, limit, "", afterID, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return msgs, nil
}

// wrapAPIError attaches the HTTP status to REST failures. Transport and
// cancellation errors pass through untouched so errors.Is keeps working.
func wrapAPIError(err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		status := 0
		if rest.Response != nil {
			status = rest.Response.StatusCode
		}
		return &APIError{Status: status, Err: err}
	}
	return err
}

// classifyConnectError maps gateway dial failures onto the error taxonomy.
// Discord refuses bad tokens and missing intents with dedicated websocket
// close codes; REST auth failures surface as HTTP 401.
func classifyConnectError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case closeCodeAuthFailed:
			return &AuthError{}
		case closeCodeDisallowedIntents:
			return &IntentsError{}
		}
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusUnauthorized {
		return &AuthError{}
	}
	if strings.Contains(strings.ToLower(err.Error()), "authentication failed") {
		return &AuthError{}
	}
	return fmt.Errorf("discord connection failed: %w", err)
}

// discordEpochMillis is the millisecond offset of Discord snowflake IDs.
const discordEpochMillis = 1420070400000

// snowflakeForTime returns the smallest message ID that could have been
// created at t, used as a pagination cursor for "history since t".
func snowflakeForTime(t time.Time) string {
	ms := t.UnixMilli() - discordEpochMillis
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatUint(uint64(ms)<<22, 10)
}

// snowflakeLess compares two snowflake IDs numerically.
func snowflakeLess(a, b string) bool {
	au, _ := strconv.ParseUint(a, 10, 64)
	bu, _ := strconv.ParseUint(b, 10, 64)
	return au < bu
}
