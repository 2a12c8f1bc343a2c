package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fpt/discord-chat/internal/audit"
	"github.com/fpt/discord-chat/pkg/logger"
)

// Client fetches recent messages from a Discord server for digesting. Each
// fetch owns a fresh gateway session for its whole duration.
type Client struct {
	token string
	cfg   Config
	dial  DialFunc
	aud   *audit.Logger
	log   *logger.Logger
}

// NewClient builds a client for the given bot token. A nil audit logger
// disables the audit trail.
func NewClient(token string, cfg Config, aud *audit.Logger) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &AuthError{Reason: "bot token is required"}
	}
	if aud == nil {
		aud = audit.Nop()
	}
	return &Client{
		token: token,
		cfg:   cfg.withDefaults(),
		dial:  dialDiscord,
		aud:   aud,
		log:   logger.NewComponentLogger("discord"),
	}, nil
}

// FetchServerMessages connects, resolves the server by name, reads every
// text channel concurrently and aggregates the results. The whole
// operation is bounded by the configured timeout, and the gateway session
// is closed on every exit path.
func (c *Client) FetchServerMessages(ctx context.Context, serverName string, w Window) (*FetchResult, error) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OperationTimeout)
	defer cancel()

	sess, err := openSession(c.dial, c.token, c.log, c.aud)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	res, err := c.fetch(ctx, sess, serverName, w)
	if err != nil {
		sess.close()
		return nil, c.fail(started, serverName, err)
	}

	sess.close()
	c.aud.APICall("Discord", "guild_message_fetch", time.Since(started), true)
	c.log.Info("fetched server messages",
		"server", res.ServerName, "channels", len(res.Channels), "messages", res.TotalMessages)
	return res, nil
}

func (c *Client) fetch(ctx context.Context, sess *session, serverName string, w Window) (*FetchResult, error) {
	if err := sess.awaitReady(ctx, c.cfg.ReadyTimeout); err != nil {
		return nil, err
	}

	b := sess.backend
	servers, err := b.Servers(ctx)
	if err != nil {
		return nil, err
	}
	server, err := findServer(serverName, servers)
	if err != nil {
		return nil, err
	}
	channels, err := b.TextChannels(ctx, server.ID)
	if err != nil {
		return nil, err
	}
	c.log.Debug("reading channel history", "server", server.Name, "channels", len(channels))

	read, err := fetchChannels(ctx, b, channels, w, c.cfg, c.aud, c.log)
	if err != nil {
		return nil, err
	}

	res := &FetchResult{ServerName: server.Name, Window: w}
	for _, cr := range read {
		if len(cr.Messages) == 0 {
			continue
		}
		res.Channels = append(res.Channels, cr)
		res.TotalMessages += len(cr.Messages)
	}
	return res, nil
}

// fail maps internal failures onto the public error taxonomy and records
// the failed operation in the audit trail.
func (c *Client) fail(started time.Time, serverName string, err error) error {
	c.aud.APICall("Discord", "guild_message_fetch", time.Since(started), false)

	if errors.Is(err, context.DeadlineExceeded) {
		c.aud.OperationTimeout(serverName, c.cfg.OperationTimeout)
		return &OperationTimeoutError{Server: serverName, Timeout: c.cfg.OperationTimeout}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	switch err.(type) {
	case *AuthError, *IntentsError, *ConnectTimeoutError, *NotFoundError, *APIError:
		return err
	}
	return fmt.Errorf("Failed to fetch Discord messages: %w", err)
}
