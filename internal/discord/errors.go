package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrPermissionDenied marks a channel read the bot is not authorized for.
// Readers treat it as "channel contributes nothing", not as a failure.
var ErrPermissionDenied = errors.New("permission denied")

// AuthError reports a rejected bot login.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "Discord authentication failed. Check your DISCORD_BOT_TOKEN."
	}
	return fmt.Sprintf("Discord authentication failed: %s. Check your DISCORD_BOT_TOKEN.", e.Reason)
}

// IntentsError reports that the bot lacks the privileged gateway intents
// the history reader depends on.
type IntentsError struct{}

func (e *IntentsError) Error() string {
	return "Discord bot is missing privileged intents. Enable MESSAGE CONTENT INTENT for the bot in the Discord developer portal."
}

// ConnectTimeoutError reports that the gateway session never became ready
// within the readiness window.
type ConnectTimeoutError struct {
	Timeout time.Duration
}

func (e *ConnectTimeoutError) Error() string {
	return fmt.Sprintf("Timed out waiting for Discord connection after %s", e.Timeout)
}

// NotFoundError reports that no visible server matched the requested name.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	avail := "None"
	if len(e.Available) > 0 {
		avail = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("Server '%s' not found. Available servers: %s", e.Name, avail)
}

// OperationTimeoutError reports that a whole fetch exceeded its deadline.
type OperationTimeoutError struct {
	Server  string
	Timeout time.Duration
}

func (e *OperationTimeoutError) Error() string {
	return fmt.Sprintf("Discord operation timed out after %d seconds", int(e.Timeout.Seconds()))
}

// APIError wraps a failed Discord REST call with its HTTP status when known.
type APIError struct {
	Status int
	Err    error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("Discord API request failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("Discord API request failed: %v", e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// isPermissionDenied reports whether err means the bot may not read the
// channel. Covers both the sentinel and a raw HTTP 403 from the REST API.
func isPermissionDenied(err error) bool {
	if errors.Is(err, ErrPermissionDenied) {
		return true
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode == http.StatusForbidden
	}
	return false
}

// isCancellation reports whether err stems from context cancellation or an
// expired deadline. Such errors abort the whole operation instead of being
// isolated to one channel.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
