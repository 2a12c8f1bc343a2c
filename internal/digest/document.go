package digest

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/fpt/discord-chat/internal/discord"
)

const maxServerNameRunes = 100

// ValidationError reports user input rejected before it reaches the
// network or the filesystem.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ValidateServerName trims a user-entered server name and rejects values
// that could escape the output directory or corrupt logs. Returns the
// trimmed name.
func ValidateServerName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &ValidationError{Reason: "Server name cannot be empty"}
	}
	if strings.Contains(trimmed, "..") || strings.ContainsAny(trimmed, `/\`) {
		return "", &ValidationError{Reason: "Server name contains path traversal sequences"}
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", &ValidationError{Reason: "Server name contains control characters"}
		}
	}
	if utf8.RuneCountInString(trimmed) > maxServerNameRunes {
		return "", &ValidationError{Reason: fmt.Sprintf("Server name is too long (maximum %d characters)", maxServerNameRunes)}
	}
	return trimmed, nil
}

// DefaultFilename builds "digest-<slug>-<timestamp>.md" for a server.
// The name is validated first so a hostile server name cannot place the
// file outside the output directory.
func DefaultFilename(serverName string, now time.Time) (string, error) {
	validated, err := ValidateServerName(serverName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("digest-%s-%s.md", slugify(validated), now.Format("20060102-150405")), nil
}

// slugify lowercases and keeps only ASCII letters and digits, collapsing
// everything else into single hyphens.
func slugify(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		default:
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// BuildDocument assembles the complete digest markdown: title, metadata
// block, the LLM-generated body, and a footer.
func BuildDocument(res *discord.FetchResult, body, providerName string, generatedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Discord Digest: %s\n\n", res.ServerName)
	fmt.Fprintf(&b, "**Period:** %s\n", FormatTimeRange(res.Window.Start, res.Window.End))
	fmt.Fprintf(&b, "**Messages:** %d across %d channels\n", res.TotalMessages, len(res.Channels))
	fmt.Fprintf(&b, "**Generated:** %s UTC using %s\n\n", generatedAt.UTC().Format("2006-01-02 15:04"), providerName)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n\n---\n\n_Generated by discord-chat_\n")
	return b.String()
}
