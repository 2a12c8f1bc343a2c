package digest

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/term"
)

// PanelTitle is the box title used when a digest is rendered on screen.
const PanelTitle = "Discord Digest"

const (
	minPanelWidth = 40
	fallbackWidth = 80
)

// Console writes user-facing CLI output. A quiet console swallows every
// write; errors still reach the caller through return values.
type Console struct {
	w     io.Writer
	quiet bool
	color bool
}

// NewConsole builds a console for w. Pass color=false when --no-color is
// set or w is not a terminal (see ColorEnabled).
func NewConsole(w io.Writer, quiet, color bool) *Console {
	return &Console{w: w, quiet: quiet, color: color}
}

// ColorEnabled reports whether ANSI output makes sense for stdout.
func ColorEnabled(noColor bool) bool {
	if noColor {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Printf writes formatted output unless the console is quiet. Callers
// terminate lines themselves.
func (c *Console) Printf(format string, args ...any) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.w, format, args...)
}

// Status prints "label... ", runs fn, then appends "done (0.3s)" or
// "failed (0.3s)". The error is returned either way; a quiet console
// stays silent but still reports it.
func (c *Console) Status(label string, fn func() error) error {
	start := time.Now()
	if !c.quiet {
		fmt.Fprintf(c.w, "%s... ", label)
	}
	err := fn()
	if c.quiet {
		return err
	}
	elapsed := time.Since(start).Seconds()
	if err != nil {
		fmt.Fprintf(c.w, "%s (%.1fs)\n", c.red("failed"), elapsed)
	} else {
		fmt.Fprintf(c.w, "%s (%.1fs)\n", c.green("done"), elapsed)
	}
	return err
}

// Panel draws markdown content inside a rounded box with a centered
// title. This is how the finished digest is presented on screen.
func (c *Console) Panel(title, content string) {
	if c.quiet {
		return
	}

	width := terminalWidth()
	if width < minPanelWidth {
		width = minPanelWidth
	}
	inner := width - 2     // between the border runes
	textWidth := inner - 4 // 2 spaces of padding each side

	c.writeTopBorder(title, inner)
	c.writePanelLine("", textWidth)
	for _, raw := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		for _, line := range wrapLine(raw, textWidth) {
			c.writePanelLine(line, textWidth)
		}
	}
	c.writePanelLine("", textWidth)
	fmt.Fprintf(c.w, "%s\n", c.blue("╰"+strings.Repeat("─", inner)+"╯"))
}

func (c *Console) writeTopBorder(title string, inner int) {
	decorated := " " + title + " "
	fill := inner - runeLen(decorated)
	if fill < 2 {
		decorated = ""
		fill = inner
	}
	left := fill / 2
	fmt.Fprintf(c.w, "%s%s%s\n",
		c.blue("╭"+strings.Repeat("─", left)),
		c.bold(decorated),
		c.blue(strings.Repeat("─", fill-left)+"╮"))
}

func (c *Console) writePanelLine(line string, textWidth int) {
	pad := textWidth - runeLen(line)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(c.w, "%s  %s%s  %s\n",
		c.blue("│"), c.styleMarkdown(line), strings.Repeat(" ", pad), c.blue("│"))
}

var boldSpanRe = regexp.MustCompile(`\*\*(.+?)\*\*`)

// styleMarkdown applies minimal highlighting: heading lines and **bold**
// spans are emboldened. The escape codes are inserted after width math,
// so padding is computed on the plain text.
func (c *Console) styleMarkdown(line string) string {
	if !c.color {
		return line
	}
	if strings.HasPrefix(line, "#") {
		return c.bold(line)
	}
	return boldSpanRe.ReplaceAllString(line, "\x1b[1m$1\x1b[0m")
}

// wrapLine breaks a line at word boundaries to fit width, falling back
// to hard breaks for unbroken runs.
func wrapLine(s string, width int) []string {
	if width <= 0 || runeLen(s) <= width {
		return []string{s}
	}
	var out []string
	line := ""
	for _, word := range strings.Split(s, " ") {
		for runeLen(word) > width {
			if line != "" {
				out = append(out, line)
				line = ""
			}
			runes := []rune(word)
			out = append(out, string(runes[:width]))
			word = string(runes[width:])
		}
		switch {
		case line == "":
			line = word
		case runeLen(line)+1+runeLen(word) <= width:
			line += " " + word
		default:
			out = append(out, line)
			line = word
		}
	}
	if line != "" || len(out) == 0 {
		out = append(out, line)
	}
	return out
}

func terminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return fallbackWidth
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// ANSI helpers. No-ops when color is off.

func (c *Console) bold(s string) string {
	if !c.color || s == "" {
		return s
	}
	return "\x1b[1m" + s + "\x1b[0m"
}

func (c *Console) blue(s string) string {
	if !c.color {
		return s
	}
	return "\x1b[34m" + s + "\x1b[0m"
}

func (c *Console) green(s string) string {
	if !c.color {
		return s
	}
	return "\x1b[32m" + s + "\x1b[0m"
}

func (c *Console) red(s string) string {
	if !c.color {
		return s
	}
	return "\x1b[31m" + s + "\x1b[0m"
}
