package digest

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestConsolePrintf(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false, false)

	c.Printf("Found %d messages across %d channels.\n", 3, 2)
	if got := buf.String(); got != "Found 3 messages across 2 channels.\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestConsolePrintfQuiet(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true, false)

	c.Printf("should not appear\n")
	if buf.Len() != 0 {
		t.Errorf("quiet console wrote %q", buf.String())
	}
}

func TestConsoleStatusSuccess(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false, false)

	err := c.Status("Testing operation", func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Testing operation... ") {
		t.Errorf("missing label in %q", out)
	}
	if !strings.Contains(out, "done (") || !strings.Contains(out, "s)") {
		t.Errorf("missing success timing in %q", out)
	}
}

func TestConsoleStatusFailure(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false, false)

	boom := errors.New("boom")
	err := c.Status("Testing operation", func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error back, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "failed (") || !strings.Contains(out, "s)") {
		t.Errorf("missing failure timing in %q", out)
	}
}

func TestConsoleStatusQuietStillReportsError(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true, false)

	boom := errors.New("boom")
	if err := c.Status("Testing", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected error in quiet mode, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("quiet status wrote %q", buf.String())
	}
}

func TestConsolePanelPlain(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false, false)

	c.Panel(PanelTitle, "# Summary\n\nAlice shipped the **release**.")

	out := buf.String()
	if !strings.Contains(out, "Discord Digest") {
		t.Errorf("missing panel title in %q", out)
	}
	for _, want := range []string{"╭", "╮", "│", "╰", "╯", "# Summary", "Alice shipped the **release**."} {
		if !strings.Contains(out, want) {
			t.Errorf("panel missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("expected no ANSI escapes without color")
	}
}

func TestConsolePanelColor(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false, true)

	c.Panel(PanelTitle, "# Summary\n\n**bold** text")

	out := buf.String()
	if !strings.Contains(out, "\x1b[34m") {
		t.Error("expected blue border escapes")
	}
	if !strings.Contains(out, "\x1b[1m") {
		t.Error("expected bold escapes for markdown")
	}
}

func TestConsolePanelQuiet(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true, false)

	c.Panel(PanelTitle, "content")
	if buf.Len() != 0 {
		t.Errorf("quiet panel wrote %q", buf.String())
	}
}

func TestConsolePanelPadsLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false, false)

	c.Panel("T", "short")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) < 4 {
		t.Fatalf("expected bordered output, got %d lines", len(lines))
	}
	width := runeLen(lines[0])
	for i, line := range lines {
		if runeLen(line) != width {
			t.Errorf("line %d width %d != %d: %q", i, runeLen(line), width, line)
		}
	}
}

func TestWrapLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  []string
	}{
		{name: "fits", input: "short line", width: 20, want: []string{"short line"}},
		{name: "empty", input: "", width: 10, want: []string{""}},
		{
			name:  "breaks at spaces",
			input: "alpha beta gamma delta",
			width: 11,
			want:  []string{"alpha beta", "gamma delta"},
		},
		{
			name:  "hard breaks long runs",
			input: "abcdefghij",
			width: 4,
			want:  []string{"abcd", "efgh", "ij"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapLine(tt.input, tt.width)
			if len(got) != len(tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
