package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

var readerWindow = Window{
	Start: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 6, 1, 16, 0, 0, 0, time.UTC),
}

func TestReadChannelHistoryFiltersAndSorts(t *testing.T) {
	fake := newFakeBackend()
	ch := Channel{ID: "c1", Name: "general"}
	base := readerWindow.Start

	bot := msgAt(base.Add(30*time.Minute), 1, "botuser", "automated")
	bot.Author.Bot = true
	empty := msgAt(base.Add(40*time.Minute), 2, "alice", "   ")
	attachOnly := msgAt(base.Add(50*time.Minute), 3, "bob", "")
	attachOnly.Attachments = []*discordgo.MessageAttachment{{Filename: "pic.png"}}
	tooEarly := msgAt(base.Add(-time.Hour), 4, "carol", "before the window")
	tooLate := msgAt(readerWindow.End.Add(time.Hour), 5, "carol", "after the window")

	fake.history["c1"] = []*discordgo.Message{
		msgAt(base.Add(2*time.Hour), 6, "alice", "second"),
		bot,
		empty,
		attachOnly,
		tooEarly,
		tooLate,
		msgAt(base.Add(time.Hour), 7, "bob", "first"),
	}

	res, err := readChannelHistory(context.Background(), fake, ch, readerWindow, 100)
	if err != nil {
		t.Fatalf("readChannelHistory: %v", err)
	}
	if len(res.Messages) != 3 {
		t.Fatalf("got %d messages, want 3: %+v", len(res.Messages), res.Messages)
	}
	for i := 1; i < len(res.Messages); i++ {
		if res.Messages[i].Timestamp.Before(res.Messages[i-1].Timestamp) {
			t.Errorf("messages not in ascending timestamp order")
		}
	}
	// The attachment-only message is the earliest survivor.
	if res.Messages[0].Author != "bob" || len(res.Messages[0].Attachments) != 1 {
		t.Errorf("attachment-only message should be kept and sorted first, got %+v", res.Messages[0])
	}
	if res.Messages[1].Content != "first" || res.Messages[2].Content != "second" {
		t.Errorf("unexpected order: %q then %q", res.Messages[1].Content, res.Messages[2].Content)
	}
}

func TestReadChannelHistoryPaginates(t *testing.T) {
	fake := newFakeBackend()
	ch := Channel{ID: "c1", Name: "general"}

	const total = 250
	var msgs []*discordgo.Message
	for i := range total {
		msgs = append(msgs, msgAt(readerWindow.Start.Add(time.Duration(i)*time.Second), i, "alice", fmt.Sprintf("msg %d", i)))
	}
	fake.history["c1"] = msgs

	res, err := readChannelHistory(context.Background(), fake, ch, readerWindow, 1000)
	if err != nil {
		t.Fatalf("readChannelHistory: %v", err)
	}
	if len(res.Messages) != total {
		t.Fatalf("got %d messages, want %d", len(res.Messages), total)
	}
	if res.Messages[0].Content != "msg 0" || res.Messages[total-1].Content != fmt.Sprintf("msg %d", total-1) {
		t.Errorf("pagination lost ordering: first %q last %q", res.Messages[0].Content, res.Messages[total-1].Content)
	}
}

func TestReadChannelHistoryCapKeepsEarliest(t *testing.T) {
	fake := newFakeBackend()
	ch := Channel{ID: "c1", Name: "general"}

	for i := range 15 {
		fake.history["c1"] = append(fake.history["c1"],
			msgAt(readerWindow.Start.Add(time.Duration(i)*time.Minute), i, "alice", fmt.Sprintf("msg %d", i)))
	}

	res, err := readChannelHistory(context.Background(), fake, ch, readerWindow, 10)
	if err != nil {
		t.Fatalf("readChannelHistory: %v", err)
	}
	if len(res.Messages) != 10 {
		t.Fatalf("got %d messages, want 10", len(res.Messages))
	}
	if res.Messages[0].Content != "msg 0" || res.Messages[9].Content != "msg 9" {
		t.Errorf("cap should keep the earliest messages, got first %q last %q",
			res.Messages[0].Content, res.Messages[9].Content)
	}
}

func TestReadChannelHistoryWindowBoundaries(t *testing.T) {
	fake := newFakeBackend()
	ch := Channel{ID: "c1", Name: "general"}

	fake.history["c1"] = []*discordgo.Message{
		msgAt(readerWindow.Start, 1, "alice", "at start"),
		msgAt(readerWindow.End, 2, "alice", "at end"),
	}

	res, err := readChannelHistory(context.Background(), fake, ch, readerWindow, 100)
	if err != nil {
		t.Fatalf("readChannelHistory: %v", err)
	}
	if len(res.Messages) != 1 || res.Messages[0].Content != "at start" {
		t.Fatalf("window should be [start, end), got %+v", res.Messages)
	}
}

func TestReadChannelHistoryCapsMessageFields(t *testing.T) {
	fake := newFakeBackend()
	ch := Channel{ID: "c1", Name: "general"}

	m := msgAt(readerWindow.Start.Add(time.Minute), 1, strings.Repeat("n", maxAuthorRunes+20), strings.Repeat("x", maxContentRunes+5))
	for i := range 13 {
		m.Attachments = append(m.Attachments, &discordgo.MessageAttachment{Filename: fmt.Sprintf("file%d.png", i)})
	}
	for i := range 25 {
		m.Reactions = append(m.Reactions, &discordgo.MessageReactions{
			Count: i + 1,
			Emoji: &discordgo.Emoji{Name: "👍"},
		})
	}
	fake.history["c1"] = []*discordgo.Message{m}

	res, err := readChannelHistory(context.Background(), fake, ch, readerWindow, 100)
	if err != nil {
		t.Fatalf("readChannelHistory: %v", err)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(res.Messages))
	}
	got := res.Messages[0]

	if !strings.HasSuffix(got.Content, truncatedMarker) {
		t.Errorf("content should end with the truncation marker")
	}
	if want := maxContentRunes + len(truncatedMarker); len(got.Content) != want {
		t.Errorf("content length = %d, want %d", len(got.Content), want)
	}
	if len(got.Author) != maxAuthorRunes {
		t.Errorf("author length = %d, want %d", len(got.Author), maxAuthorRunes)
	}
	if len(got.Attachments) != maxAttachments+1 {
		t.Fatalf("got %d attachment entries, want %d", len(got.Attachments), maxAttachments+1)
	}
	if got.Attachments[maxAttachments] != "...and 3 more" {
		t.Errorf("overflow marker = %q", got.Attachments[maxAttachments])
	}
	if len(got.Reactions) != maxReactions {
		t.Errorf("got %d reactions, want %d", len(got.Reactions), maxReactions)
	}
}

func TestReadChannelHistoryPermissionDenied(t *testing.T) {
	fake := newFakeBackend()
	ch := Channel{ID: "c1", Name: "private"}
	fake.pageErr["c1"] = ErrPermissionDenied

	res, err := readChannelHistory(context.Background(), fake, ch, readerWindow, 100)
	if err != nil {
		t.Fatalf("permission denied should not be an error, got %v", err)
	}
	if len(res.Messages) != 0 {
		t.Errorf("got %d messages, want 0", len(res.Messages))
	}
}

func TestReadChannelHistoryPropagatesBackendErrors(t *testing.T) {
	fake := newFakeBackend()
	ch := Channel{ID: "c1", Name: "general"}
	boom := errors.New("gateway hiccup")
	fake.pageErr["c1"] = boom

	_, err := readChannelHistory(context.Background(), fake, ch, readerWindow, 100)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the backend error", err)
	}
}

func TestReadChannelHistoryHonorsCancellation(t *testing.T) {
	fake := newFakeBackend()
	ch := Channel{ID: "c1", Name: "general"}
	fake.blockPage = true

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := readChannelHistory(ctx, fake, ch, readerWindow, 100)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}
