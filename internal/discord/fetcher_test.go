package discord

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpt/discord-chat/internal/audit"
)

func auditToFile(t *testing.T) (*audit.Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "security.log")
	aud, err := audit.New(path)
	if err != nil {
		t.Fatalf("audit.New: %v", err)
	}
	return aud, path
}

func seededChannels(fake *fakeBackend, n int, messagesEach int) []Channel {
	var channels []Channel
	for i := range n {
		ch := Channel{ID: fmt.Sprintf("c%d", i), Name: fmt.Sprintf("chan-%d", i)}
		channels = append(channels, ch)
		for j := range messagesEach {
			fake.history[ch.ID] = append(fake.history[ch.ID],
				msgAt(readerWindow.Start.Add(time.Duration(j)*time.Minute), j, "alice", fmt.Sprintf("m%d", j)))
		}
	}
	return channels
}

func TestFetchChannelsRespectsConcurrencyLimit(t *testing.T) {
	fake := newFakeBackend()
	fake.pageDelay = 10 * time.Millisecond
	channels := seededChannels(fake, 8, 3)

	cfg := Config{MaxConcurrentChannels: 2, MaxMessagesPerChannel: 100}.withDefaults()
	results, err := fetchChannels(context.Background(), fake, channels, readerWindow, cfg, audit.Nop(), testLogger())
	if err != nil {
		t.Fatalf("fetchChannels: %v", err)
	}
	if len(results) != 8 {
		t.Fatalf("got %d results, want 8", len(results))
	}
	if peak := fake.maxInFlight.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestFetchChannelsIsolatesSingleFailure(t *testing.T) {
	fake := newFakeBackend()
	channels := seededChannels(fake, 5, 2)
	fake.pageErr["c2"] = errors.New("gateway hiccup")

	aud, path := auditToFile(t)
	cfg := Config{}.withDefaults()
	results, err := fetchChannels(context.Background(), fake, channels, readerWindow, cfg, aud, testLogger())
	if err != nil {
		t.Fatalf("fetchChannels: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for _, r := range results {
		if r.Channel.ID == "c2" {
			t.Errorf("failed channel should be omitted")
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(data), "per_channel_failure") {
		t.Errorf("audit log missing per_channel_failure event:\n%s", data)
	}
}

func TestFetchChannelsAuditsRateLimitOnce(t *testing.T) {
	fake := newFakeBackend()
	channels := seededChannels(fake, 3, 1)

	aud, path := auditToFile(t)
	cfg := Config{}.withDefaults()
	if _, err := fetchChannels(context.Background(), fake, channels, readerWindow, cfg, aud, testLogger()); err != nil {
		t.Fatalf("fetchChannels: %v", err)
	}

	data, _ := os.ReadFile(path)
	if got := strings.Count(string(data), "rate_limit_engaged"); got != 1 {
		t.Errorf("rate_limit_engaged logged %d times, want 1", got)
	}
}

func TestFetchChannelsAbortsOnCancellation(t *testing.T) {
	fake := newFakeBackend()
	fake.blockPage = true
	channels := seededChannels(fake, 3, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cfg := Config{}.withDefaults()
	_, err := fetchChannels(ctx, fake, channels, readerWindow, cfg, audit.Nop(), testLogger())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestPermitPoolAcquireRelease(t *testing.T) {
	pool := newPermitPool(1)
	if err := pool.acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := pool.acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second acquire should block until deadline, got %v", err)
	}

	pool.release()
	if err := pool.acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}
