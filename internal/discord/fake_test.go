package discord

import (
	"context"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
)

// fakeBackend is an in-process Backend. It models the REST pagination
// contract: pages hold the oldest messages above the cursor, presented
// newest-first the way the real API serves them.
type fakeBackend struct {
	servers  []Server
	channels map[string][]Channel
	history  map[string][]*discordgo.Message

	dialErr     error
	openErr     error
	readyOnOpen bool
	onReady     func()

	pageErr   map[string]error
	pageDelay time.Duration
	blockPage bool

	closeCalls  atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		channels:    map[string][]Channel{},
		history:     map[string][]*discordgo.Message{},
		pageErr:     map[string]error{},
		readyOnOpen: true,
	}
}

// dial returns a DialFunc that hands out this backend and captures the
// ready callback for the test to trigger.
func (f *fakeBackend) dial() DialFunc {
	return func(token string, onReady func()) (Backend, error) {
		if f.dialErr != nil {
			return nil, f.dialErr
		}
		f.onReady = onReady
		return f, nil
	}
}

func (f *fakeBackend) Open() error {
	if f.openErr != nil {
		return f.openErr
	}
	if f.readyOnOpen && f.onReady != nil {
		f.onReady()
	}
	return nil
}

func (f *fakeBackend) Close() error {
	f.closeCalls.Add(1)
	return nil
}

func (f *fakeBackend) Servers(ctx context.Context) ([]Server, error) {
	return f.servers, nil
}

func (f *fakeBackend) TextChannels(ctx context.Context, serverID string) ([]Channel, error) {
	return f.channels[serverID], nil
}

func (f *fakeBackend) MessagePage(ctx context.Context, channelID, afterID string, limit int) ([]*discordgo.Message, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if cur <= peak || f.maxInFlight.CompareAndSwap(peak, cur) {
			break
		}
	}

	if f.blockPage {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.pageDelay > 0 {
		select {
		case <-time.After(f.pageDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.pageErr[channelID]; err != nil {
		return nil, err
	}

	var above []*discordgo.Message
	for _, m := range f.history[channelID] {
		if snowflakeLess(afterID, m.ID) {
			above = append(above, m)
		}
	}
	sort.Slice(above, func(i, j int) bool { return snowflakeLess(above[i].ID, above[j].ID) })
	if len(above) > limit {
		above = above[:limit]
	}
	// Newest first within the page.
	for i, j := 0, len(above)-1; i < j; i, j = i+1, j-1 {
		above[i], above[j] = above[j], above[i]
	}
	return above, nil
}

// msgAt builds a message whose ID encodes ts like a real snowflake, so the
// reader's cursor arithmetic works against fake history.
func msgAt(ts time.Time, seq int, author string, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        snowflakeSeq(ts, seq),
		Content:   content,
		Timestamp: ts,
		Author:    &discordgo.User{Username: author},
	}
}

func snowflakeSeq(ts time.Time, seq int) string {
	ms := ts.UnixMilli() - discordEpochMillis
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatUint(uint64(ms)<<22|uint64(seq), 10)
}
