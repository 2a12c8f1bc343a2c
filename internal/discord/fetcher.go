package discord

import (
	"context"
	"sync"

	"github.com/fpt/discord-chat/internal/audit"
	"github.com/fpt/discord-chat/pkg/logger"
)

// permitPool caps how many channel readers run at once. Tokens live in a
// buffered channel so acquisition stays cancellable.
type permitPool struct {
	slots chan struct{}
}

func newPermitPool(size int) *permitPool {
	if size < 1 {
		size = 1
	}
	return &permitPool{slots: make(chan struct{}, size)}
}

func (p *permitPool) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *permitPool) release() {
	<-p.slots
}

// fetchChannels reads every channel concurrently under the permit pool and
// waits for all readers to finish. A single channel's failure is audited
// and its result omitted; cancellation aborts the whole batch.
func fetchChannels(ctx context.Context, b Backend, channels []Channel, w Window, cfg Config, aud *audit.Logger, log *logger.Logger) ([]ChannelResult, error) {
	pool := newPermitPool(cfg.MaxConcurrentChannels)
	aud.RateLimitEngaged("Discord", cfg.MaxConcurrentChannels)

	results := make([]ChannelResult, len(channels))
	errs := make([]error, len(channels))

	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pool.acquire(ctx); err != nil {
				errs[i] = err
				return
			}
			defer pool.release()
			results[i], errs[i] = readChannelHistory(ctx, b, ch, w, cfg.MaxMessagesPerChannel)
		}()
	}
	wg.Wait()

	out := make([]ChannelResult, 0, len(channels))
	for i, ch := range channels {
		if err := errs[i]; err != nil {
			if isCancellation(err) {
				return nil, err
			}
			log.Warn("channel fetch failed", "channel", ch.Name, "error", err)
			aud.ChannelFailure(ch.Name, err.Error())
			continue
		}
		out = append(out, results[i])
	}
	return out, nil
}
