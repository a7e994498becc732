package digest

import (
	"context"
	"log"
	"time"
)

type Sweeper interface {
	Sweep(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

const (
	sweepGrace = time.Minute
	sweepBatch = 100
)

// SweepJob delivers outbox entries the post-commit hook never picked up.
func SweepJob(s Sweeper) func(context.Context) {
	return func(ctx context.Context) {
		n, err := s.Sweep(ctx, sweepGrace, sweepBatch)
		if err != nil {
			log.Printf("outbox sweep error: %v", err)
			return
		}
		if n > 0 {
			log.Printf("outbox sweep delivered=%d", n)
		}
	}
}

func DigestJob(src LoadSource, poster Poster, channelID string, skipEmpty bool) func(context.Context) {
	return func(ctx context.Context) {
		msg, err := PostDigest(ctx, src, poster, channelID, skipEmpty)
		if err != nil {
			log.Printf("digest post error: %v", err)
			return
		}
		log.Printf("digest complete: %d chars", len(msg))
	}
}
