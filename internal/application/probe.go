package application

import (
	"context"
	"time"
)

type LatencyProber interface {
	Probe(ctx context.Context, host string, minReplies int) (time.Duration, error)
}
