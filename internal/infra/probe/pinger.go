package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// Pinger measures round-trip latency with ICMP echo requests.
type Pinger struct {
	privileged bool
	timeout    time.Duration
	interval   time.Duration
	logger     *slog.Logger
}

// NewPinger builds a prober. Unprivileged mode sends UDP echo requests and
// needs net.ipv4.ping_group_range on Linux; privileged mode needs raw sockets.
func NewPinger(privileged bool, timeout time.Duration, logger *slog.Logger) *Pinger {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Pinger{
		privileged: privileged,
		timeout:    timeout,
		interval:   500 * time.Millisecond,
		logger:     logger,
	}
}

// Probe pings host until minReplies answers arrive or the timeout expires and
// returns the average round-trip time. It fails when no reply arrives.
func (p *Pinger) Probe(ctx context.Context, host string, minReplies int) (time.Duration, error) {
	if minReplies < 1 {
		return 0, fmt.Errorf("invalid reply count %d", minReplies)
	}

	pinger, err := probing.NewPinger(host)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", host, err)
	}

	pinger.Count = minReplies
	pinger.Interval = p.interval
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(p.privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return 0, fmt.Errorf("pinging %s: %w", host, err)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, fmt.Errorf("no replies from %s after %d requests", host, stats.PacketsSent)
	}
	if stats.PacketsRecv < minReplies {
		p.logger.Warn("fewer replies than requested", "host", host, "received", stats.PacketsRecv, "wanted", minReplies)
	}

	p.logger.Info("latency probed",
		"host", host,
		"avg", stats.AvgRtt,
		"min", stats.MinRtt,
		"max", stats.MaxRtt,
		"loss", stats.PacketLoss,
	)

	return stats.AvgRtt, nil
}
