package domain

import "time"

// DelayPolicy turns a measured network round trip into the pause taken
// between the end of playback and re-opening the microphone.
type DelayPolicy struct {
	Base      time.Duration
	Threshold time.Duration
	Factor    float64
	Max       time.Duration
}

func DefaultDelayPolicy() DelayPolicy {
	return DelayPolicy{
		Base:      2000 * time.Millisecond,
		Threshold: 140 * time.Millisecond,
		Factor:    15,
		Max:       4500 * time.Millisecond,
	}
}

// Delay returns Base for fast links. Slow links get the round trip scaled by
// Factor, capped at Max.
func (p DelayPolicy) Delay(avgRTT time.Duration) time.Duration {
	if avgRTT < p.Threshold {
		return p.Base
	}
	scaled := time.Duration(float64(avgRTT) * p.Factor)
	if scaled > p.Max {
		return p.Max
	}
	return scaled
}
