package compose

import (
	"fmt"
	"time"
)

// FreshnessInfo describes how stale one projection is. A projection with no
// rows yet reports lastUpdate "never" and LagMs -1 rather than an error.
type FreshnessInfo struct {
	LastUpdate string `json:"lastUpdate"`
	LagMs      int64  `json:"lagMs"`
	LagHuman   string `json:"lagHuman"`
}

func BuildFreshness(lastUpdate *time.Time, now time.Time) FreshnessInfo {
	if lastUpdate == nil {
		return FreshnessInfo{LastUpdate: "never", LagMs: -1, LagHuman: "N/A"}
	}
	lag := now.Sub(*lastUpdate).Milliseconds()
	return FreshnessInfo{
		LastUpdate: lastUpdate.UTC().Format(time.RFC3339Nano),
		LagMs:      lag,
		LagHuman:   FormatLag(lag),
	}
}

// FormatLag renders milliseconds for humans: ms below a second, seconds below
// a minute, minutes above.
func FormatLag(lagMs int64) string {
	switch {
	case lagMs < 0:
		return "N/A"
	case lagMs < 1000:
		return fmt.Sprintf("%dms", lagMs)
	case lagMs < 60_000:
		return fmt.Sprintf("%.1fs", float64(lagMs)/1000)
	default:
		return fmt.Sprintf("%.1fm", float64(lagMs)/60_000)
	}
}

// MaxLag computes the staleness bound across the projections that are
// present; nil entries (absent projections) contribute nothing.
func MaxLag(now time.Time, lastUpdates ...*time.Time) int64 {
	var maxLag int64
	for _, lu := range lastUpdates {
		if lu == nil {
			continue
		}
		if lag := now.Sub(*lu).Milliseconds(); lag > maxLag {
			maxLag = lag
		}
	}
	return maxLag
}
