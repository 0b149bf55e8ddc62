// Package window computes the historical request window for the feed.
//
// The feed publishes with a delay, so the window always trails the wall
// clock. Cross-border flow modules are published later and at hourly
// granularity, which gives them a longer lag and a wider window.
package window

import (
	"time"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
)

const (
	CrossBorderMin = 31000000
	CrossBorderMax = 31000999

	defaultLag    = 90 * time.Minute
	defaultSpan   = 15 * time.Minute
	crossLag      = 120 * time.Minute
	crossSpan     = 60 * time.Minute
	roundInterval = time.Hour
)

// IsCrossBorder reports whether ids is the single-module cross-border case.
func IsCrossBorder(ids []int) bool {
	return len(ids) == 1 && ids[0] >= CrossBorderMin && ids[0] <= CrossBorderMax
}

// Calculate returns the window to request for ids at wall-clock time now.
// now is rounded to the nearest hour, halfway values rounding up.
func Calculate(ids []int, now time.Time) models.TimeWindow {
	lag, span := defaultLag, defaultSpan
	if IsCrossBorder(ids) {
		lag, span = crossLag, crossSpan
	}

	to := now.Round(roundInterval).Add(-lag)
	return models.TimeWindow{From: to.Add(-span), To: to}
}
