package models

import (
	"fmt"
	"time"
)

const (
	TwoHoursMs   = int64(2 * time.Hour / time.Millisecond)
	FourHoursMs  = int64(4 * time.Hour / time.Millisecond)
	EightHoursMs = int64(8 * time.Hour / time.Millisecond)
)

// Timeframe labels a candle width.
type Timeframe string

const (
	TF1h Timeframe = "1h"
	TF4h Timeframe = "4h"
	TF8h Timeframe = "8h"
)

var timeframeDurations = map[Timeframe]time.Duration{
	TF1h: time.Hour,
	TF4h: 4 * time.Hour,
	TF8h: 8 * time.Hour,
}

func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeDurations[tf]; !ok {
		return "", fmt.Errorf("unsupported timeframe %q", s)
	}
	return tf, nil
}

// Duration returns zero for unknown timeframes.
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

func (tf Timeframe) Millis() int64 {
	return int64(tf.Duration() / time.Millisecond)
}

func (tf Timeframe) String() string {
	return string(tf)
}

// AlignTime floors ts (ms epoch) onto a grid of intervalMs.
func AlignTime(ts, intervalMs int64) int64 {
	if intervalMs <= 0 {
		return ts
	}
	return ts / intervalMs * intervalMs
}

// CurrentCandleTime returns the open time of the tf candle containing now.
func CurrentCandleTime(tf Timeframe, now time.Time) int64 {
	return AlignTime(now.UnixMilli(), tf.Millis())
}
