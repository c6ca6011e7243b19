package processor

import (
	"sort"

	"cryptosnap/internal/models"
)

// Cadence is the spacing between an exchange's funding events.
type Cadence int64

const (
	Cadence2h Cadence = Cadence(models.TwoHoursMs)
	Cadence4h Cadence = Cadence(models.FourHoursMs)
	Cadence8h Cadence = Cadence(models.EightHoursMs)
)

func (c Cadence) String() string {
	switch c {
	case Cadence2h:
		return "2h"
	case Cadence4h:
		return "4h"
	default:
		return "8h"
	}
}

// SortObservations orders events by funding time in place.
func SortObservations(events []models.FundingObservation) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].FundingTime < events[j].FundingTime
	})
}

// DedupObservations keeps one event per funding time, the later one winning,
// and returns them ascending.
func DedupObservations(events []models.FundingObservation) []models.FundingObservation {
	byTime := make(map[int64]float64, len(events))
	for _, e := range events {
		byTime[e.FundingTime] = e.FundingRate
	}
	out := make([]models.FundingObservation, 0, len(byTime))
	for ts, rate := range byTime {
		out = append(out, models.FundingObservation{FundingTime: ts, FundingRate: rate})
	}
	SortObservations(out)
	return out
}

// DedupSort collapses candles sharing an open time, the later one winning,
// and returns them ascending.
func DedupSort(candles []models.NormalizedCandle) []models.NormalizedCandle {
	byTime := make(map[int64]float64, len(candles))
	for _, c := range candles {
		byTime[c.OpenTime] = c.FundingRate
	}
	out := make([]models.NormalizedCandle, 0, len(byTime))
	for ts, rate := range byTime {
		out = append(out, models.NormalizedCandle{OpenTime: ts, FundingRate: rate})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime < out[j].OpenTime })
	return out
}

// replicate8h places rate on both 4h halves of the 8h bucket containing ts.
func replicate8h(ts int64, rate float64) []models.NormalizedCandle {
	start := models.AlignTime(ts, models.EightHoursMs)
	return []models.NormalizedCandle{
		{OpenTime: start, FundingRate: rate},
		{OpenTime: start + models.FourHoursMs, FundingRate: rate},
	}
}

// NormalizeBinance maps Binance's 8h funding events onto the 4h grid.
func NormalizeBinance(events []models.FundingObservation) []models.NormalizedCandle {
	sorted := append([]models.FundingObservation(nil), events...)
	SortObservations(sorted)

	out := make([]models.NormalizedCandle, 0, 2*len(sorted))
	for _, e := range sorted {
		out = append(out, replicate8h(e.FundingTime, e.FundingRate)...)
	}
	return DedupSort(out)
}

// DetectCadence classifies the gap between the two most recent events of an
// ascending series. A gap of exactly 3h or 6h resolves to the coarser cadence.
func DetectCadence(sorted []models.FundingObservation) (Cadence, bool) {
	n := len(sorted)
	if n < 2 {
		return 0, false
	}
	delta := sorted[n-1].FundingTime - sorted[n-2].FundingTime
	switch {
	case delta*2 < 3*models.TwoHoursMs:
		return Cadence2h, true
	case delta*2 < 3*models.FourHoursMs:
		return Cadence4h, true
	default:
		return Cadence8h, true
	}
}

// DistributeBybit maps an ascending, deduplicated Bybit window onto the 4h
// grid according to its detected cadence. Fewer than two events yield an
// empty series.
func DistributeBybit(sorted []models.FundingObservation) []models.NormalizedCandle {
	cadence, ok := DetectCadence(sorted)
	if !ok {
		return []models.NormalizedCandle{}
	}

	out := make([]models.NormalizedCandle, 0, 2*len(sorted))
	switch cadence {
	case Cadence8h:
		for _, e := range sorted {
			out = append(out, replicate8h(e.FundingTime, e.FundingRate)...)
		}
	case Cadence4h:
		for _, e := range sorted {
			out = append(out, models.NormalizedCandle{
				OpenTime:    models.AlignTime(e.FundingTime, models.FourHoursMs),
				FundingRate: e.FundingRate,
			})
		}
	case Cadence2h:
		sums := make(map[int64]float64)
		counts := make(map[int64]int)
		for _, e := range sorted {
			bucket := models.AlignTime(e.FundingTime, models.FourHoursMs)
			sums[bucket] += e.FundingRate
			counts[bucket]++
		}
		for bucket, sum := range sums {
			out = append(out, models.NormalizedCandle{OpenTime: bucket, FundingRate: sum / float64(counts[bucket])})
		}
	}
	return DedupSort(out)
}

// LastN returns the most recent n events of an ascending series.
func LastN(sorted []models.FundingObservation, n int) []models.FundingObservation {
	if n <= 0 || len(sorted) <= n {
		return sorted
	}
	return sorted[len(sorted)-n:]
}
