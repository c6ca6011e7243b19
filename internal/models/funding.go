package models

// FundingObservation is one exchange reported funding event.
type FundingObservation struct {
	FundingTime int64   `json:"fundingTime"` // ms
	FundingRate float64 `json:"fundingRate"`
}

// NormalizedCandle is the funding rate applying to the 4h candle opening at
// OpenTime. Within a series OpenTime is unique and ascending.
type NormalizedCandle struct {
	OpenTime    int64   `json:"openTime"`
	FundingRate float64 `json:"fundingRate"`
}

func (c NormalizedCandle) Time() int64 { return c.OpenTime }
