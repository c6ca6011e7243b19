package models

// OIPoint is an open-interest observation.
type OIPoint struct {
	Timestamp int64 `json:"timestamp"` // ms
	// OpenInterest is in contracts or coins depending on the venue.
	OpenInterest float64 `json:"openInterest"`
	// OpenInterestValue is the notional value when the venue reports it.
	OpenInterestValue float64 `json:"openInterestValue,omitempty"`
}

func (p OIPoint) Time() int64 { return p.Timestamp }
