package domain

import "fmt"

// TradeSettings is the immutable parameter bundle driving one analysis run
// over a [StartTime, EndTime] window of paired orderbook history.
type TradeSettings struct {
	MM1Name        string
	MM2Name        string
	TargetCurrency string
	StartTime      int64
	EndTime        int64

	// Division cuts the analysis window into equal sub-ranges for slicing.
	Division int
	// Depth bounds how many orderbook levels each evaluation consults.
	Depth int
	// ConsecutionTime is the minimum opportunity-window length in seconds.
	ConsecutionTime int64

	IsVirtual bool
}

// Validate checks the well-formedness constraints the analysis relies on.
func (s TradeSettings) Validate() error {
	if s.MM1Name == "" || s.MM2Name == "" {
		return fmt.Errorf("trade settings: both market names are required")
	}
	if s.MM1Name == s.MM2Name {
		return fmt.Errorf("trade settings: mm1 and mm2 must differ")
	}
	if s.TargetCurrency == "" {
		return fmt.Errorf("trade settings: target currency is required")
	}
	if s.EndTime <= s.StartTime {
		return fmt.Errorf("trade settings: end time %d not after start time %d", s.EndTime, s.StartTime)
	}
	if s.Division < 1 {
		return fmt.Errorf("trade settings: division must be >= 1, got %d", s.Division)
	}
	if s.Depth < 1 {
		return fmt.Errorf("trade settings: depth must be >= 1, got %d", s.Depth)
	}
	if s.ConsecutionTime < 0 {
		return fmt.Errorf("trade settings: consecution time must be >= 0, got %d", s.ConsecutionTime)
	}
	return nil
}
