package burst

import "github.com/OFFIS-RIT/pulse/pkg/timeline"

// Params controls the sliding window scan.
type Params struct {
	WindowHours     float64 `json:"window_hours" yaml:"window_hours"`
	MinEvents       int     `json:"min_events" yaml:"min_events"`
	MinParticipants int     `json:"min_participants" yaml:"min_participants"`
	MaxParticipants int     `json:"max_participants" yaml:"max_participants"`
}

// DefaultParams returns the fixed parameters: 8 events within 48 hours
// involving 3 to 8 people.
func DefaultParams() Params {
	return Params{WindowHours: 48, MinEvents: 8, MinParticipants: 3, MaxParticipants: 8}
}

// FallbackParams is used when adaptive parameters cannot be derived from
// the data.
func FallbackParams() Params {
	return Params{WindowHours: 168, MinEvents: 5, MinParticipants: 2, MaxParticipants: 15}
}

type densityTier struct {
	below  float64
	params Params
}

// tiers are checked in order; the last one has no upper bound.
var tiers = []densityTier{
	{below: 0.1, params: Params{WindowHours: 30 * 24, MinEvents: 3, MinParticipants: 2, MaxParticipants: 20}},
	{below: 0.5, params: Params{WindowHours: 14 * 24, MinEvents: 5, MinParticipants: 3, MaxParticipants: 15}},
}

var denseParams = Params{WindowHours: 7 * 24, MinEvents: 8, MinParticipants: 3, MaxParticipants: 10}

// AdaptiveParams derives scan parameters from event density (events per
// day). Sparse projects get wide windows and low thresholds, dense ones get
// narrow windows. An empty dataset yields FallbackParams.
func AdaptiveParams(stats timeline.Stats) Params {
	if stats.Events == 0 {
		return FallbackParams()
	}
	for _, tier := range tiers {
		if stats.Density < tier.below {
			return tier.params
		}
	}
	return denseParams
}
