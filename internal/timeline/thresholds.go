package timeline

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Thresholds partitions the itinerary into regimes and sets the boundary
// tolerances used by the resolver.
type Thresholds struct {
	// Waypoints ranked below LaunchOrdinal form the checkpoint regime; the
	// first waypoint at LaunchOrdinal is the launch.
	LaunchOrdinal int
	// From RevealOrdinal on, destination names and delivery counts are shown.
	RevealOrdinal int `validate:"gtefield=LaunchOrdinal"`
	// Waypoint whose arrival ends the journey; the last waypoint if absent.
	CompletionOrdinal int
	// Tolerance applied to every window boundary.
	Epsilon time.Duration `validate:"gte=0s"`
	// Length of the synthesized launch window when the recorded one collapses.
	MinLaunchWindow time.Duration `validate:"gt=0s"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		LaunchOrdinal:     76,
		RevealOrdinal:     77,
		CompletionOrdinal: 1048,
		Epsilon:           500 * time.Millisecond,
		MinLaunchWindow:   8 * time.Second,
	}
}

var validate = validator.New()

// Validate checks the thresholds are internally consistent.
func (t Thresholds) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	return nil
}
