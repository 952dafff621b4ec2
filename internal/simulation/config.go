package simulation

import (
	"fmt"
	"math"
	"slices"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
)

// Config holds the parameters of a simulated trial.
type Config struct {
	// ParticipantsPerGroup is the number of participants in each arm. Must be >= 1.
	ParticipantsPerGroup int

	// Timepoints are the assessment occasions, in chronological order.
	Timepoints []models.Timepoint

	// Weights is the probability of each item value 0..3. Must sum to 1.
	Weights []float64

	// TreatmentEffect is the proportional item reduction for the intervention
	// group after baseline. Range: [0, 1).
	TreatmentEffect float64

	// Seed initializes the random source.
	Seed uint64
}

// DefaultConfig returns the reference trial design: 20 participants per arm,
// five timepoints, a 20% treatment effect and seed 42.
func DefaultConfig() Config {
	return Config{
		ParticipantsPerGroup: constants.DefaultParticipantsPerGroup,
		Timepoints:           models.AllTimepoints(),
		Weights:              constants.DefaultResponseWeights(),
		TreatmentEffect:      constants.DefaultTreatmentEffect,
		Seed:                 constants.DefaultSeed,
	}
}

// Validate checks the configuration and returns a *models.ConfigurationError
// describing the first problem found.
func (c Config) Validate() error {
	if c.ParticipantsPerGroup < 1 {
		return &models.ConfigurationError{
			Field:  "participants_per_group",
			Reason: fmt.Sprintf("must be at least 1, got %d", c.ParticipantsPerGroup),
		}
	}

	if c.TreatmentEffect < 0 || c.TreatmentEffect >= 1 || math.IsNaN(c.TreatmentEffect) {
		return &models.ConfigurationError{
			Field:  "treatment_effect",
			Reason: fmt.Sprintf("must be in [0, 1), got %v", c.TreatmentEffect),
		}
	}

	if err := validateWeights(c.Weights); err != nil {
		return err
	}

	return validateTimepoints(c.Timepoints)
}

func validateWeights(weights []float64) error {
	if len(weights) != constants.MaxItemScore+1 {
		return &models.ConfigurationError{
			Field:  "response_weights",
			Reason: fmt.Sprintf("need %d weights (one per value 0..%d), got %d", constants.MaxItemScore+1, constants.MaxItemScore, len(weights)),
		}
	}

	sum := 0.0
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return &models.ConfigurationError{
				Field:  "response_weights",
				Reason: fmt.Sprintf("weight for value %d must be a non-negative number, got %v", i, w),
			}
		}
		sum += w
	}

	if math.Abs(sum-1) > constants.WeightTolerance {
		return &models.ConfigurationError{
			Field:  "response_weights",
			Reason: fmt.Sprintf("weights must sum to 1, got %v", sum),
		}
	}
	return nil
}

func validateTimepoints(tps []models.Timepoint) error {
	if len(tps) == 0 {
		return &models.ConfigurationError{Field: "timepoints", Reason: "at least one timepoint is required"}
	}
	for i, tp := range tps {
		if !tp.Valid() {
			return &models.ConfigurationError{
				Field:  "timepoints",
				Reason: fmt.Sprintf("unknown timepoint %s", tp),
			}
		}
		if i > 0 && tp <= tps[i-1] {
			return &models.ConfigurationError{
				Field:  "timepoints",
				Reason: fmt.Sprintf("timepoints must be unique and chronological, %s follows %s", tp, tps[i-1]),
			}
		}
	}
	// Every participant is observed at all five occasions.
	for _, tp := range models.AllTimepoints() {
		if !slices.Contains(tps, tp) {
			return &models.ConfigurationError{
				Field:  "timepoints",
				Reason: fmt.Sprintf("timepoint %s is missing", tp),
			}
		}
	}
	return nil
}
