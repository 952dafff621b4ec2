package simulation

import (
	"math"
	"math/rand/v2"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
	"github.com/nvandessel/dasstrial/internal/scoring"
)

// Simulator draws item responses for a validated Config.
type Simulator struct {
	config  Config
	sampler categorical
}

// New validates cfg and creates a simulator for it.
func New(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		config:  cfg,
		sampler: newCategorical(cfg.Weights),
	}, nil
}

// Participants returns the cohort in enumeration order: every intervention
// participant, then every control participant.
func (s *Simulator) Participants() []models.Participant {
	out := make([]models.Participant, 0, 2*s.config.ParticipantsPerGroup)
	for _, g := range models.AllGroups() {
		for seq := 1; seq <= s.config.ParticipantsPerGroup; seq++ {
			out = append(out, models.Participant{ID: models.ParticipantID(g, seq), Group: g})
		}
	}
	return out
}

// Responses generates one ItemResponse per (participant, timepoint, question).
// Each call starts a fresh random source from the configured seed, so repeated
// calls return identical results.
func (s *Simulator) Responses() []models.ItemResponse {
	rng := rand.New(rand.NewPCG(s.config.Seed, s.config.Seed))

	participants := s.Participants()
	out := make([]models.ItemResponse, 0, len(participants)*len(s.config.Timepoints)*constants.NumQuestions)

	for _, p := range participants {
		treated := p.Group == models.GroupIntervention
		for _, tp := range s.config.Timepoints {
			for q := 1; q <= constants.NumQuestions; q++ {
				value := s.sampler.draw(rng)
				if treated && tp != models.TimepointBaseline {
					value = ApplyTreatmentEffect(value, s.config.TreatmentEffect)
				}
				out = append(out, models.ItemResponse{
					Participant: p,
					Timepoint:   tp,
					Question:    q,
					Value:       value,
				})
			}
		}
	}
	return out
}

// ApplyTreatmentEffect scales an item value by (1 - effect), rounds half to
// even and clamps the result to the item range.
func ApplyTreatmentEffect(value int, effect float64) int {
	v := int(math.RoundToEven(float64(value) * (1 - effect)))
	return max(0, min(constants.MaxItemScore, v))
}

// Simulate runs the simulator and aggregates the responses into wide records,
// one per participant and timepoint.
func Simulate(cfg Config, partition scoring.Partition) ([]models.WideRecord, error) {
	sim, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return scoring.Aggregate(sim.Responses(), partition)
}
