// Package simulation generates synthetic DASS-21 item responses for a
// two-arm longitudinal trial.
//
// Responses are drawn from a fixed categorical distribution over {0,1,2,3}.
// Intervention-group items after baseline are reduced by a proportional
// treatment effect. The simulator is deterministic: for a given Config the
// same seed always yields the same responses, because draws are made in a
// fixed enumeration order (group, participant, timepoint, question) and one
// draw is consumed per item.
//
// Usage:
//
//	cfg := simulation.DefaultConfig()
//	cfg.Seed = 7
//	wide, err := simulation.Simulate(cfg, scoring.DefaultPartition())
//	if err != nil {
//	    return err
//	}
package simulation
