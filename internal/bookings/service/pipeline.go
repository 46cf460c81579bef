package service

import (
	"context"
	"fmt"

	"slotkeeper/pkg/model"
)

// State is a stage of a booking commit.
type State string

const (
	StateLocking      State = "locking"
	StateChecking     State = "checking"
	StateInserting    State = "inserting"
	StateInvalidating State = "invalidating"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// commit carries the data shared by the steps of one booking commit.
type commit struct {
	req         model.CommitRequest
	resources   []string
	lock        *model.SlotLock
	reservation *model.Reservation
	state       State
}

type step struct {
	state   State
	execute func(ctx context.Context, c *commit) error
}

func newStep(state State, execute func(ctx context.Context, c *commit) error) step {
	return step{state: state, execute: execute}
}

// runSteps executes steps in order and stops at the first failure, leaving
// c.state on the failed step.
func runSteps(ctx context.Context, c *commit, steps ...step) error {
	for _, s := range steps {
		c.state = s.state
		if err := s.execute(ctx, c); err != nil {
			return fmt.Errorf("%s step failed: %w", s.state, err)
		}
	}
	return nil
}
