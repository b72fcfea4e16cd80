package threshold

import (
	"context"
	"fmt"
	"time"
)

// Resolver picks the profile in force for a device at a point in time.
type Resolver struct {
	finder AssignmentFinder
}

// NewResolver creates a resolver backed by finder.
func NewResolver(finder AssignmentFinder) *Resolver {
	return &Resolver{finder: finder}
}

// Resolve returns the profile of the active assignment with the latest
// effective start, or nil when none is active. Ties on start go to the
// default assignment, then to the most recently created one.
func (r *Resolver) Resolve(ctx context.Context, deviceID string, t time.Time) (*Profile, error) {
	assignments, err := r.finder.FindActiveAssignments(ctx, deviceID, t)
	if err != nil {
		return nil, fmt.Errorf("resolving threshold profile for %s: %w", deviceID, err)
	}

	best := SelectAssignment(assignments)
	if best == nil {
		return nil, nil
	}
	p := best.Profile
	return &p, nil
}

// SelectAssignment applies the resolution order to a set of assignments
// that are already known to be active. Returns nil for an empty set.
func SelectAssignment(assignments []Assignment) *Assignment {
	var best *Assignment
	for i := range assignments {
		a := &assignments[i]
		if best == nil || outranks(a, best) {
			best = a
		}
	}
	return best
}

func outranks(a, b *Assignment) bool {
	if !a.EffectiveStart.Equal(b.EffectiveStart) {
		return a.EffectiveStart.After(b.EffectiveStart)
	}
	if a.IsDefault != b.IsDefault {
		return a.IsDefault
	}
	return a.ID > b.ID
}
