package planner

import "math"

// BackPlan walks from the newest arrival backward toward the
// running block, progressively tightening each block's exit_velocity
// so deceleration into the next block's entry fits within that
// block's available braking distance, and the corner obeys
// junction_vmax. Each call walks every pair back to the running block;
// it does not stop early at a block whose result did not change.
// Returns the number of blocks whose exit_velocity was tightened or
// that were promoted from NOT_PLANNED to BACK_PLANNED.
//
// The braking-distance check uses the same jerk-symmetric S-curve
// ramp formula forward planning later samples, so an exit velocity
// that survives the sweep is always physically reachable (and
// brakeable) when the block's exact zoid is computed.
func BackPlan(q *Queue) int {
	blocks := q.Blocks()
	if len(blocks) < 2 {
		return 0
	}

	changed := 0
	// Walk from newest to oldest (excluding the running block, which
	// is never replanned: forward planning never touches the
	// RUNNING block).
	for i := len(blocks) - 1; i >= 1; i-- {
		cur := blocks[i]
		prev := blocks[i-1]

		if cur.Type != BlockALINE || prev.Type != BlockALINE {
			continue
		}
		if !prev.Plannable || prev.BufferState == Running {
			continue
		}

		maxEntryFromBraking := reachableVelocity(cur.ExitVelocity, cur.Length, cur.Jerk)

		limit := math.Min(cur.AbsoluteVmax, maxEntryFromBraking)
		limit = math.Min(limit, cur.JunctionVmax)

		if limit < prev.ExitVelocity-velocityEpsilon {
			prev.ExitVelocity = limit
			if prev.BufferState == NotPlanned {
				prev.BufferState = BackPlanned
			} else if prev.BufferState == FullyPlanned {
				// A later arrival tightened an already-planned
				// block; demote it back to BACK_PLANNED so
				// forward planning recomputes its ramp shape.
				prev.BufferState = BackPlanned
			}
			changed++
		} else if prev.BufferState == NotPlanned {
			prev.BufferState = BackPlanned
			changed++
		}
	}
	return changed
}

const velocityEpsilon = 1e-6
