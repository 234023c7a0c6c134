package planner

// Advance drives the forward-planning state table. It is called from
// the low-priority FWD_PLAN trigger and plans at most one ALINE ahead of
// whatever is RUNNING, never touching the RUNNING block itself.
// runtimeVelocity is the executor's current velocity, used as the
// entry velocity when the "running" slot holds a command rather than
// a move. Returns true if it planned something.
func Advance(q *Queue, runtimeVelocity float64) bool {
	blocks := q.Blocks()
	if len(blocks) == 0 {
		return false
	}

	running := blocks[0]

	switch {
	case running.Type == BlockALINE && running.BufferState == BackPlanned:
		ForwardPlan(running, entryVelocityFor(running))
		return true

	case running.Type == BlockALINE && running.BufferState == FullyPlanned:
		return false

	case running.Type != BlockALINE && running.BufferState == BackPlanned:
		running.BufferState = FullyPlanned
		return planNextMoveAfterCommands(blocks, 1, runtimeVelocity)

	case running.BufferState == Running && running.Type == BlockALINE:
		return planNextMoveAfterCommands(blocks, 1, running.ExitVelocity)
	}

	return false
}

func entryVelocityFor(b *Block) float64 {
	return b.EntryVelocity
}

// planNextMoveAfterCommands walks forward from index start, marking any
// command/dwell blocks FULLY_PLANNED (they have no ramp shape) until it
// finds the next BACK_PLANNED move, which it forward-plans using carry
// as the entry velocity; a FULLY_PLANNED move ahead is left untouched.
func planNextMoveAfterCommands(blocks []*Block, start int, carry float64) bool {
	planned := false
	for i := start; i < len(blocks); i++ {
		b := blocks[i]
		if b.Type != BlockALINE {
			if b.BufferState == BackPlanned || b.BufferState == NotPlanned {
				b.BufferState = FullyPlanned
				planned = true
			}
			continue
		}
		if b.BufferState == BackPlanned {
			ForwardPlan(b, carry)
			return true
		}
		break
	}
	return planned
}
