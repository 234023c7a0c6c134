package planner

// DefaultBlockTimeoutMS is how long the controller waits after the
// last block arrival before declaring "no new blocks arriving" and
// letting a nearly-empty queue begin executing (BLOCK_TIMEOUT_MS).
const DefaultBlockTimeoutMS = 30

// FinalizeTail promotes the newest block from NOT_PLANNED to
// BACK_PLANNED. Back-planning alone never touches the newest arrival
// (it only tightens the block *behind* each pair walked), so a queue
// that has stopped filling would otherwise never become runnable; the
// controller calls this once the block timeout expires, and as part of
// flushing on M2/M30. Returns true if a block was promoted.
func FinalizeTail(q *Queue) bool {
	blocks := q.Blocks()
	if len(blocks) == 0 {
		return false
	}
	last := blocks[len(blocks)-1]
	if last.BufferState != NotPlanned || !last.Plannable {
		return false
	}
	// The tail has no successor to brake into: its seeded optimistic
	// exit collapses to a full stop.
	if last.Type == BlockALINE {
		last.ExitVelocity = 0
	}
	last.BufferState = BackPlanned
	return true
}
