// Package planner implements the ring buffer of move/command blocks,
// back-planning (multi-pass velocity smoothing) and forward planning
// (one-shot ramp computation).
//
// Blocks live in a doubly linked fixed-capacity ring: a fixed set of
// blocks joined by next/prev pointers, each also carrying its stable
// ring index.
package planner

import (
	"tinygo.org/x/g2go/motion"
)

// BlockType is one of the planner-queue record kinds.
type BlockType int

const (
	BlockNull BlockType = iota
	BlockALINE
	BlockCommand
	BlockDwell
	BlockJSONWait
	BlockTool
	BlockSpindleSpeed
	BlockStop
	BlockEnd
)

// BufferState is a block's monotone lifecycle:
// EMPTY -> INITIALIZING -> NOT_PLANNED -> BACK_PLANNED -> FULLY_PLANNED
// -> RUNNING -> EMPTY.
type BufferState int

const (
	Empty BufferState = iota
	Initializing
	NotPlanned
	BackPlanned
	FullyPlanned
	Running
)

func (s BufferState) String() string {
	switch s {
	case Empty:
		return "EMPTY"
	case Initializing:
		return "INITIALIZING"
	case NotPlanned:
		return "NOT_PLANNED"
	case BackPlanned:
		return "BACK_PLANNED"
	case FullyPlanned:
		return "FULLY_PLANNED"
	case Running:
		return "RUNNING"
	default:
		return "?"
	}
}

// BlockState is the execution sub-state of a RUNNING block.
type BlockState int

const (
	Inactive BlockState = iota
	InitialAction
	Active
)

// Hint records which shape of ramp forward planning produced. Nothing
// outside the planner reads it.
type Hint int

const (
	NoHint Hint = iota
	PerfectAcceleration
	PerfectDeceleration
	PerfectCruise
	MixedAcceleration
	MixedDeceleration
)

// GCodeModel is the embedded canonical-machine snapshot carried with
// each block: line number, feed rate, tool, coord system, work offsets.
type GCodeModel struct {
	LineNumber  int64
	FeedRate    float64
	Tool        int
	CoordSystem int
	WorkOffset  motion.Vector
}

// Block is one planner-queue entry.
type Block struct {
	idx  int // index into the ring, stable for the block's lifetime
	next *Block
	prev *Block

	Type        BlockType
	BufferState BufferState
	BlockState  BlockState

	// Geometry
	Length    float64
	Unit      motion.Vector
	AxisFlags [motion.AXES]bool

	// Kinematic envelope
	AbsoluteVmax float64
	JunctionVmax float64
	CruiseVset   float64
	CruiseVmax   float64
	ExitVmax     float64
	Jerk         float64

	// Plan result
	EntryVelocity  float64
	CruiseVelocity float64
	ExitVelocity   float64
	Hint           Hint

	// Section shape, filled by forward planning (the "zoid").
	HeadLength, BodyLength, TailLength float64
	HeadTime, BodyTime, TailTime       float64

	// Plannable is set when the block is committed and stays set while
	// it is queued; BackPlan and FinalizeTail skip a block without it.
	// A running block is kept out of back-planning by its BufferState.
	Plannable bool

	GM GCodeModel

	// Command/dwell payload, valid only when Type != BlockALINE.
	Command      func()
	DwellSeconds float64

	// Probe tags an ALINE as a probing move (G38.2/.3/.4/.5) rather
	// than an ordinary feed move. Empty for ordinary moves. ProbeAway
	// distinguishes the .4/.5 "probe away from workpiece" pair from
	// the default "probe toward workpiece" .2/.3 pair; ProbeErrorIfNoTrip
	// distinguishes .2/.4 (error if never tripped) from .3/.5 (silent).
	Probe              string
	ProbeAway          bool
	ProbeErrorIfNoTrip bool

	// SavedExit preserves the planned exit velocity while a feed hold
	// temporarily repurposes ExitVelocity as its own deceleration
	// target, so Resume can restore it.
	SavedExit float64
	// ProbeResult is invoked exactly once by the executor when a probe
	// move resolves, either by the probe pin tripping mid-move or by
	// the move running out without a trip.
	ProbeResult func(tripped bool, pos motion.Vector)
}

// Index returns the block's stable ring index, used by diagnostics and
// by the executor to identify "the currently running block" precisely.
func (b *Block) Index() int { return b.idx }

// reset returns a block to its EMPTY state for reuse, called only by
// the queue once the executor has released the block.
func (b *Block) reset() {
	idx, next, prev := b.idx, b.next, b.prev
	*b = Block{idx: idx, next: next, prev: prev}
	b.BufferState = Empty
}
