// Package transport implements the serial byte source/sink boundary:
// line-buffered ASCII in, report lines out, with the control-character
// and line-state behavior the USB/CDC and UART front ends share. The
// byte pump and CR/LF line-assembly state machine are adapted from the
// accumulate-until-CRLF UART service loop this module's driver layer
// used for its AT-command serial device, reworked to carry G-code
// lines and run as a cooperative controller-loop task instead of its
// own goroutine.
package transport

import (
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
)

// Reserved flow-control bytes. XON/XOFF are consumed by the transport
// itself and never reach the line assembler.
const (
	XON  = 0x11
	XOFF = 0x13
)

// Single-character realtime commands, recognized mid-line and acted on
// immediately without waiting for a line terminator.
const (
	CharFeedHold   = '!'
	CharCycleStart = '~'
	CharStatusReq  = '?'
	CharReset      = 0x18 // Ctrl-X
)

// resetBaud is the bootloader-entry signal: an open at this rate
// followed by a close requests a device reset.
const resetBaud = 1200

// maxLineLen bounds a single assembled line; input past the bound is
// discarded until the next terminator.
const maxLineLen = 254

// lineQueueDepth bounds how many complete lines may sit parsed-side
// before the pump stops draining bytes (back-pressure toward the host).
const lineQueueDepth = 4

// ByteIO is the raw serial device under the transport: the subset of a
// UART/CDC endpoint the line assembler needs.
type ByteIO interface {
	Buffered() int
	ReadByte() (byte, error)
	Write(p []byte) (n int, err error)
}

// LineSource is what the controller loop consumes: one complete,
// terminator-stripped line at a time.
type LineSource interface {
	NextLine() (string, bool)
}

// Lines assembles bytes from a ByteIO into lines and routes realtime
// control characters around the line path. One Lines serves one serial
// endpoint.
type Lines struct {
	io ByteIO

	mu       sync.Mutex
	buf      [maxLineLen + 2]byte
	pos      int
	overflow bool
	lines    chan string

	// Realtime receives feed-hold/cycle-start/status/reset characters
	// the moment the pump sees them, ahead of any queued lines.
	Realtime func(c byte)

	// Reset is the bootloader hook fired by a 1200-baud open/close.
	Reset func()

	paused    atomic.Bool // host sent XOFF; report output is held
	lineState atomic.Uint32
	openBaud  atomic.Uint32
}

// Line-state bits, written by the USB control path and sampled by
// Connected.
const (
	LineDTR = 1 << 0
	LineRTS = 1 << 1
)

func NewLines(io ByteIO) *Lines {
	return &Lines{
		io:    io,
		lines: make(chan string, lineQueueDepth),
	}
}

// SetLineState records the DTR/RTS modem bits. Written only by the USB
// control path; everyone else samples via Connected.
func (l *Lines) SetLineState(dtr, rts bool) {
	var s uint32
	if dtr {
		s |= LineDTR
	}
	if rts {
		s |= LineRTS
	}
	l.lineState.Store(s)
}

// Connected reports whether the host has asserted both modem lines.
func (l *Lines) Connected() bool {
	s := l.lineState.Load()
	return s&LineDTR != 0 && s&LineRTS != 0
}

// Open records the host-side port open and its baud rate.
func (l *Lines) Open(baud uint32) {
	l.openBaud.Store(baud)
}

// Close records the host-side port close. Closing a port that was
// opened at the reset baud rate fires the bootloader hook.
func (l *Lines) Close() {
	if l.openBaud.Swap(0) == resetBaud && l.Reset != nil {
		glog.Warning("transport: 1200 baud open/close, requesting reset")
		l.Reset()
	}
}

// Pump drains whatever bytes the device has buffered, assembling lines
// and dispatching realtime characters. It is a cooperative task: one
// call does a bounded amount of work and returns true if it consumed
// anything. The pump stops early when the line queue is full so the
// host sees back-pressure instead of losing lines.
func (l *Lines) Pump() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	did := false
	for l.io.Buffered() > 0 {
		if len(l.lines) == cap(l.lines) {
			break
		}
		c, err := l.io.ReadByte()
		if err != nil {
			break
		}
		did = true
		l.consume(c)
	}
	return did
}

// consume feeds one byte through the control-character filter and line
// assembler. Caller holds l.mu.
func (l *Lines) consume(c byte) {
	switch c {
	case XON:
		l.paused.Store(false)
		return
	case XOFF:
		l.paused.Store(true)
		return
	case CharFeedHold, CharCycleStart, CharStatusReq, CharReset:
		if l.Realtime != nil {
			l.Realtime(c)
		}
		return
	case '\r':
		return
	case '\n':
		line := string(l.buf[:l.pos])
		dropped := l.overflow
		l.pos = 0
		l.overflow = false
		if dropped {
			glog.Errorf("transport: line exceeded %d bytes, discarded", maxLineLen)
			return
		}
		if line == "" {
			return
		}
		l.lines <- line
		return
	}
	if l.overflow {
		return
	}
	if l.pos >= maxLineLen {
		l.overflow = true
		return
	}
	l.buf[l.pos] = c
	l.pos++
}

// NextLine returns the next assembled line without blocking.
func (l *Lines) NextLine() (string, bool) {
	select {
	case s := <-l.lines:
		return s, true
	default:
		return "", false
	}
}

// WriteLine emits one report/response line with CRLF termination,
// unless the host has XOFF'd us, in which case the line is dropped
// rather than blocking the cooperative loop. Status traffic is
// idempotent; the next report resends current state.
func (l *Lines) WriteLine(s string) {
	if l.paused.Load() {
		return
	}
	l.io.Write(append([]byte(s), '\r', '\n'))
}
