// Package halsim is an in-memory hal.Board used by hosted builds and by
// package tests across the module; it stands in for the TinyGo
// "machine"-backed implementation a real build would link against.
package halsim

import (
	"sync"
	"time"

	"tinygo.org/x/g2go/hal"
)

// Pin is a simulated DigitalPin/EdgeWatcher.
type Pin struct {
	mu    sync.Mutex
	level hal.Level
	edges chan hal.Level
}

func NewPin() *Pin {
	return &Pin{edges: make(chan hal.Level, 8)}
}

func (p *Pin) Set(l hal.Level) {
	p.mu.Lock()
	changed := p.level != l
	p.level = l
	p.mu.Unlock()
	if changed {
		select {
		case p.edges <- l:
		default:
		}
	}
}

func (p *Pin) Get() hal.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *Pin) WaitEdge(rising bool, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case l := <-p.edges:
			if bool(l) == rising {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

// Timer is a simulated hal.Timer backed by a time.Ticker goroutine.
type Timer struct {
	mu      sync.Mutex
	period  time.Duration
	ticker  *time.Ticker
	stopCh  chan struct{}
	running bool
}

func NewTimer() *Timer { return &Timer{} }

func (t *Timer) SetPeriod(p time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.period = p
	if t.running && t.ticker != nil {
		t.ticker.Reset(p)
	}
}

func (t *Timer) Start(fire func()) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	period := t.period
	if period <= 0 {
		period = time.Millisecond
	}
	t.ticker = time.NewTicker(period)
	t.stopCh = make(chan struct{})
	t.running = true
	stop := t.stopCh
	ticker := t.ticker
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				fire()
			case <-stop:
				return
			}
		}
	}()
}

func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.ticker.Stop()
	close(t.stopCh)
	t.running = false
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// ADC is a simulated analog input; Value can be poked by tests.
type ADC struct {
	mu    sync.Mutex
	Value uint16
}

func (a *ADC) ReadRaw() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Value
}

func (a *ADC) Set(v uint16) {
	a.mu.Lock()
	a.Value = v
	a.mu.Unlock()
}

// Watchdog is a simulated watchdog; it never actually resets anything,
// it just records whether it has been kicked inside its timeout.
type Watchdog struct {
	mu       sync.Mutex
	timeout  time.Duration
	lastKick time.Time
}

func (w *Watchdog) Configure(timeout time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timeout = timeout
}

func (w *Watchdog) Update() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastKick = time.Now()
}

func (w *Watchdog) Starved() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timeout == 0 {
		return false
	}
	return time.Since(w.lastKick) > w.timeout
}

// Board is a fixed-size simulated hal.Board.
type Board struct {
	NumMotors int
	sysTimer  *Timer
	ddaTimer  *Timer
	step      []*Pin
	dir       []*Pin
	enable    []*Pin
	limit     []*Pin
	probe     []*Pin
	wdt       *Watchdog
}

func NewBoard(numMotors int) *Board {
	b := &Board{
		NumMotors: numMotors,
		sysTimer:  NewTimer(),
		ddaTimer:  NewTimer(),
		wdt:       &Watchdog{},
	}
	for i := 0; i < numMotors; i++ {
		b.step = append(b.step, NewPin())
		b.dir = append(b.dir, NewPin())
		b.enable = append(b.enable, NewPin())
		b.limit = append(b.limit, NewPin())
		b.probe = append(b.probe, NewPin())
	}
	return b
}

func (b *Board) SystemTimer() hal.Timer { return b.sysTimer }
func (b *Board) DDATimer() hal.Timer    { return b.ddaTimer }

func (b *Board) StepPin(motor int) hal.DigitalPin   { return b.step[motor] }
func (b *Board) DirPin(motor int) hal.DigitalPin    { return b.dir[motor] }
func (b *Board) EnablePin(motor int) hal.DigitalPin { return b.enable[motor] }

func (b *Board) LimitPin(motor int) hal.EdgeWatcher { return b.limit[motor] }
func (b *Board) ProbePin(motor int) hal.EdgeWatcher { return b.probe[motor] }

func (b *Board) Watchdog() hal.Watchdog { return b.wdt }
