// g2goctl runs the motion-control core hosted: G-code on stdin, status
// and responses on stdout, the simulated HAL in place of real timers
// and pins. It is the development harness for the same wiring an
// embedded build does against hardware.
package main

import (
	"flag"
	"net"
	"os"
	"time"

	"github.com/golang/glog"

	"tinygo.org/x/g2go/alarm"
	"tinygo.org/x/g2go/canonical"
	"tinygo.org/x/g2go/config"
	"tinygo.org/x/g2go/control"
	marlin "tinygo.org/x/g2go/dialect/marlin"
	"tinygo.org/x/g2go/executor"
	"tinygo.org/x/g2go/halsim"
	"tinygo.org/x/g2go/motion"
	"tinygo.org/x/g2go/peripherals"
	"tinygo.org/x/g2go/planner"
	"tinygo.org/x/g2go/report"
	"tinygo.org/x/g2go/stepper"
	"tinygo.org/x/g2go/timebase"
	"tinygo.org/x/g2go/transport"
)

var (
	ddaHz      = flag.Int("dda-hz", timebase.DefaultDDAFrequencyHz, "DDA tick rate")
	dialect    = flag.String("dialect", "native", "g-code dialect: native or marlin")
	mqttBroker = flag.String("mqtt", "", "optional MQTT broker address for the status mirror")
	mqttTopic  = flag.String("mqtt-topic", "g2go/sr", "MQTT topic for mirrored status reports")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	board := halsim.NewBoard(motion.MOTORS)
	clocks := timebase.New(board, *ddaHz)
	lat := alarm.New()
	reg := config.New()
	declareAxisConfig(reg)

	queue := planner.New(planner.DefaultCapacity, planner.DefaultHeadroom)
	machine := canonical.New(queue, reg)

	prep := stepper.NewPreparer()
	engine := stepper.NewEngine(board, clocks, prep, lat)
	exec := executor.NewExecutor(queue, machine.Kinematics, machine.StepsPerMM, prep, lat)

	lines := transport.NewLines(newStdio())
	lines.SetLineState(true, true) // a pipe has no modem lines; report connected

	reporter := report.NewReporter(func() report.Status {
		return report.Status{
			State:     report.StateName(lat.Level(), exec.Active(), exec.Holding()),
			Position:  exec.Position(),
			Velocity:  exec.Velocity(),
			Available: queue.Available(),
			Level:     lat.Level(),
		}
	}, lines)
	if *mqttBroker != "" {
		broker := *mqttBroker
		reporter.Mirror = report.NewMirror(*mqttTopic, "g2goctl", func() (net.Conn, error) {
			return net.DialTimeout("tcp", broker, 2*time.Second)
		})
	}

	loop := control.New(&control.Loop{
		Lines:    lines,
		Machine:  machine,
		Queue:    queue,
		Exec:     exec,
		Engine:   engine,
		Clocks:   clocks,
		Alarm:    lat,
		Config:   reg,
		Reporter: reporter,
		Board:    board,
		LED:      halsim.NewPin(),
		Quit:     make(chan struct{}),
	})
	if *dialect == "marlin" {
		tr := &marlin.Translator{Sink: peripherals.LogSink{}}
		loop.Translate = tr.Translate
	}

	engine.Start()
	glog.Infof("g2goctl: ready, dda=%dHz dialect=%s", *ddaHz, *dialect)
	loop.Run()
	glog.Info("g2goctl: program end")
}

// declareAxisConfig registers the per-axis kinematic limits with their
// valid ranges; out-of-range writes are rejected and keep the prior
// value.
func declareAxisConfig(reg *config.Registry) {
	const lower = "xyzabc"
	for i := 0; i < motion.AXES; i++ {
		ax := lower[i : i+1]
		reg.Declare("axis."+ax+".feedrate_max", 200, 0.1, 5000)
		reg.Declare("axis."+ax+".velocity_max", 300, 0.1, 5000)
		reg.Declare("axis."+ax+".jerk", 500, 1, 100000)
		reg.Declare("axis."+ax+".steps_per_mm", 80, 0.001, 10000)
		reg.Declare("axis."+ax+".junction_integration_time", 0.02,
			canonical.JunctionIntegrationMin, canonical.JunctionIntegrationMax)
	}
}

// stdio adapts stdin/stdout to transport.ByteIO. A reader goroutine
// keeps a bounded buffer filled so Buffered/ReadByte stay non-blocking
// the way a UART FIFO is.
type stdio struct {
	ch chan byte
}

func newStdio() *stdio {
	s := &stdio{ch: make(chan byte, 1024)}
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := os.Stdin.Read(buf)
			for i := 0; i < n; i++ {
				s.ch <- buf[i]
			}
			if err != nil {
				close(s.ch)
				return
			}
		}
	}()
	return s
}

func (s *stdio) Buffered() int { return len(s.ch) }

func (s *stdio) ReadByte() (byte, error) {
	select {
	case c, ok := <-s.ch:
		if !ok {
			return 0, os.ErrClosed
		}
		return c, nil
	default:
		return 0, os.ErrDeadlineExceeded
	}
}

func (s *stdio) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}
