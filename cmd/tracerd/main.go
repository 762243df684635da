package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	goserial "go.bug.st/serial"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/bus"
	busmqtt "github.com/lhr-solar/PV-Curve-Tracer/pkg/bus/mqtt"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/hal"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/hal/sim"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/profile"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/task"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/tracer"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/wire"
)

var (
	configPath string
	serialDev  string
	busURL     string
	useSim     bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "YAML configuration file.")
	flag.StringVar(&serialDev, "serial", "", "Serial device, overrides config.")
	flag.StringVar(&busURL, "bus", "", "Broadcast bus broker URL, overrides config.")
	flag.BoolVar(&useSim, "sim", true, "Use the simulated analog front end.")
}

// inboundIDs is the bus acceptance filter: only frames from the
// blackbody sensor board are of interest, and the device must never
// hear its own frames echoed back.
var inboundIDs = []uint16{
	wire.MsgTempMeas,
	wire.MsgIrrad1Meas,
	wire.MsgIrrad2Meas,
	wire.MsgBoardFault,
}

func main() {
	flag.Parse()

	conf, err := tracer.LoadConfig(configPath)
	if err != nil {
		glog.Exitf("load config: %v", err)
	}
	if serialDev != "" {
		conf.Serial.Device = serialDev
	}
	if busURL != "" {
		conf.Bus.URL = busURL
	}
	if err := conf.Validate(); err != nil {
		glog.Exitf("config: %v", err)
	}
	if conf.Serial.Device == "" {
		glog.Exit("a serial device is required (-serial or config)")
	}

	port, err := goserial.Open(conf.Serial.Device, &goserial.Mode{BaudRate: conf.Serial.Baud})
	if err != nil {
		glog.Exitf("open %s: %v", conf.Serial.Device, err)
	}
	if err := port.SetReadTimeout(conf.InputPoll()); err != nil {
		glog.Exitf("serial read timeout: %v", err)
	}

	var b bus.Bus
	if conf.Bus.URL != "" {
		mb, err := busmqtt.NewBus(conf.Bus.URL, clientID())
		if err != nil {
			glog.Exitf("bus: %v", err)
		}
		mb.Inbound = inboundIDs
		if err := mb.Connect(); err != nil {
			glog.Exitf("bus connect: %v", err)
		}
		defer mb.Close()
		b = mb
	} else {
		glog.Warning("no bus configured, broadcast frames stay local")
		b = bus.NewMedium().Join()
	}

	if !useSim {
		// The raw ADC/DAC front end is an external collaborator; no
		// hardware driver ships with the host build.
		glog.Exit("no hardware front end available, run with -sim")
	}
	bench := sim.NewBench()
	// The bench emulates the cell-scale sense divider.
	gain, err := hal.VoltageGain(profile.Cell)
	if err != nil {
		glog.Exit(err)
	}

	mailbox := &profile.Mailbox{}
	router := tracer.NewRouter(port, b, conf.QueueDepth)
	sup := tracer.NewSupervisor(mailbox, router, &sim.LED{Name: "fault"})
	dispatcher := &tracer.Dispatcher{
		Serial:  port,
		Bus:     b,
		Fifo:    wire.NewFifo(conf.FifoCapacity),
		Mailbox: mailbox,
		Router:  router,
		Sup:     sup,
		Poll:    conf.InputPoll(),
	}
	sequencer := &tracer.Sequencer{
		Mailbox:     mailbox,
		Router:      router,
		Sup:         sup,
		Output:      bench,
		Voltage:     bench.VoltageReader(gain),
		Current:     bench.CurrentReader(hal.CurrentGain),
		ScanLED:     &sim.LED{Name: "scanning"},
		IdlePoll:    conf.IdlePoll(),
		Settle:      conf.SettleTime(),
		SweepBudget: conf.SweepBudget(),
		BlinkRate:   conf.Blink(),
	}
	heartbeat := &tracer.Heartbeat{
		LED:    &sim.LED{Name: "heartbeat"},
		Period: conf.HeartbeatPeriod(),
	}

	glog.Infof("curve tracer up on %s", conf.Serial.Device)
	err = task.NewGroup().HandleSignals().Go(
		task.NamedRun("delivery", router),
		task.NamedRun("input", dispatcher),
		task.NamedRun("sequencer", sequencer),
		task.NamedRun("heartbeat", heartbeat),
	).Wait()
	if cerr := port.Close(); cerr != nil {
		glog.Errorf("close serial: %v", cerr)
	}
	if err != nil {
		glog.Exit(err)
	}
}

func clientID() string {
	id, err := machineid.ProtectedID("pv-curve-tracer")
	if err != nil {
		glog.Warningf("machine id: %v", err)
		return "pv-curve-tracer"
	}
	return "tracer-" + id[:8]
}
