package main

import (
	"flag"
	"log"
	"os"

	busmqtt "github.com/lhr-solar/PV-Curve-Tracer/pkg/bus/mqtt"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/bus"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/wire"
)

var (
	busURL = "mqtt://localhost:1883/pv/"
)

func init() {
	if val := os.Getenv("PV_BUS_URL"); val != "" {
		busURL = val
	}
	flag.StringVar(&busURL, "bus", busURL, "Broadcast bus broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	b, err := busmqtt.NewBus(busURL, "")
	if err != nil {
		log.Fatalln(err)
	}
	if err := b.Connect(); err != nil {
		log.Fatalln(err)
	}

	if err := b.Subscribe(printFrame); err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}

func printFrame(f bus.Frame) {
	switch f.ID {
	case wire.MsgTempMeas:
		sensorID, celsius, err := bus.DecodeTemperature(f.Data)
		if err != nil {
			badFrame(f, err)
			return
		}
		log.Printf("0x%03x temperature[%d] %.2f C", f.ID, sensorID, celsius)
	case wire.MsgIrrad1Meas, wire.MsgIrrad2Meas:
		wm2, err := bus.DecodeIrradiance(f.Data)
		if err != nil {
			badFrame(f, err)
			return
		}
		log.Printf("0x%03x irradiance %.2f W/m2", f.ID, wm2)
	case wire.MsgVoltageMeas:
		value, err := bus.DecodeMeasurement(f.Data)
		if err != nil {
			badFrame(f, err)
			return
		}
		log.Printf("0x%03x voltage %.3f V", f.ID, value)
	case wire.MsgCurrentMeas:
		value, err := bus.DecodeMeasurement(f.Data)
		if err != nil {
			badFrame(f, err)
			return
		}
		log.Printf("0x%03x current %.3f A", f.ID, value)
	case wire.MsgBoardEnable:
		on, err := bus.DecodeEnable(f.Data)
		if err != nil {
			badFrame(f, err)
			return
		}
		log.Printf("0x%03x enable %v", f.ID, on)
	case wire.MsgBoardFault:
		code, context, err := bus.DecodeBoardFault(f.Data)
		if err != nil {
			badFrame(f, err)
			return
		}
		log.Printf("0x%03x FAULT code=0x%02x context=0x%02x", f.ID, code, context)
	default:
		log.Printf("0x%03x % x", f.ID, f.Data)
	}
}

func badFrame(f bus.Frame, err error) {
	log.Printf("0x%03x bad frame (% x): %v", f.ID, f.Data, err)
}
