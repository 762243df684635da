package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"time"

	goserial "go.bug.st/serial"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/cli"
)

var (
	serialDev string
	baud      int
)

func init() {
	flag.StringVar(&serialDev, "serial", "", "Serial device of the curve tracer.")
	flag.IntVar(&baud, "baud", 19200, "Serial baud rate.")
}

func main() {
	flag.Parse()
	if serialDev == "" {
		log.Fatalln("a serial device is required (-serial)")
	}
	port, err := goserial.Open(serialDev, &goserial.Mode{BaudRate: baud})
	if err != nil {
		log.Fatalf("open %s: %v", serialDev, err)
	}
	defer port.Close()
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		log.Fatalln(err)
	}

	cli.New(port).Run(flag.Args()...)
}
