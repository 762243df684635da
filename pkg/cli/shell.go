// Package cli is the host-side bench shell. It talks to a curve tracer
// over the serial channel: send a sweep profile, watch the result
// stream, inspect raw frames.
package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/lhr-solar/PV-Curve-Tracer/pkg/profile"
	"github.com/lhr-solar/PV-Curve-Tracer/pkg/wire"
)

// Shell provides the ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell *ishell.Shell
	Port  io.ReadWriter
}

const (
	shellKey      = "$shell"
	defaultPrompt = "tracer > "

	// watchIdle ends a watch after this much silence on the channel.
	watchIdle = 3 * time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ProfileCmd,
		&WatchCmd,
		&EncodeCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell over an open serial channel.
func New(port io.ReadWriter) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell: ishell.New(),
		Port:  port,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(defaultPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// parseProfileArgs turns "REGIME START_MV END_MV RES_MV" into a
// validated frame, reusing the device's own decode path so the shell
// rejects exactly what the board would.
func parseProfileArgs(args []string) ([]byte, *profile.Profile, error) {
	if len(args) != 4 {
		return nil, nil, fmt.Errorf("expected REGIME START_MV END_MV RES_MV")
	}
	var regime profile.Regime
	switch strings.ToLower(args[0]) {
	case "cell", "1":
		regime = profile.Cell
	case "module", "2":
		regime = profile.Module
	case "subarray", "3":
		regime = profile.Subarray
	default:
		return nil, nil, fmt.Errorf("unknown regime %q", args[0])
	}
	var mv [3]uint16
	for n, arg := range args[1:] {
		val, err := strconv.ParseUint(arg, 10, 12)
		if err != nil {
			return nil, nil, fmt.Errorf("bad millivolt value %q: %v", arg, err)
		}
		mv[n] = uint16(val)
	}
	frame := wire.EncodeProfileRequest(wire.MsgProfileRequest, uint8(regime), mv[0], mv[1], mv[2])
	p, code := profile.Decode(frame[:])
	if code != wire.ErrCodeNone {
		return nil, nil, fmt.Errorf("invalid profile (error code 0x%03x)", uint16(code))
	}
	return frame[:], p, nil
}

// watch drains the serial channel, printing each decoded frame, until
// the channel stays idle for watchIdle or the deadline passes.
func (s *Shell) watch(c *ishell.Context, deadline time.Time) {
	var pending []byte
	buf := make([]byte, 64)
	lastData := time.Now()
	for time.Now().Before(deadline) && time.Since(lastData) < watchIdle {
		n, err := s.Port.Read(buf)
		if err != nil && err != io.EOF {
			c.Err(err)
			return
		}
		if n == 0 {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		lastData = time.Now()
		pending = append(pending, buf[:n]...)
		pending = s.printFrames(c, pending)
	}
}

// printFrames prints every complete frame at the head of pending and
// returns the unconsumed tail.
func (s *Shell) printFrames(c *ishell.Context, pending []byte) []byte {
	for {
		msgID, _, err := wire.DecodeHeader(pending)
		switch err {
		case nil:
		case wire.ErrShortHeader:
			return pending
		case wire.ErrBadPrelude:
			pending = pending[1:]
			continue
		}
		if msgID == wire.MsgResult {
			if len(pending) < wire.ResultLen {
				return pending
			}
			_, kind, sampleID, value, err := wire.DecodeResult(pending[:wire.ResultLen])
			pending = pending[wire.ResultLen:]
			if err != nil {
				c.Err(err)
				continue
			}
			s.printResult(c, kind, sampleID, value)
			continue
		}
		if len(pending) < wire.ExceptionLen {
			return pending
		}
		_, code, context, err := wire.DecodeException(pending[:wire.ExceptionLen])
		pending = pending[wire.ExceptionLen:]
		if err != nil {
			c.Err(err)
			continue
		}
		s.printException(c, msgID, code, context)
	}
}

func (s *Shell) printResult(c *ishell.Context, kind wire.MeasurementKind, sampleID uint16, value uint32) {
	if s.OutputJSON {
		out, _ := json.Marshal(map[string]interface{}{
			"kind":      kind.String(),
			"sample_id": sampleID,
			"value":     float64(value) / 1000,
		})
		c.Println(string(out))
		return
	}
	c.Printf("result[%d] %s %.3f\n", sampleID, kind, float64(value)/1000)
}

func (s *Shell) printException(c *ishell.Context, msgID uint16, code wire.ErrorCode, context uint16) {
	if s.OutputJSON {
		out, _ := json.Marshal(map[string]interface{}{
			"exception": fmt.Sprintf("0x%03x", uint16(code)),
			"msg_id":    fmt.Sprintf("0x%03x", msgID),
			"context":   fmt.Sprintf("0x%04x", context),
		})
		c.Println(string(out))
		return
	}
	c.Printf("EXCEPTION msg=0x%03x code=0x%03x context=0x%04x\n", msgID, uint16(code), context)
}

var (
	// ProfileCmd sends a sweep profile and watches the result stream.
	ProfileCmd = ishell.Cmd{
		Name:    "profile",
		Aliases: []string{"p", "sweep"},
		Help:    "REGIME START_MV END_MV RES_MV",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			frame, p, err := parseProfileArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if _, err := s.Port.Write(frame); err != nil {
				c.Err(err)
				return
			}
			if !s.OutputJSON {
				c.Printf("sent: %s\n", p)
			}
			// Generous ceiling; the watch ends early once the stream
			// goes quiet after the last sample.
			s.watch(c, time.Now().Add(time.Duration(p.NumSamples+1)*time.Second))
		},
	}

	// WatchCmd passively watches the result stream.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[SECONDS]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			seconds := 10
			if len(c.Args) > 0 {
				val, err := strconv.Atoi(c.Args[0])
				if err != nil || val <= 0 {
					c.Err(fmt.Errorf("bad duration %q", c.Args[0]))
					return
				}
				seconds = val
			}
			s.watch(c, time.Now().Add(time.Duration(seconds)*time.Second))
		},
	}

	// EncodeCmd prints the wire encoding of a profile without sending it.
	EncodeCmd = ishell.Cmd{
		Name: "encode",
		Help: "REGIME START_MV END_MV RES_MV",
		Func: func(c *ishell.Context) {
			frame, p, err := parseProfileArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("% x  (%s)\n", frame, p)
		},
	}
)
