// Package tracer is the firmware core of the PV curve tracer: three
// concurrently scheduled contexts (input, sequencer, delivery) sharing
// the test profile through a single-slot mailbox, plus the fail-stop
// fault supervisor and the heartbeat signal.
package tracer
