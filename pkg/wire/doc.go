// Package wire implements the binary framing of the curve tracer's
// communication channels.
package wire

// Two independent wire formats share a common shape: a fixed prelude
// byte, a 12-bit message id packed across 1.5 bytes, and a bit-packed
// payload. Decoding is pure and never blocks; resynchronization after
// a bad prelude is a single-byte discard by the caller.
//
// Producer/consumer: curve tracer firmware on one side, the host
// visualizer and auxiliary sensor boards on the other. The exact bit
// layouts and fixed-point scaling factors are load-bearing: existing
// host tooling parses these frames.
