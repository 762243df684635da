// Package bus abstracts the broadcast bus shared with the auxiliary
// sensor boards.
package bus

// Frame is one broadcast-bus message: an out-of-band numeric id plus a
// fixed-width payload.
type Frame struct {
	ID   uint16
	Data []byte
}

// Handler consumes received frames.
type Handler func(Frame)

// Bus is a broadcast channel: every published frame is visible to all
// other endpoints on the medium. A node never receives its own frames,
// matching transceiver behavior on the physical bus.
type Bus interface {
	Publish(Frame) error
	Subscribe(Handler) error
	Close() error
}
