// Package pixel pushes LED frames to a Fadecandy-compatible Open Pixel
// Control server.
package pixel

import (
	"fmt"
	"net"
	"time"

	opc "github.com/kellydunn/go-opc"

	"github.com/gcpreston/webcandy-client/internal/core"
)

// dialTimeout bounds the connection attempt to the local renderer.
const dialTimeout = 2 * time.Second

// MaxLEDs is the longest strip one OPC message can carry: the protocol's
// length field is 16 bits and every LED takes three bytes.
const MaxLEDs = 65535 / 3

// Sink is one OPC connection to the renderer. Each configuration run opens
// its own sink and closes it when the run ends; sinks are never shared
// across runs.
type Sink struct {
	conn    net.Conn
	numLEDs int
}

// Dial opens an OPC connection to addr ("host:port") for a strip of numLEDs
// lights.
func Dial(addr string, numLEDs int) (*Sink, error) {
	if numLEDs < 1 || numLEDs > MaxLEDs {
		return nil, fmt.Errorf("strip of %d LEDs out of range [1, %d]", numLEDs, MaxLEDs)
	}
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("renderer unreachable at %s: %w", addr, err)
	}
	return &Sink{conn: conn, numLEDs: numLEDs}, nil
}

// Push sends one frame to OPC channel 0. The frame must hold exactly the
// configured number of LEDs.
func (s *Sink) Push(f core.Frame) error {
	if len(f) != s.numLEDs {
		return fmt.Errorf("frame holds %d pixels, strip has %d", len(f), s.numLEDs)
	}

	m := opc.NewMessage(0)
	m.SetLength(uint16(s.numLEDs * 3))
	for i, c := range f {
		m.SetPixelColor(i, c.R, c.G, c.B)
	}
	if _, err := s.conn.Write(m.ByteArray()); err != nil {
		return fmt.Errorf("pushing frame: %w", err)
	}
	return nil
}

// Close closes the connection. It is safe to call concurrently with Push;
// closing unblocks an in-flight write.
func (s *Sink) Close() error {
	return s.conn.Close()
}
