package consumer

import (
	"context"
	"time"

	"github.com/gtprovider/gtp/backoff"
	"github.com/gtprovider/gtp/transport"
)

// udpReadDeadline bounds each receive attempt so Read can re-check ctx and
// the liveness window without blocking forever on an idle socket.
const udpReadDeadline = 100 * time.Millisecond

// UDPSource reads records from the producer's UDP stream, entering a 1s
// back-off whenever no frame has arrived for more than
// backoff.LivenessTimeout (spec.md §4.6, §5).
type UDPSource struct {
	Port       int
	RecordSize int
	Clock      backoff.Clock

	recv      *transport.UDPReceiver
	liveness  *backoff.Liveness
}

// NewUDPSource returns a source bound to the given local UDP port.
func NewUDPSource(port, recordSize int) *UDPSource {
	return &UDPSource{Port: port, RecordSize: recordSize}
}

func (s *UDPSource) ensure() error {
	if s.recv != nil {
		return nil
	}
	r, err := transport.NewUDPReceiver(s.Port)
	if err != nil {
		return err
	}
	s.recv = r
	clock := s.Clock
	if clock == nil {
		clock = backoff.RealClock
	}
	s.liveness = backoff.NewLivenessWithClock(clock)
	return nil
}

// Read blocks until a record-sized datagram arrives, entering the 1s
// back-off sleep whenever the connection has gone quiet for more than
// LivenessTimeout. Only ctx cancellation produces a returned error.
func (s *UDPSource) Read(ctx context.Context) ([]byte, error) {
	clock := s.Clock
	if clock == nil {
		clock = backoff.RealClock
	}
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := s.ensure(); err != nil {
			clock.Sleep(backoff.Interval)
			continue
		}
		if s.liveness.Stale() {
			clock.Sleep(backoff.Interval)
		}

		_ = s.recv.SetReadDeadline(clock.Now().Add(udpReadDeadline))
		buf := make([]byte, s.RecordSize)
		n, err := s.recv.ReceiveInto(buf)
		if err != nil || n != s.RecordSize {
			continue
		}
		s.liveness.MarkGood()
		return buf, nil
	}
}

// Close releases the underlying socket, if open.
func (s *UDPSource) Close() error {
	if s.recv == nil {
		return nil
	}
	err := s.recv.Close()
	s.recv = nil
	return err
}
