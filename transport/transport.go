// Package transport implements the producer/consumer coupling (C3): a named
// shared-memory window guarded by a named mutex, and a UDP sender/receiver
// carrying the same record bytes with no framing header.
package transport

import (
	"fmt"
	"net"
	"time"
)

// RegionSize is the fixed shared-memory mapping size (spec.md §6):
// 10 000 bytes, of which only the first record_size bytes are meaningful.
const RegionSize = 10000

// SharedMemoryName and MutexName are the cross-process names of the shared
// window and its named mutex (spec.md §4.3/§6). The POSIX backing uses only
// SharedMemoryName: its lock is the companion "<name>.lock" file created
// beside the mapping, not a file called MutexName.
const (
	SharedMemoryName = "GenericTelemetryProviderFiltered"
	MutexName        = "GenericTelemetryProviderMutex"
)

// Region is a named, mutex-guarded shared-memory window. The concrete
// backing (POSIX shm_open+mmap+flock vs. a Windows named mapping +
// mutex) is supplied by the build-tagged implementations in this package.
type Region interface {
	// WriteLocked acquires the mutex, copies data into the window's first
	// len(data) bytes, and releases. len(data) must not exceed RegionSize.
	WriteLocked(data []byte) error
	// ReadLocked acquires the mutex, copies exactly len(out) bytes from the
	// window into out, and releases.
	ReadLocked(out []byte) error
	Close() error
}

// UDPSender is a fire-and-forget, non-blocking UDP frame sender. Send
// errors (e.g. destination unreachable) are returned for the caller to log
// but never block or retry — loss is tolerated (spec.md §4.3).
type UDPSender struct {
	conn *net.UDPConn
}

// NewUDPSender dials ip:port as a connected UDP socket.
func NewUDPSender(ip string, port int) (*UDPSender, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial udp sender: %w", err)
	}
	return &UDPSender{conn: conn}, nil
}

// Send writes one datagram containing exactly frame's bytes.
func (s *UDPSender) Send(frame []byte) error {
	_, err := s.conn.Write(frame)
	return err
}

func (s *UDPSender) Close() error { return s.conn.Close() }

// UDPReceiver binds to a local port and reads one record-sized datagram per
// call. No header, no CRC: the datagram's bytes are the record verbatim.
type UDPReceiver struct {
	conn *net.UDPConn
}

// NewUDPReceiver binds to 0.0.0.0:port.
func NewUDPReceiver(port int) (*UDPReceiver, error) {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen udp receiver: %w", err)
	}
	return &UDPReceiver{conn: conn}, nil
}

// ReceiveInto blocks until a datagram arrives (or the read deadline set via
// SetReadDeadline elapses) and copies it into buf, returning the byte count.
func (r *UDPReceiver) ReceiveInto(buf []byte) (int, error) {
	return r.conn.Read(buf)
}

// SetReadDeadline lets the caller implement the consumer's 500 ms liveness
// check without a dedicated goroutine (spec.md §4.5).
func (r *UDPReceiver) SetReadDeadline(t time.Time) error {
	return r.conn.SetReadDeadline(t)
}

func (r *UDPReceiver) Close() error { return r.conn.Close() }
