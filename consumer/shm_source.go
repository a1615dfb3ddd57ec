package consumer

import (
	"context"

	"github.com/gtprovider/gtp/backoff"
	"github.com/gtprovider/gtp/transport"
)

// SharedMemorySource reads records from the producer's named shared-memory
// window, retrying open_existing every 1s on not-found (spec.md §4.6).
type SharedMemorySource struct {
	Name       string
	RecordSize int
	Policy     *backoff.Policy

	region transport.Region
}

// NewSharedMemorySource returns a source bound to the producer's named
// window. Policy may be nil to use backoff.NewPolicy().
func NewSharedMemorySource(name string, recordSize int, policy *backoff.Policy) *SharedMemorySource {
	if policy == nil {
		policy = backoff.NewPolicy()
	}
	return &SharedMemorySource{Name: name, RecordSize: recordSize, Policy: policy}
}

// Read blocks, opening the region on first use (retrying every 1 s), then
// reads exactly RecordSize bytes under the named mutex. Any failure short
// of ctx cancellation is absorbed by reconnecting (spec.md §7 item 1); Read
// only returns an error once ctx is done.
func (s *SharedMemorySource) Read(ctx context.Context) ([]byte, error) {
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if s.region == nil {
			if err := s.Policy.Retry(func() error {
				r, err := transport.OpenExistingRegion(s.Name, transport.RegionSize)
				if err != nil {
					return err
				}
				s.region = r
				return nil
			}, func() bool { return ctx.Err() != nil }); err != nil {
				return nil, err
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}

		buf := make([]byte, s.RecordSize)
		if err := s.region.ReadLocked(buf); err != nil {
			s.region.Close()
			s.region = nil
			continue
		}
		return buf, nil
	}
}

// Close releases the underlying region, if open.
func (s *SharedMemorySource) Close() error {
	if s.region == nil {
		return nil
	}
	err := s.region.Close()
	s.region = nil
	return err
}
