package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gtprovider/gtp/mathx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls int32
	err   error
}

func (f *fakeSource) NextTransform(ctx context.Context) (mathx.Mat4, float64, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return mathx.Mat4{}, 0, f.err
	}
	return mathx.Identity(), 0.01, nil
}

type fakeDispatcher struct {
	stale       bool
	consumed    bool
	publishes   int32
	lastPublish []byte
}

func (d *fakeDispatcher) Process(mathx.Mat4, float64) bool { return d.consumed }
func (d *fakeDispatcher) Stale() bool                       { return d.stale }
func (d *fakeDispatcher) SendFilteredData(publish func([]byte) error) error {
	atomic.AddInt32(&d.publishes, 1)
	if publish != nil {
		return publish([]byte("frame"))
	}
	return nil
}

func TestTickerSourcePublishesOnlyNonStaleConsumedFrames(t *testing.T) {
	src := &fakeSource{}
	disp := &fakeDispatcher{consumed: true, stale: false}
	var published int32

	ts := &TickerSource{
		Source:   src,
		Pipeline: disp,
		Interval: time.Millisecond,
		Publish: func(frame []byte) error {
			atomic.AddInt32(&published, 1)
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = ts.Run(ctx)

	assert.Greater(t, int(atomic.LoadInt32(&src.calls)), 0)
	assert.Greater(t, int(atomic.LoadInt32(&disp.publishes)), 0)
	assert.Equal(t, atomic.LoadInt32(&disp.publishes), published)
}

func TestTickerSourceSkipsPublishWhenStale(t *testing.T) {
	src := &fakeSource{}
	disp := &fakeDispatcher{consumed: true, stale: true}

	ts := &TickerSource{Source: src, Pipeline: disp, Interval: time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_ = ts.Run(ctx)

	assert.Zero(t, atomic.LoadInt32(&disp.publishes))
}

func TestTickerSourceReportsNextTransformErrors(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	disp := &fakeDispatcher{}
	var gotErr error

	ts := &TickerSource{
		Source:   src,
		Pipeline: disp,
		Interval: time.Millisecond,
		OnError:  func(err error) { gotErr = err },
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_ = ts.Run(ctx)

	require.Error(t, gotErr)
}
