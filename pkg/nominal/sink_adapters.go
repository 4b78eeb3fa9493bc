package nominal

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("nominal: channel sink closed")

// SeriesFunc receives one exported series.
type SeriesFunc func(*Series) error

// NewCallbackSink adapts a SeriesFunc into a Sink.
func NewCallbackSink(name string, fn SeriesFunc) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes series via a channel; it returns the sink, the
// read-only channel, and a close function the caller should invoke when done.
func NewChannelSink(name string, buffer int) (Sink, <-chan *Series, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan *Series, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   SeriesFunc
}

func (s *callbackSink) WriteSeries(_ context.Context, series *Series) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if series == nil {
		return nil
	}
	return s.fn(series)
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan *Series
	closed chan struct{}
	once   sync.Once
	mu     sync.RWMutex
}

func (s *channelSink) WriteSeries(ctx context.Context, series *Series) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	if series == nil {
		return nil
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- series:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		// Writers observe closed and release the read lock before ch closes.
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}
