package luaflow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/luaflow/luaflow/internal/domain"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after
// being closed.
var ErrChannelSinkClosed = errors.New("luaflow: channel sink closed")

// BatchFunc is invoked with every batch the stage forwards.
type BatchFunc func(*RecordBatch) error

// NewCallbackSink adapts a BatchFunc into a full BatchSink implementation
// so hosts can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn BatchFunc) BatchSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes forwarded batches via a channel; it returns the
// sink, the read-only channel, and a close function the host should invoke
// during shutdown.
func NewChannelSink(name string, buffer int) (BatchSink, <-chan *RecordBatch, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan *RecordBatch, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   BatchFunc
}

func (s *callbackSink) Forward(batch *domain.RecordBatch) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return s.fn(batch)
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan *RecordBatch
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) Forward(batch *domain.RecordBatch) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- batch:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}
