package coretest

import (
	"errors"
	"sync"

	"github.com/dkeye/Roulette/internal/core"
)

var ErrChannelClosed = errors.New("signal channel closed")

// FakeSignal records outbound signals. Like the real channel it refuses
// sends after Close.
type FakeSignal struct {
	mu     sync.Mutex
	sent   []core.Signal
	closed bool

	// SendErr is returned by Send when set.
	SendErr error
}

var _ core.SignalChannel = (*FakeSignal)(nil)

func (s *FakeSignal) Send(sig core.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendErr != nil {
		return s.SendErr
	}
	if s.closed {
		return ErrChannelClosed
	}
	s.sent = append(s.sent, sig)
	return nil
}

func (s *FakeSignal) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *FakeSignal) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *FakeSignal) Sent() []core.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Signal(nil), s.sent...)
}

// OfType returns the recorded signals of one type, in send order.
func (s *FakeSignal) OfType(t core.SignalType) []core.Signal {
	var out []core.Signal
	for _, sig := range s.Sent() {
		if sig.Type == t {
			out = append(out, sig)
		}
	}
	return out
}
