// Package providers contains the concrete analysis backends (local model,
// cloud model, code-search service), the registry that owns their handles,
// and the factory that builds them from configuration.
package providers

import (
	"errors"
	"sync"

	"github.com/archway-dev/archway/internal/domain"
)

var errProviderClosed = errors.New("provider is closed")

// lifecycle tracks the handle state machine shared by every provider:
//
//	Uninitialized -> Initializing -> Ready | Error
//	Ready <-> Processing (active calls > 0)
//	Ready | Error -> Closing -> Closed (terminal)
//
// Analyze calls run concurrently; the handle reads Processing while any call
// is in flight and returns to Ready when the last one completes.
type lifecycle struct {
	mu     sync.Mutex
	state  domain.ProviderState
	active int
}

func (l *lifecycle) State() domain.ProviderState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// beginInit moves the handle into Initializing. It reports proceed=false when
// the provider is already usable, and errProviderClosed after Close.
func (l *lifecycle) beginInit() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case domain.StateReady, domain.StateProcessing:
		return false, nil
	case domain.StateClosing, domain.StateClosed:
		return false, errProviderClosed
	}
	l.state = domain.StateInitializing
	return true, nil
}

// finishInit settles Initializing into Ready or Error.
func (l *lifecycle) finishInit(ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ok {
		l.state = domain.StateReady
	} else {
		l.state = domain.StateError
	}
}

// beginCall admits one Analyze call on a Ready or Processing handle.
func (l *lifecycle) beginCall() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case domain.StateReady, domain.StateProcessing:
		l.active++
		l.state = domain.StateProcessing
		return nil
	case domain.StateClosing, domain.StateClosed:
		return errProviderClosed
	default:
		return errors.New("provider is not ready")
	}
}

// endCall retires one Analyze call. Handled failures return the handle to
// Ready; the Error state is reserved for initialization faults.
func (l *lifecycle) endCall() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active > 0 {
		l.active--
	}
	if l.active == 0 && l.state == domain.StateProcessing {
		l.state = domain.StateReady
	}
}

// close is idempotent and always safe to call.
func (l *lifecycle) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == domain.StateClosed {
		return
	}
	l.state = domain.StateClosing
	l.active = 0
	l.state = domain.StateClosed
}
