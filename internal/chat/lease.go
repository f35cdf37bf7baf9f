package chat

import (
	"sync"
	"time"
)

// Lease renews the read position of an open conversation on a fixed
// interval until released.
type Lease struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// AcquireLease calls renew every interval until Release.
func AcquireLease(interval time.Duration, renew func()) *Lease {
	l := &Lease{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(l.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				renew()
			case <-l.stop:
				return
			}
		}
	}()
	return l
}

// Release stops renewal. It does not wait for a renewal already running;
// use Done for that. Safe to call more than once and on a nil lease.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() { close(l.stop) })
}

// Done is closed once the renewal goroutine has exited.
func (l *Lease) Done() <-chan struct{} {
	return l.done
}
