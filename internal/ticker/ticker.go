package ticker

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Chan is a single named tick subscription. Ticks arrive on C; if the
// subscriber is slow, ticks coalesce rather than queue.
type Chan struct {
	C    <-chan time.Time
	name string
	stop chan struct{}
	done chan struct{}
}

// Name returns the subscription name.
func (c *Chan) Name() string {
	return c.name
}

// Service delivers periodic timestamps to named subscribers. Subscription
// names are unique among live subscriptions; Unsubscribe frees the name so
// a later subscriber may reclaim it.
type Service struct {
	mu   sync.Mutex
	subs map[string]*Chan
}

// NewService creates an empty ticker service.
func NewService() *Service {
	return &Service{subs: make(map[string]*Chan)}
}

// Subscribe registers a new named subscription ticking every interval.
// It fails if the name is already held by a live subscription.
func (s *Service) Subscribe(interval time.Duration, name string) (*Chan, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("ticker: invalid interval %s for %q", interval, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subs[name]; exists {
		return nil, fmt.Errorf("ticker: subscription %q already exists", name)
	}

	out := make(chan time.Time, 1)
	ch := &Chan{
		C:    out,
		name: name,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.subs[name] = ch

	go func() {
		defer close(ch.done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case now := <-t.C:
				select {
				case out <- now:
				default:
					// subscriber still processing the previous tick
				}
			case <-ch.stop:
				return
			}
		}
	}()

	return ch, nil
}

// Unsubscribe stops delivery and releases the subscription name. It waits
// for the delivery goroutine to exit, so once it returns the name may be
// subscribed again.
func (s *Service) Unsubscribe(ch *Chan) {
	if ch == nil {
		return
	}

	s.mu.Lock()
	cur, ok := s.subs[ch.name]
	if !ok || cur != ch {
		s.mu.Unlock()
		log.Printf("ticker: unsubscribe of unknown channel %q ignored", ch.name)
		return
	}
	delete(s.subs, ch.name)
	s.mu.Unlock()

	close(ch.stop)
	<-ch.done
}
