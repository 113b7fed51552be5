package store

import (
	"context"
	"log"
	"sync"
	"time"

	"flyte-sync/internal/models"
)

// observerRegistry tracks live subscriptions and wakes them after
// commits that touched their tables. Waking is a non-blocking set on a
// coalescing channel, so writers never wait on slow consumers.
type observerRegistry struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
}

type subscription struct {
	tables map[string]bool
	wake   chan struct{}
	stop   chan struct{}
	once   sync.Once
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{subs: make(map[*subscription]struct{})}
}

func (r *observerRegistry) register(tables ...string) *subscription {
	sub := &subscription{
		tables: make(map[string]bool, len(tables)),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	for _, t := range tables {
		sub.tables[t] = true
	}
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	return sub
}

func (r *observerRegistry) unregister(sub *subscription) {
	r.mu.Lock()
	delete(r.subs, sub)
	r.mu.Unlock()
	sub.close()
}

func (r *observerRegistry) notify(touched map[string]bool) {
	if len(touched) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subs {
		for table := range touched {
			if sub.tables[table] {
				select {
				case sub.wake <- struct{}{}:
				default:
				}
				break
			}
		}
	}
}

func (r *observerRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subs {
		sub.close()
		delete(r.subs, sub)
	}
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.stop) })
}

// observeQuery runs query once immediately and again after every commit
// touching the given tables, pushing results to the returned channel.
// The latest result wins when the consumer lags. Cancel stops delivery
// and closes the channel; no emission follows it.
func observeQuery[T any](s *Store, ctx context.Context, query func(context.Context) (T, error), tables ...string) (<-chan T, func()) {
	// Registration happens before the first evaluation so a transaction
	// committing concurrently is guaranteed to wake us.
	sub := s.observers.register(tables...)
	out := make(chan T, 1)

	go func() {
		defer close(out)
		for {
			rows, err := query(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("observe query failed: %v", err)
				}
			} else if !push(out, rows, sub.stop, ctx.Done()) {
				return
			}

			select {
			case <-sub.wake:
			case <-sub.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { s.observers.unregister(sub) }
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.observers.unregister(sub)
			case <-sub.stop:
			}
		}()
	}
	return out, cancel
}

// push delivers v, displacing a stale buffered value if the consumer has
// not drained it yet. Returns false when the subscription stopped.
// Stop and done are checked on their own before every send attempt: a
// combined select would choose uniformly among ready cases and could
// still emit after cancellation.
func push[T any](out chan T, v T, stop <-chan struct{}, done <-chan struct{}) bool {
	for {
		select {
		case <-stop:
			return false
		case <-done:
			return false
		default:
		}

		select {
		case out <- v:
			return true
		default:
		}
		select {
		case <-out:
		default:
		}
		// Yield so a concurrent receive can make room.
		time.Sleep(time.Millisecond)
	}
}

// ObserveRooms emits the active room list immediately and after every
// transaction touching rooms.
func (s *Store) ObserveRooms(ctx context.Context, includeExpired bool) (<-chan []models.Room, func()) {
	return observeQuery(s, ctx, func(ctx context.Context) ([]models.Room, error) {
		return s.ListRooms(ctx, includeExpired, time.Now().UnixMilli())
	}, tableRooms)
}

// ObserveRoomMessages emits a room's message list immediately and after
// every transaction touching messages.
func (s *Store) ObserveRoomMessages(ctx context.Context, roomID string) (<-chan []models.Message, func()) {
	return observeQuery(s, ctx, func(ctx context.Context) ([]models.Message, error) {
		return s.ListRoomMessages(ctx, roomID)
	}, tableMessages)
}
