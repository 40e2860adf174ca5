// Package dispatch routes events between the host game and the quest
// engine: inbound gameplay events ride bounded per-player ordered queues
// (at-least-once is acceptable, advancement is idempotent), outbound
// lifecycle events fan out to subscribers on their own queues so a slow
// subscriber never stalls the engine or its peers.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nvetoshkin/questline/internal/quest"
)

// EventSink consumes gameplay events in per-player arrival order.
// Implemented by the quest engine.
type EventSink interface {
	HandleEvent(playerID string, ev quest.GameplayEvent)
}

// Subscriber receives lifecycle events. Calls for one subscriber arrive in
// emission order on a dedicated goroutine.
type Subscriber interface {
	HandleLifecycle(ev quest.LifecycleEvent)
}

// ErrNotRunning is returned by Submit before Start or after shutdown.
var ErrNotRunning = errors.New("dispatcher not running")

// Config holds dispatcher queue sizes.
type Config struct {
	PlayerQueueSize     int // inbound gameplay events buffered per player
	SubscriberQueueSize int // lifecycle events buffered per subscriber
}

// DefaultConfig returns the default queue sizes.
func DefaultConfig() Config {
	return Config{
		PlayerQueueSize:     64,
		SubscriberQueueSize: 256,
	}
}

type subscriber struct {
	name string
	sub  Subscriber
	ch   chan quest.LifecycleEvent
}

type inboundEvent struct {
	playerID string
	ev       quest.GameplayEvent
}

// Dispatcher is the single logical event bus. Create with New, register
// subscribers, then Start; Submit and Emit are safe from any goroutine
// while running.
type Dispatcher struct {
	cfg Config

	mu      sync.Mutex
	engine  EventSink
	subs    []*subscriber
	queues  map[string]chan inboundEvent
	ctx     context.Context
	running bool

	wg sync.WaitGroup
}

var _ quest.LifecycleEmitter = (*Dispatcher)(nil)

// New creates a dispatcher. Bind the engine with Bind before Start; the
// engine itself is constructed with the dispatcher as its emitter, so the
// two are wired in that order.
func New(cfg Config) *Dispatcher {
	if cfg.PlayerQueueSize <= 0 {
		cfg.PlayerQueueSize = DefaultConfig().PlayerQueueSize
	}
	if cfg.SubscriberQueueSize <= 0 {
		cfg.SubscriberQueueSize = DefaultConfig().SubscriberQueueSize
	}
	return &Dispatcher{
		cfg:    cfg,
		queues: make(map[string]chan inboundEvent, 256),
	}
}

// Bind sets the gameplay event sink. Must be called before Start.
func (d *Dispatcher) Bind(engine EventSink) {
	d.mu.Lock()
	d.engine = engine
	d.mu.Unlock()
}

// Subscribe registers a lifecycle subscriber. Must be called before Start.
func (d *Dispatcher) Subscribe(name string, sub Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, &subscriber{
		name: name,
		sub:  sub,
		ch:   make(chan quest.LifecycleEvent, d.cfg.SubscriberQueueSize),
	})
}

// Start runs the dispatcher until ctx is cancelled, then waits for all
// worker goroutines to drain.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.engine == nil {
		d.mu.Unlock()
		return errors.New("dispatcher started without a bound engine")
	}
	d.ctx = ctx
	d.running = true
	for _, s := range d.subs {
		d.wg.Add(1)
		go d.runSubscriber(ctx, s)
	}
	d.mu.Unlock()

	slog.Info("dispatcher started",
		"subscribers", len(d.subs),
		"playerQueueSize", d.cfg.PlayerQueueSize)

	<-ctx.Done()

	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	d.wg.Wait()
	slog.Info("dispatcher stopped")
	return nil
}

// Submit enqueues a gameplay event on the player's ordered queue. A full
// queue drops the event with a warning; callers may retry, duplicate
// delivery is safe.
func (d *Dispatcher) Submit(playerID string, ev quest.GameplayEvent) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return ErrNotRunning
	}
	q, ok := d.queues[playerID]
	if !ok {
		q = make(chan inboundEvent, d.cfg.PlayerQueueSize)
		d.queues[playerID] = q
		d.wg.Add(1)
		go d.runPlayer(d.ctx, playerID, q)
	}
	d.mu.Unlock()

	select {
	case q <- inboundEvent{playerID: playerID, ev: ev}:
		return nil
	default:
		slog.Warn("player event queue full, dropping event",
			"playerID", playerID, "event", ev.Kind.String())
		return nil
	}
}

// Emit fans a lifecycle event out to every subscriber queue. Non-blocking:
// emission happens inside the engine's per-player update, so a subscriber
// that cannot keep up loses events instead of stalling transitions.
func (d *Dispatcher) Emit(ev quest.LifecycleEvent) {
	d.mu.Lock()
	subs := d.subs
	d.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		default:
			slog.Warn("subscriber queue full, dropping lifecycle event",
				"subscriber", s.name, "event", ev.Kind.String(),
				"playerID", ev.PlayerID, "questID", ev.QuestID)
		}
	}
}

// runPlayer applies one player's events in arrival order.
func (d *Dispatcher) runPlayer(ctx context.Context, playerID string, q chan inboundEvent) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-q:
			d.engine.HandleEvent(in.playerID, in.ev)
		}
	}
}

// runSubscriber delivers lifecycle events to one subscriber in order.
func (d *Dispatcher) runSubscriber(ctx context.Context, s *subscriber) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// Drain what is already queued before stopping.
			for {
				select {
				case ev := <-s.ch:
					s.sub.HandleLifecycle(ev)
				default:
					return
				}
			}
		case ev := <-s.ch:
			s.sub.HandleLifecycle(ev)
		}
	}
}
