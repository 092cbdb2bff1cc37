package server

import (
	"context"
	"sync"
	"time"
)

const (
	RealtimeEventRollStarted = "roll-started"
	RealtimeEventRollEnded   = "roll-ended"
	RealtimeEventFrameLogged = "frame-logged"
	realtimeEventHeartbeat   = "heartbeat"
	realtimeSourceBackend    = "filmlog"
	realtimeBufferSize       = 16
)

// RealtimeMessage describes one change to a roll.
type RealtimeMessage struct {
	RollID      string
	EventType   string
	FrameNumber int
	Timestamp   time.Time
}

// RealtimeDispatcher fans roll changes out to subscribers of that roll.
// Slow subscribers lose messages instead of blocking the publisher. Streams
// are only closed under mu, and sends happen under mu, so a send never races
// a close.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  realtimeBufferSize,
	}
}

// Subscribe registers for changes to one roll until ctx ends or cleanup runs.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, rollID string) (<-chan RealtimeMessage, func()) {
	if rollID == "" {
		ch := make(chan RealtimeMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(rollID, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.unregisterSubscriber(rollID, subscriber.id)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers the message to the roll's subscribers without blocking.
// A roll-ended message is the last one a stream carries: the roll's
// subscribers are dropped and their streams closed after it.
func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.RollID == "" || message.EventType == "" {
		return
	}
	if message.EventType == RealtimeEventRollEnded {
		d.finishRoll(message)
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, subscriber := range d.subscribers[message.RollID] {
		deliver(subscriber, message)
	}
}

func (d *RealtimeDispatcher) finishRoll(message RealtimeMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subscribers := d.subscribers[message.RollID]
	delete(d.subscribers, message.RollID)
	for _, subscriber := range subscribers {
		deliver(subscriber, message)
		close(subscriber.stream)
	}
}

func deliver(subscriber *realtimeSubscriber, message RealtimeMessage) {
	select {
	case subscriber.stream <- message:
	default:
	}
}

// SubscriberCount reports how many subscribers follow the roll.
func (d *RealtimeDispatcher) SubscriberCount(rollID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[rollID])
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(rollID string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[rollID]; !ok {
		d.subscribers[rollID] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[rollID][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(rollID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[rollID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, rollID)
		}
	}
	d.mu.Unlock()
}
