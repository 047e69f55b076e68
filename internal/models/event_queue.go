package models

import (
	"container/heap"
	"sync"
	"time"
)

const (
	EventOrderPlaced       = "OrderPlaced"
	EventStatusChanged     = "StatusChanged"
	EventDriverAssigned    = "DriverAssigned"
	EventLocationUpdated   = "LocationUpdated"
	EventInteractionLogged = "InteractionLogged"
	EventNotificationRetry = "NotificationRetry"

	// simulation steps
	EventSimPlaceOrder   = "SimPlaceOrder"
	EventSimAdvanceOrder = "SimAdvanceOrder"
	EventSimMoveDriver   = "SimMoveDriver"
)

// Event is a unit of work scheduled to run at Time.
type Event struct {
	Time time.Time
	Type string
	Data interface{}

	seq uint64
}

// EventQueue is a priority queue of events ordered by time. Events due at
// the same instant come out in the order they were enqueued.
type EventQueue struct {
	events eventHeap
	next   uint64
	mutex  sync.Mutex
	signal chan struct{}
}

type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time.Equal(h[j].Time) {
		return h[i].seq < h[j].seq
	}
	return h[i].Time.Before(h[j].Time)
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

func NewEventQueue() *EventQueue {
	return &EventQueue{signal: make(chan struct{}, 1)}
}

// Enqueue adds an event to the queue and wakes one waiter.
func (eq *EventQueue) Enqueue(event *Event) {
	eq.mutex.Lock()
	event.seq = eq.next
	eq.next++
	heap.Push(&eq.events, event)
	eq.mutex.Unlock()

	select {
	case eq.signal <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the earliest event, or nil when empty.
func (eq *EventQueue) Dequeue() *Event {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	if len(eq.events) == 0 {
		return nil
	}
	return heap.Pop(&eq.events).(*Event)
}

// PopDue removes and returns the earliest event if it is due at now.
func (eq *EventQueue) PopDue(now time.Time) *Event {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	if len(eq.events) == 0 || eq.events[0].Time.After(now) {
		return nil
	}
	return heap.Pop(&eq.events).(*Event)
}

// Peek returns the earliest event without removing it
func (eq *EventQueue) Peek() *Event {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	if len(eq.events) == 0 {
		return nil
	}
	return eq.events[0]
}

func (eq *EventQueue) IsEmpty() bool {
	return eq.Len() == 0
}

func (eq *EventQueue) Len() int {
	eq.mutex.Lock()
	defer eq.mutex.Unlock()
	return len(eq.events)
}

// Wait returns a channel that receives after an Enqueue. Consumers use it
// to sleep until either new work arrives or the earliest event is due.
func (eq *EventQueue) Wait() <-chan struct{} {
	return eq.signal
}
