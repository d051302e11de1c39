package eventloop

import (
	"slices"
	"sync"
)

type (
	// EventTarget is a minimal DOM-style event target, embedded by the host
	// objects of this package ([Window], [WorkerScope], [Element]).
	//
	// Registration is safe for concurrent use. Listeners are called on the
	// goroutine calling DispatchEvent, always the loop within this package.
	EventTarget struct {
		listeners map[string][]registeredListener
		lastID    ListenerID
		mu        sync.Mutex
	}

	// EventListenerFunc receives events, see [EventTarget.AddEventListener].
	EventListenerFunc func(event *Event)

	// ListenerID identifies a registration, for removal, as functions are
	// not comparable. Zero is never issued.
	ListenerID uint64

	// Event is dispatched to listeners. It must not be retained, or shared
	// between goroutines, by listeners.
	Event struct {
		// Target is set by DispatchEvent.
		Target *EventTarget
		detail any
		// Type selects the listeners, e.g. "message".
		Type string
	}

	registeredListener struct {
		fn EventListenerFunc
		id ListenerID
	}
)

// NewEventTarget returns a target with no listeners.
func NewEventTarget() *EventTarget {
	return &EventTarget{listeners: make(map[string][]registeredListener)}
}

// NewEvent returns an event of the given type.
func NewEvent(eventType string) *Event {
	return &Event{Type: eventType}
}

// NewCustomEvent returns an event carrying detail, see [Event.Detail].
func NewCustomEvent(eventType string, detail any) *Event {
	return &Event{Type: eventType, detail: detail}
}

// Detail returns the data the event was created with, if any.
func (e *Event) Detail() any {
	return e.detail
}

// AddEventListener appends fn to the listeners for eventType. A nil fn is
// ignored, returning 0.
func (et *EventTarget) AddEventListener(eventType string, fn EventListenerFunc) ListenerID {
	if fn == nil {
		return 0
	}
	et.mu.Lock()
	defer et.mu.Unlock()
	et.lastID++
	et.listeners[eventType] = append(et.listeners[eventType], registeredListener{fn: fn, id: et.lastID})
	return et.lastID
}

// RemoveEventListener removes the listener registered as id, reporting
// whether it was found.
func (et *EventTarget) RemoveEventListener(eventType string, id ListenerID) bool {
	et.mu.Lock()
	defer et.mu.Unlock()
	entries := et.listeners[eventType]
	i := slices.IndexFunc(entries, func(v registeredListener) bool { return v.id == id })
	if i < 0 {
		return false
	}
	// clone, as dispatch may be iterating the old slice
	entries = slices.Delete(slices.Clone(entries), i, i+1)
	if len(entries) == 0 {
		delete(et.listeners, eventType)
	} else {
		et.listeners[eventType] = entries
	}
	return true
}

// ListenerCount returns the number of listeners for eventType.
func (et *EventTarget) ListenerCount(eventType string) int {
	et.mu.Lock()
	defer et.mu.Unlock()
	return len(et.listeners[eventType])
}

// DispatchEvent calls the listeners for event.Type, in registration order,
// as they were when dispatch started. Panics propagate.
func (et *EventTarget) DispatchEvent(event *Event) {
	if event == nil {
		return
	}
	event.Target = et
	et.mu.Lock()
	entries := et.listeners[event.Type]
	et.mu.Unlock()
	for _, entry := range entries {
		entry.fn(event)
	}
}
