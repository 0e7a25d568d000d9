package engine

// EventType names one of the engine's notification channels.
type EventType string

const (
	// EventStateChanged fires after every mutating operation.
	EventStateChanged EventType = "state_changed"
	// EventGroupCompleted fires when a foundation clears a full group.
	EventGroupCompleted EventType = "group_completed"
	// EventWon fires once, when the last group is completed.
	EventWon EventType = "won"
)

// Event is delivered to every subscribed Listener.
type Event struct {
	Type    EventType
	GroupID string // set for EventGroupCompleted
}

// Listener receives engine events synchronously, on the caller's goroutine.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Subscribe registers fn and returns a function that removes it.
func (e *Engine) Subscribe(fn Listener) (unsubscribe func()) {
	e.nextSubID++
	id := e.nextSubID
	e.listeners = append(e.listeners, subscription{id: id, fn: fn})
	return func() {
		for i, s := range e.listeners {
			if s.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) emit(ev Event) {
	// Copy so listeners may unsubscribe while being notified.
	ls := make([]subscription, len(e.listeners))
	copy(ls, e.listeners)
	for _, s := range ls {
		s.fn(ev)
	}
}
