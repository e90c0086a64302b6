package printer

import (
	"sync"

	"github.com/mzyy94/niimprint/internal/niim"
)

// EventKind identifies a Printer notification.
type EventKind int

const (
	EventConnect    EventKind = iota + 1 // connection established
	EventDisconnect                      // connection closed or lost
	EventPacket                          // any packet received
	EventPrintStart                      // print job accepted by the device
	EventPrintEnd                        // print job finished
	EventFrameError                      // a received frame failed validation
	EventHeartbeat                       // monitor received a heartbeat
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventPacket:
		return "packet"
	case EventPrintStart:
		return "printStart"
	case EventPrintEnd:
		return "printEnd"
	case EventFrameError:
		return "frameError"
	case EventHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Event is dispatched synchronously to every listener.
type Event struct {
	Kind      EventKind
	Packet    *niim.Packet    // EventPacket
	Heartbeat *niim.Heartbeat // EventHeartbeat
	Err       error           // EventFrameError; EventDisconnect when the link was lost
}

// Listener receives events. It runs on the goroutine that caused the event
// (the reception loop for packets) and must not block.
type Listener func(Event)

type listenerSet struct {
	mu   sync.RWMutex
	next int
	fns  map[int]Listener
}

func (s *listenerSet) add(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]Listener)
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}
}

func (s *listenerSet) emit(ev Event) {
	s.mu.RLock()
	fns := make([]Listener, 0, len(s.fns))
	for id := range s.next {
		if fn, ok := s.fns[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
