// Package payment verifies and decodes payment gateway webhooks.
//
// Every adapter checks the signature over the raw body before it looks at
// the payload. Purchases are correlated by the local reference that checkout
// hands to the gateway, never by guessing from pending rows.
package payment

import (
	"net/http"
	"strings"
)

type EventKind int

const (
	// EventIgnored is acknowledged without any state change.
	EventIgnored EventKind = iota
	EventCompleted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "ignored"
	}
}

type Event struct {
	ID        string
	Type      string
	Kind      EventKind
	Reference string
}

type Adapter interface {
	Gateway() string
	Verify(payload []byte, headers http.Header) error
	Parse(payload []byte) (*Event, error)
}

type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Gateway()] = a
	}
	return r
}

// Get looks an adapter up by gateway name, case-insensitively.
func (r *Registry) Get(gateway string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToUpper(strings.TrimSpace(gateway))]
	return a, ok
}

func (r *Registry) Gateways() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
