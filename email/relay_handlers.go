package email

import (
	"context"
	"sort"
	"sync"

	"github.com/kasmail/kasmail-server/types"
)

var (
	handlersMu sync.RWMutex
	handlers   = make(map[string]RelayHandler)
)

// RelayHandler submits an outbound message to an external email provider
type RelayHandler interface {
	// Send returns the provider's message id
	Send(ctx context.Context, mail *types.RelayMail) (string, error)
}

// RegisterRelayHandler makes a relay handler available by the provided name.
// If RegisterRelayHandler is called twice with the same name or if handler is nil,
// it panics.
func RegisterRelayHandler(name string, h RelayHandler) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	if h == nil {
		panic("relay: Register handler is nil")
	}
	if _, dup := handlers[name]; dup {
		panic("relay: Register called twice for handler " + name)
	}
	handlers[name] = h
}

// for tests only
func UnregisterAllHandlers() {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers = make(map[string]RelayHandler)
}

// Handlers returns a sorted list of the names of the registered handlers.
func Handlers() []string {
	handlersMu.RLock()
	defer handlersMu.RUnlock()
	list := make([]string, 0, len(handlers))
	for name := range handlers {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

func GetHandler(name string) RelayHandler {
	handlersMu.RLock()
	defer handlersMu.RUnlock()
	if h, ok := handlers[name]; ok {
		return h
	}
	return nil
}
