package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

type hookEntry struct {
	id   uint64
	hook zerolog.Hook
}

// hookSet fans every record out to the hooks registered at runtime. Loggers
// are usually built before the reporting pipeline exists, so they hold the
// set rather than individual hooks.
type hookSet struct {
	mu      sync.RWMutex
	nextID  uint64
	entries []hookEntry
}

var registered = &hookSet{}

func (s *hookSet) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	s.mu.RLock()
	entries := s.entries
	s.mu.RUnlock()
	for _, en := range entries {
		en.hook.Run(e, level, msg)
	}
}

// AddHook registers h on every logger created by this package, including
// loggers created before the call. The returned function removes it.
func AddHook(h zerolog.Hook) (remove func()) {
	registered.mu.Lock()
	registered.nextID++
	id := registered.nextID
	next := make([]hookEntry, 0, len(registered.entries)+1)
	registered.entries = append(append(next, registered.entries...), hookEntry{id: id, hook: h})
	registered.mu.Unlock()
	return func() {
		registered.mu.Lock()
		defer registered.mu.Unlock()
		next := make([]hookEntry, 0, len(registered.entries))
		for _, en := range registered.entries {
			if en.id != id {
				next = append(next, en)
			}
		}
		registered.entries = next
	}
}
