package guard

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultUnsafeLocations are the source files of the ingestion path.
var DefaultUnsafeLocations = []string{
	"api/store/endpoint.go",
	"core/eventstore/jsonl.go",
	"core/eventstore/jsonl_rotating.go",
	"core/eventstore/sqlite.go",
}

const initialDepth = 64

// Frame is the part of a stack frame used for membership tests.
type Frame struct {
	File     string
	Function string
}

// LocationSet is an immutable set of path suffixes considered unsafe.
type LocationSet struct {
	suffixes []string
}

// NewLocationSet builds a set from path suffixes. Suffixes are normalised to
// forward slashes; empty entries are ignored.
func NewLocationSet(suffixes ...string) LocationSet {
	out := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		s = filepath.ToSlash(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return LocationSet{suffixes: out}
}

// Len returns the number of suffixes in the set.
func (s LocationSet) Len() int { return len(s.suffixes) }

// Match reports whether file ends with one of the suffixes.
func (s LocationSet) Match(file string) bool {
	file = filepath.ToSlash(file)
	for _, suf := range s.suffixes {
		if strings.HasSuffix(file, suf) {
			return true
		}
	}
	return false
}

// StackGuard inspects the calling goroutine's stack. It never looks at other
// goroutines.
type StackGuard struct {
	locations LocationSet
	frames    func() []Frame
}

// NewStackGuard returns a StackGuard over the live call stack.
func NewStackGuard(locations LocationSet) *StackGuard {
	return &StackGuard{locations: locations, frames: callers}
}

// IsCurrentEventSafe returns false on the first frame located in an unsafe
// file and true once the stack is exhausted.
func (g *StackGuard) IsCurrentEventSafe(context.Context) bool {
	if g.locations.Len() == 0 {
		return true
	}
	for _, f := range g.frames() {
		if g.locations.Match(f.File) {
			return false
		}
	}
	return true
}

func callers() []Frame {
	pcs := make([]uintptr, initialDepth)
	var n int
	for {
		// skip runtime.Callers and callers itself
		n = runtime.Callers(2, pcs)
		if n < len(pcs) {
			break
		}
		pcs = make([]uintptr, len(pcs)*2)
	}
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]Frame, 0, n)
	for {
		f, more := frames.Next()
		out = append(out, Frame{File: f.File, Function: f.Function})
		if !more {
			break
		}
	}
	return out
}
