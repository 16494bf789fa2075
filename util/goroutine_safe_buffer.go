package util

import (
	"bytes"
	"strings"
	"sync"
)

// GoroutineSafeBuffer is an io.Writer that output plugins and the
// websocket tests can share across goroutines.
type GoroutineSafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func NewGoroutineSafeBuffer() *GoroutineSafeBuffer {
	return &GoroutineSafeBuffer{}
}

func (g *GoroutineSafeBuffer) Write(p []byte) (n int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.Write(p)
}

func (g *GoroutineSafeBuffer) String() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.String()
}

// Lines returns the non-empty lines written so far.
func (g *GoroutineSafeBuffer) Lines() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var lines []string
	for _, line := range strings.Split(g.buf.String(), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func (g *GoroutineSafeBuffer) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.Len()
}
