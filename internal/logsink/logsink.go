// Package logsink provides the append-only text files the scheduled jobs
// write their human readable lines to.
package logsink

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/fx"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Module = fx.Module("logsink",
	fx.Provide(NewRegistry),
	fx.Invoke(registerShutdown),
)

// Writer appends whole lines to a sink.
type Writer interface {
	WriteLine(line string) error
}

// Sink is one rotated append-only file. Lines are written atomically with
// respect to other writers of the same sink.
type Sink struct {
	mu  sync.Mutex
	out io.WriteCloser
}

func (s *Sink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, strings.TrimRight(line, "\n")+"\n")
	return err
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}

// Registry hands out one Sink per path so concurrent jobs never interleave
// partial lines in the same file.
type Registry struct {
	mu    sync.Mutex
	sinks map[string]*Sink
}

func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]*Sink)}
}

// Open returns the sink for path, creating it on first use. The path is read
// per call so a reloaded jobs config takes effect on the next run.
func (r *Registry) Open(path string) (*Sink, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("logsink: empty path")
	}
	path = filepath.Clean(path)

	r.mu.Lock()
	defer r.mu.Unlock()
	if sink, ok := r.sinks[path]; ok {
		return sink, nil
	}
	sink := &Sink{out: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    16,
		MaxBackups: 3,
		MaxAge:     30,
	}}
	r.sinks[path] = sink
	return sink, nil
}

// Close closes every sink opened so far.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for path, sink := range r.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.sinks, path)
	}
	return firstErr
}

func registerShutdown(lc fx.Lifecycle, r *Registry) {
	lc.Append(fx.StopHook(r.Close))
}
