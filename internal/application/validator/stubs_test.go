package validator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/doeshing/euca-validator/internal/domain"
)

type stubMerger struct {
	cfg   domain.MergedConfig
	err   error
	paths []string
}

func (s *stubMerger) Merge(_ context.Context, paths []string) (domain.MergedConfig, error) {
	s.paths = paths
	return s.cfg, s.err
}

// stubRunner answers by script base name.
type stubRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   []string
	envs    [][]string
}

func (s *stubRunner) Run(_ context.Context, path string, env []string) (domain.ExecutionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, path)
	s.envs = append(s.envs, env)
	name := filepath.Base(path)
	return domain.ExecutionResult{Stdout: []byte(s.outputs[name])}, s.errs[name]
}

// stubRemote answers by host.
type stubRemote struct {
	mu       sync.Mutex
	results  map[string]domain.RemoteResult
	errs     map[string]error
	delays   map[string]time.Duration
	commands map[string]string

	inFlight    int32
	maxInFlight int32
}

func (s *stubRemote) Run(ctx context.Context, host, command string) (domain.RemoteResult, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		cur := atomic.LoadInt32(&s.maxInFlight)
		if n <= cur || atomic.CompareAndSwapInt32(&s.maxInFlight, cur, n) {
			break
		}
	}

	s.mu.Lock()
	if s.commands == nil {
		s.commands = make(map[string]string)
	}
	s.commands[host] = command
	delay := s.delays[host]
	res, err := s.results[host], s.errs[host]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return domain.RemoteResult{}, ctx.Err()
		}
	}
	return res, err
}

func (s *stubRemote) command(host string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commands[host]
}

type stubDiscovery struct {
	records []domain.ServiceRecord
	err     error
	called  bool
}

func (s *stubDiscovery) Services(context.Context) ([]domain.ServiceRecord, error) {
	s.called = true
	return s.records, s.err
}

type stubNodes struct {
	nodes []string
	err   error
}

func (s stubNodes) Nodes(context.Context) ([]string, error) {
	return s.nodes, s.err
}

type stubHistory struct {
	saved []domain.RunRecord
	err   error
}

func (s *stubHistory) Save(rec domain.RunRecord) error {
	s.saved = append(s.saved, rec)
	return s.err
}

func (s *stubHistory) Records(int, bool) ([]domain.RunRecord, error) { return s.saved, nil }
func (s *stubHistory) Clear() error                                  { s.saved = nil; return nil }
func (s *stubHistory) Path() string                                  { return "memory" }

var errUnreachable = errors.New("dial tcp 10.0.0.5:22: connect: connection refused")

// scriptDir creates empty files for each name so the catalog can resolve them.
func scriptDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatalf("write script %s: %v", name, err)
		}
	}
	return dir
}

func searchPath(dirs ...string) string {
	return strings.Join(dirs, ":")
}
