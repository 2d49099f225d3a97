package validator

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/euca-validator/internal/domain"
)

func TestBuildRemoteCommand(t *testing.T) {
	tests := []struct {
		role     string
		stage    string
		traverse bool
		want     string
	}{
		{"storage", "monitor", true, "euca-validator -t -C SC monitor -j"},
		{"cluster", "monitor", true, "euca-validator -t -C CC monitor -j"},
		{"walrus", "preinstall", false, "euca-validator -C WS preinstall -j"},
		{"NC", "monitor", false, "euca-validator -C NC monitor -j"},
		{"NC", "post install", false, "euca-validator -C NC 'post install' -j"},
		{"NC", "it's", false, `euca-validator -C NC 'it'\''s' -j`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := BuildRemoteCommand("euca-validator", tt.role, tt.stage, tt.traverse); got != tt.want {
				t.Fatalf("BuildRemoteCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDispatchWrapsPeerOutput(t *testing.T) {
	remote := &stubRemote{results: map[string]domain.RemoteResult{
		"10.0.0.5": {Output: `{"vg-check": {"failed": 1, "error": "volume group missing"}}`},
	}}
	f := &Fanout{Executor: remote, Command: "/usr/sbin/euca-validator"}

	inv := f.Dispatch(context.Background(), "monitor", Target{Key: "10.0.0.5-storage", Host: "10.0.0.5", Role: "storage", Traverse: true})

	out := domain.NewGroup()
	out.Set("vg-check", domain.Fail("volume group missing"))
	want := &domain.RemoteInvocation{Command: "/usr/sbin/euca-validator -t -C SC monitor -j", Output: out}
	if !domain.EqualNodes(want, inv) {
		t.Fatalf("Dispatch() = %#v, want %#v", inv, want)
	}
}

func TestDispatchFailures(t *testing.T) {
	tests := []struct {
		name     string
		result   domain.RemoteResult
		err      error
		contains string
		status   int
	}{
		{
			name:     "unreachable",
			err:      errUnreachable,
			contains: "connection refused",
		},
		{
			name:     "non zero status",
			result:   domain.RemoteResult{Status: 127, Stderr: "euca-validator: command not found\n"},
			contains: "exited with status 127: euca-validator: command not found",
			status:   127,
		},
		{
			name:     "unparsable output",
			result:   domain.RemoteResult{Output: "Traceback (most recent call last):"},
			contains: domain.ErrMalformedResult.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &stubRemote{
				results: map[string]domain.RemoteResult{"h": tt.result},
				errs:    map[string]error{"h": tt.err},
			}
			inv := (&Fanout{Executor: remote}).Dispatch(context.Background(), "monitor", Target{Key: "h", Host: "h", Role: "NC"})

			if inv.Status != tt.status {
				t.Fatalf("Status = %d, want %d", inv.Status, tt.status)
			}
			assertRemoteFailure(t, inv, tt.contains)
		})
	}
}

func TestDispatchCancelledContext(t *testing.T) {
	remote := &stubRemote{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := (&Fanout{Executor: remote}).Dispatch(ctx, "monitor", Target{Key: "h", Host: "h", Role: "NC"})
	assertRemoteFailure(t, inv, "not started")
	if remote.command("h") != "" {
		t.Fatal("executor called with a cancelled context")
	}
}

func TestDispatchTimeout(t *testing.T) {
	remote := &stubRemote{delays: map[string]time.Duration{"slow": time.Minute}}
	f := &Fanout{Executor: remote, Timeout: 20 * time.Millisecond}

	start := time.Now()
	inv := f.Dispatch(context.Background(), "monitor", Target{Key: "slow", Host: "slow", Role: "NC"})
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Dispatch() took %s", elapsed)
	}
	assertRemoteFailure(t, inv, context.DeadlineExceeded.Error())
}

func TestDispatchWithoutExecutor(t *testing.T) {
	inv := (&Fanout{}).Dispatch(context.Background(), "monitor", Target{Key: "h", Host: "h", Role: "NC"})
	assertRemoteFailure(t, inv, "no remote executor")
}

func TestDispatchAllKeepsTargetOrder(t *testing.T) {
	remote := &stubRemote{
		results: map[string]domain.RemoteResult{
			"a": {Output: `{"a": {"failed": 0}}`},
			"b": {Output: `{"b": {"failed": 0}}`},
			"c": {Output: `{"c": {"failed": 0}}`},
		},
		delays: map[string]time.Duration{"a": 60 * time.Millisecond, "b": 30 * time.Millisecond},
	}
	targets := []Target{{Key: "a", Host: "a", Role: "NC"}, {Key: "b", Host: "b", Role: "NC"}, {Key: "c", Host: "c", Role: "NC"}}

	results := (&Fanout{Executor: remote, Parallelism: 3}).DispatchAll(context.Background(), "monitor", targets)

	var got []string
	for _, inv := range results {
		out := inv.Output.(*domain.Group)
		got = append(got, out.Names()...)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Fatalf("result order mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchAllIsolatesFailures(t *testing.T) {
	remote := &stubRemote{
		results: map[string]domain.RemoteResult{"b": {Output: `{"ok": {"failed": 0}}`}},
		errs:    map[string]error{"a": errUnreachable},
	}
	targets := []Target{{Key: "a", Host: "a", Role: "storage"}, {Key: "b", Host: "b", Role: "walrus"}}

	results := (&Fanout{Executor: remote}).DispatchAll(context.Background(), "monitor", targets)

	assertRemoteFailure(t, results[0], "connection refused")
	verdict, err := domain.AggregateFrom(results[1], "b")
	if err != nil || verdict.Failed {
		t.Fatalf("healthy peer verdict = %+v, err = %v", verdict, err)
	}
}

func TestDispatchAllRespectsParallelism(t *testing.T) {
	remote := &stubRemote{
		results: map[string]domain.RemoteResult{},
		delays:  map[string]time.Duration{},
	}
	var targets []Target
	for i := 0; i < 12; i++ {
		host := fmt.Sprintf("node-%d", i)
		remote.results[host] = domain.RemoteResult{Output: `{}`}
		remote.delays[host] = 20 * time.Millisecond
		targets = append(targets, Target{Key: host, Host: host, Role: "NC"})
	}

	results := (&Fanout{Executor: remote, Parallelism: 3}).DispatchAll(context.Background(), "monitor", targets)
	if len(results) != len(targets) {
		t.Fatalf("got %d results", len(results))
	}
	if remote.maxInFlight > 3 {
		t.Fatalf("max in flight = %d, want <= 3", remote.maxInFlight)
	}
}

func TestNewFanoutFromSettings(t *testing.T) {
	f := NewFanout(nil, domain.RemoteSettings{Command: "ev", TimeoutSeconds: 7, Parallelism: 2}, nil)
	if f.Command != "ev" || f.Timeout != 7*time.Second || f.Parallelism != 2 {
		t.Fatalf("NewFanout() = %+v", f)
	}
}

func assertRemoteFailure(t *testing.T, inv *domain.RemoteInvocation, contains string) {
	t.Helper()
	out, ok := inv.Output.(*domain.Group)
	if !ok {
		t.Fatalf("Output = %#v, want group", inv.Output)
	}
	node, ok := out.Get(domain.RemoteFailureKey)
	if !ok || out.Len() != 1 {
		t.Fatalf("Output keys = %v, want only %s", out.Names(), domain.RemoteFailureKey)
	}
	leaf, ok := node.(*domain.Leaf)
	if !ok || !leaf.Failed {
		t.Fatalf("failure node = %#v", node)
	}
	if !strings.Contains(leaf.Error, contains) {
		t.Fatalf("error %q does not contain %q", leaf.Error, contains)
	}
	if !strings.HasPrefix(leaf.Error, domain.ErrRemoteDispatch.Error()) {
		t.Fatalf("error %q not tagged as dispatch failure", leaf.Error)
	}
}
