package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/doeshing/euca-validator/internal/app"
	"github.com/doeshing/euca-validator/internal/application/validator"
	"github.com/doeshing/euca-validator/internal/domain"
	"github.com/doeshing/euca-validator/internal/infrastructure/config"
	"github.com/doeshing/euca-validator/internal/infrastructure/executor"
)

func init() {
	color.NoColor = true
}

// newTestContainer wires real adapters over a temp directory holding a
// validator document and the named scripts, each printing its output.
func newTestContainer(t *testing.T, scripts map[string]string, order ...string) *app.Container {
	t.Helper()
	dir := t.TempDir()
	scriptDir := filepath.Join(dir, "scripts")
	if err := os.MkdirAll(scriptDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, output := range scripts {
		body := "#!/bin/sh\ncat <<'JSON'\n" + output + "\nJSON\n"
		if err := os.WriteFile(filepath.Join(scriptDir, name), []byte(body), 0o755); err != nil {
			t.Fatalf("write script: %v", err)
		}
	}

	var doc strings.Builder
	doc.WriteString("monitor:\n  CLC:\n")
	for _, name := range order {
		doc.WriteString("    - " + name + "\n")
	}
	docPath := filepath.Join(dir, "validator.yaml")
	if err := os.WriteFile(docPath, []byte(doc.String()), 0o644); err != nil {
		t.Fatalf("write validator.yaml: %v", err)
	}

	cfg := domain.AdminConfig{
		ValidatorConfigPath: docPath,
		ValidatorScriptPath: scriptDir,
		Remote:              domain.RemoteSettings{Command: domain.DefaultRemoteCommand},
	}
	return &app.Container{
		Config: cfg,
		Validator: &validator.Service{
			Config: cfg,
			Merger: config.NewYAMLMerger(nil),
			Runner: executor.NewLocalExecutor("", time.Minute),
		},
	}
}

func failingContainer(t *testing.T) *app.Container {
	return newTestContainer(t, map[string]string{
		"monitor-script-1": `{"failed": 0}`,
		"monitor-script-2": `{"failed": 1, "error": "disk full"}`,
	}, "monitor-script-1", "monitor-script-2")
}

func TestRunValidationHumanOutput(t *testing.T) {
	var out bytes.Buffer
	err := runValidation(context.Background(), &out, failingContainer(t), ValidateOptions{Stage: "monitor", Component: "CLC"})
	if !errors.Is(err, domain.ErrChecksFailed) {
		t.Fatalf("runValidation() error = %v, want ErrChecksFailed", err)
	}
	if got := out.String(); got != "monitor-script-2: disk full\n" {
		t.Fatalf("output = %q", got)
	}
}

type recordingIndicator struct {
	events []string
}

func (r *recordingIndicator) Start() { r.events = append(r.events, "start") }
func (r *recordingIndicator) Stop()  { r.events = append(r.events, "stop") }

func TestRunValidationStopsProgressBeforeOutput(t *testing.T) {
	progress := &recordingIndicator{}
	var out bytes.Buffer
	_ = runValidation(context.Background(), &out, failingContainer(t), ValidateOptions{Stage: "monitor", Component: "CLC", Progress: progress})
	if len(progress.events) != 2 || progress.events[0] != "start" || progress.events[1] != "stop" {
		t.Fatalf("progress events = %v", progress.events)
	}
}

func TestRunValidationQuiet(t *testing.T) {
	var out bytes.Buffer
	err := runValidation(context.Background(), &out, failingContainer(t), ValidateOptions{Stage: "monitor", Component: "CLC", Quiet: true})
	if !errors.Is(err, domain.ErrChecksFailed) {
		t.Fatalf("runValidation() error = %v, want ErrChecksFailed", err)
	}
	if out.Len() != 0 {
		t.Fatalf("quiet mode printed %q", out.String())
	}
}

func TestRunValidationJSON(t *testing.T) {
	var out bytes.Buffer
	err := runValidation(context.Background(), &out, failingContainer(t), ValidateOptions{Stage: "monitor", Component: "CLC", JSON: true})
	if err != nil {
		t.Fatalf("runValidation() error = %v", err)
	}

	got, err := domain.ParseGroup(out.Bytes())
	if err != nil {
		t.Fatalf("ParseGroup() error = %v\n%s", err, out.String())
	}
	want := domain.NewGroup()
	want.Set("monitor-script-1", domain.Pass())
	want.Set("monitor-script-2", domain.Fail("disk full"))
	if !want.Equal(got) {
		t.Fatalf("JSON tree = %s", out.String())
	}
	if !strings.Contains(out.String(), "\n    \"monitor-script-1\"") {
		t.Fatalf("expected four space indentation:\n%s", out.String())
	}
}

func TestRunValidationPassing(t *testing.T) {
	container := newTestContainer(t, map[string]string{"ok": `{"failed": 0}`}, "ok")

	var out bytes.Buffer
	if err := runValidation(context.Background(), &out, container, ValidateOptions{Stage: "monitor", Component: "CLC"}); err != nil {
		t.Fatalf("runValidation() error = %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("passing run printed %q", out.String())
	}
}

func TestRunValidationParallelOverride(t *testing.T) {
	container := newTestContainer(t, nil)
	container.Validator.Fanout = &validator.Fanout{Parallelism: 8}

	if err := runValidation(context.Background(), &bytes.Buffer{}, container, ValidateOptions{Stage: "monitor", Component: "CLC", Parallel: 2}); err != nil {
		t.Fatalf("runValidation() error = %v", err)
	}
	if container.Validator.Fanout.Parallelism != 2 {
		t.Fatalf("Parallelism = %d, want 2", container.Validator.Fanout.Parallelism)
	}
}

func TestRunValidationRejectsInvalidConfig(t *testing.T) {
	container := failingContainer(t)
	container.Config.Discovery.Backend = "zookeeper"

	err := runValidation(context.Background(), &bytes.Buffer{}, container, ValidateOptions{Stage: "monitor", Component: "CLC"})
	if err == nil || !strings.Contains(err.Error(), "discovery.backend") {
		t.Fatalf("runValidation() error = %v", err)
	}
}

func TestRunValidationErrors(t *testing.T) {
	if err := runValidation(context.Background(), &bytes.Buffer{}, &app.Container{}, ValidateOptions{}); err == nil || err.Error() != ErrValidatorUnavailable {
		t.Fatalf("runValidation() error = %v", err)
	}

	factoryErr := errors.New("bad admin config")
	factory := func(context.Context) (*app.Container, error) { return nil, factoryErr }
	if err := RunValidation(context.Background(), &bytes.Buffer{}, factory, ValidateOptions{}); !errors.Is(err, factoryErr) {
		t.Fatalf("RunValidation() error = %v", err)
	}
}
