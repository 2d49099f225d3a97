package logger

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Wrap(zap.New(core))

	log.Debug("dispatching", map[string]interface{}{"host": "10.0.0.5"})
	log.Error("save run history", errors.New("disk full"), map[string]interface{}{"path": "/var/lib/history.db"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if got := entries[0].ContextMap()["host"]; got != "10.0.0.5" {
		t.Fatalf("host field = %v", got)
	}
	fields := entries[1].ContextMap()
	if entries[1].Level != zapcore.ErrorLevel || fields["error"] != "disk full" || fields["path"] != "/var/lib/history.db" {
		t.Fatalf("unexpected error entry: %v %v", entries[1].Level, fields)
	}
}

func TestZapLoggerLevelThreshold(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := Wrap(zap.New(core))

	log.Debug("hidden", nil)
	log.Info("hidden", nil)
	log.Warn("shown", nil)

	if logs.Len() != 1 || logs.All()[0].Message != "shown" {
		t.Fatalf("unexpected entries: %v", logs.All())
	}
}

func TestSyncIgnoresUnsyncableStderr(t *testing.T) {
	if err := New(false).Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if err := NewNop().Sync(); err != nil {
		t.Fatalf("nop Sync() error = %v", err)
	}
}

func TestIgnoreUnsyncable(t *testing.T) {
	for _, errno := range []error{syscall.EINVAL, syscall.ENOTTY} {
		if err := ignoreUnsyncable(&os.PathError{Op: "sync", Path: "/dev/stderr", Err: errno}); err != nil {
			t.Errorf("ignoreUnsyncable(%v) = %v, want nil", errno, err)
		}
	}
	other := &os.PathError{Op: "sync", Path: "/var/log/x", Err: syscall.EIO}
	if err := ignoreUnsyncable(other); !errors.Is(err, syscall.EIO) {
		t.Fatalf("ignoreUnsyncable(EIO) = %v, want EIO", err)
	}
}
