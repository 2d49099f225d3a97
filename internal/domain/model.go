package domain

import (
	"encoding/json"
	"net"
	"net/url"
	"time"
)

// ExecutionResult captures a finished local process.
type ExecutionResult struct {
	Stdout     []byte
	Stderr     string
	ExitCode   int
	DurationMS int64
}

// RemoteResult is what the remote executor returns for one command.
type RemoteResult struct {
	Status int
	Output string
	Stderr string
}

// ServiceRecord is one entry reported by service discovery.
type ServiceRecord struct {
	Type       string
	URI        string
	LocalState string
}

// Host extracts the host part of the record's URI, without port.
func (s ServiceRecord) Host() string {
	u, err := url.Parse(s.URI)
	if err != nil || u.Host == "" {
		if host, _, err := net.SplitHostPort(s.URI); err == nil {
			return host
		}
		return ""
	}
	return u.Hostname()
}

// ValidationRequest selects what one orchestration run checks.
type ValidationRequest struct {
	Stage    string
	Role     Role
	Traverse bool
	// Record stores the run in history when a store is configured.
	Record bool
}

// ValidationReport is a finished run with its verdict.
type ValidationReport struct {
	Request  ValidationRequest
	Result   *Group
	Verdict  Verdict
	Started  time.Time
	Duration time.Duration
}

// RunRecord is one stored validation run.
type RunRecord struct {
	Timestamp    time.Time       `json:"timestamp"`
	Stage        string          `json:"stage"`
	Role         string          `json:"role"`
	Traverse     bool            `json:"traverse"`
	Failed       bool            `json:"failed"`
	FailureCount int             `json:"failure_count"`
	DurationMS   int64           `json:"duration_ms"`
	Result       json.RawMessage `json:"result,omitempty"`
}
