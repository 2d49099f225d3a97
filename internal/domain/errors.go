package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResult marks a result document or tree that does not have
	// one of the three result shapes.
	ErrMalformedResult = errors.New("malformed result")
	// ErrScriptNotFound is reported when a configured script exists on no
	// search path entry.
	ErrScriptNotFound = errors.New("script not found")
	// ErrScriptOutput is reported when a script's stdout is not a result
	// document.
	ErrScriptOutput = errors.New("unparsable script output")
	// ErrRemoteDispatch wraps every failure to obtain a result from a peer.
	ErrRemoteDispatch = errors.New("remote dispatch failed")
)

// ConfigParseError is returned when a configuration source exists but cannot
// be parsed. It aborts the run.
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

// ErrChecksFailed is returned by the CLI when the verdict is a failure; it
// maps to a non-zero exit status without an error message.
var ErrChecksFailed = errors.New("one or more checks failed")
