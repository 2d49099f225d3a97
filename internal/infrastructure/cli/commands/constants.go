package commands

import "github.com/doeshing/euca-validator/internal/domain"

// History listing defaults
const (
	// DefaultHistoryLimit is the default number of runs to display
	DefaultHistoryLimit = 20
	// TimestampFormat is used when listing runs
	TimestampFormat = domain.TimestampFormat
)

// Error messages
const (
	ErrValidatorUnavailable    = "validator service unavailable"
	ErrHistoryStoreUnavailable = "history store unavailable"
	ErrDoctorUnavailable       = "doctor service unavailable"
)

// Success messages
const (
	MsgNoHistoryRecorded        = "No validation runs recorded yet."
	MsgHistoryCleared           = "Validation history cleared."
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgConfigExists             = "Config already exists at %s (use --force to overwrite)"
	MsgConfigWritten            = "Wrote default config to %s"
)
