// Package errs collects the sentinel error kinds the routing and dispatch
// core distinguishes, per the error-handling taxonomy: lock contention,
// invalid rules, missing/invalid configuration, transient filesystem
// failures, transfer failures, tag parse failures, and an unreachable event
// sink. Callers compare with errors.Is; none of these propagate out of a
// per-series or per-folder loop body.
package errs

import "errors"

var (
	// ErrLockBusy means another worker already owns the resource. Never
	// surfaced as a failure — the caller silently skips its turn.
	ErrLockBusy = errors.New("lock busy")

	// ErrRuleInvalid means a single rule failed to parse or evaluate.
	// The rule is skipped; evaluation continues with the rest.
	ErrRuleInvalid = errors.New("rule invalid")

	// ErrConfigMissing means the configuration file could not be read.
	ErrConfigMissing = errors.New("config missing")

	// ErrConfigInvalid means the configuration file was read but failed
	// validation.
	ErrConfigInvalid = errors.New("config invalid")

	// ErrFSTransient covers mkdir/move/read failures against the shared
	// filesystem. The specific series or folder is abandoned for this
	// tick; the next tick retries.
	ErrFSTransient = errors.New("transient filesystem error")

	// ErrTransferFailure means the external DICOM transfer tool exited
	// non-zero. Drives the retry state machine.
	ErrTransferFailure = errors.New("transfer failure")

	// ErrTagParse means the sidecar tags file could not be parsed.
	// Operator intervention is required.
	ErrTagParse = errors.New("tag parse error")

	// ErrEventSinkUnreachable means the best-effort POST to the event
	// sink failed. Always swallowed by callers.
	ErrEventSinkUnreachable = errors.New("event sink unreachable")
)
