package harvest

import (
	"errors"
	"fmt"
)

// Sentinel errors used with errors.Is across the pipeline.
var (
	// ErrProxyUnreachable escalates the whole run to StatusFailed.
	ErrProxyUnreachable = errors.New("proxy unreachable")

	// ErrOverrideMissing fires at load time when a source is flagged as
	// needing a bespoke resolver but none is registered.
	ErrOverrideMissing = errors.New("resolver override not registered")
)

// ConfigurationError reports missing or contradictory source configuration.
// Fatal at load time, never retried.
type ConfigurationError struct {
	Source string
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("source %q: config key %q: %s", e.Source, e.Key, e.Reason)
	}
	return fmt.Sprintf("source %q: %s", e.Source, e.Reason)
}

// TransientFetchError marks a network/timeout/engine failure that is retried
// at the page level before escalating the run.
type TransientFetchError struct {
	URL string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// ResolutionError means a resolver could not build a valid URL for one
// offer/detail page. The offer is skipped, the run continues.
type ResolutionError struct {
	Source string
	Field  string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve url for %q (field %q): %v", e.Source, e.Field, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// MessagingFailure covers malformed inbound payloads and ledger-write
// failures. Always results in reject-and-requeue, never silent drop.
type MessagingFailure struct {
	Stage string
	Err   error
}

func (e *MessagingFailure) Error() string {
	return fmt.Sprintf("messaging %s: %v", e.Stage, e.Err)
}

func (e *MessagingFailure) Unwrap() error { return e.Err }
