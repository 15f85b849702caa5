package runner

import "errors"

var (
	// ErrTestTimeout indicates a test invocation exceeded its timeout.
	ErrTestTimeout = errors.New("test execution timeout")

	// ErrUnsupportedLanguage indicates no command is configured for the
	// test unit's language.
	ErrUnsupportedLanguage = errors.New("no test command for language")

	// ErrCancelled marks tests that never started because the run was
	// cancelled.
	ErrCancelled = errors.New("cancelled")
)
