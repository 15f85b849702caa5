package pipeline

import "errors"

var (
	// ErrChangeSetUnavailable indicates the changed files could not be
	// enumerated. The run aborts before anything executes.
	ErrChangeSetUnavailable = errors.New("change set unavailable")

	// ErrTestDiscovery indicates the test files could not be enumerated.
	ErrTestDiscovery = errors.New("test discovery failed")
)
