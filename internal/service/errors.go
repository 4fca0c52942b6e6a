package service

import "errors"

// Sentinel errors surfaced to callers. Handlers match these with errors.Is to
// pick response codes; none of them are retried internally.
var (
	// ErrUnknownTemplate means the caller referenced a template id the
	// catalog has never bundled. No job is created.
	ErrUnknownTemplate = errors.New("unknown template")

	// ErrUnknownRender means the render id was never issued (or expired).
	ErrUnknownRender = errors.New("unknown render id")

	// ErrBundle wraps a failed catalog bundle. The failure is not cached;
	// the next catalog access retries.
	ErrBundle = errors.New("template bundle failed")

	// ErrMalformedBatch rejects a batch before any task runs.
	ErrMalformedBatch = errors.New("malformed batch task list")

	// ErrJobNotCompleted means a result was requested for a job that has not
	// reached the completed state.
	ErrJobNotCompleted = errors.New("job not completed")

	// ErrNotCancelable means cancellation arrived after the job left pending.
	ErrNotCancelable = errors.New("job already started")

	// ErrTranscriptNotFound means no transcript is stored under the id.
	ErrTranscriptNotFound = errors.New("transcript not found")
)
