package domain

import "errors"

// ErrThreadNotFound is returned when a thread ID cannot be found in the store.
var ErrThreadNotFound = errors.New("thread not found")

// ErrMissingQuestion is reported when neither the messages nor the context carry a question.
var ErrMissingQuestion = errors.New("missing question")

// ErrUnknownAgent is returned when an identifier does not name a known agent.
var ErrUnknownAgent = errors.New("unknown agent")

// ErrMaxSteps is reported when a run exceeds its step budget without reaching the end.
var ErrMaxSteps = errors.New("max steps exceeded")

// ErrInvalidGraph is returned when a graph definition fails validation.
var ErrInvalidGraph = errors.New("invalid graph")

// ErrNoOutput is reported when a run terminates without any output or error.
var ErrNoOutput = errors.New("no agent produced output")
