package domain

// StepError is the step name of the terminal chunk emitted when a run fails.
const StepError = "error"

// StreamChunk is one unit of progress, emitted after an agent completes.
type StreamChunk struct {
	Step     string `json:"step"`
	Data     any    `json:"data"`
	Final    bool   `json:"final"`
	Response string `json:"response,omitempty"`
}

// ErrorData is the payload of an error chunk.
type ErrorData struct {
	Error string `json:"error"`
}

// ErrorChunk builds the terminal chunk for a failed run.
func ErrorChunk(msg string) StreamChunk {
	return StreamChunk{Step: StepError, Data: ErrorData{Error: msg}}
}

// IsError reports whether c is the terminal error chunk.
func (c StreamChunk) IsError() bool {
	return c.Step == StepError
}
