package worker

import "encoding/json"

// Message types sent by workers before the first request.
const (
	TypeReady = "ready"
	TypeError = "error"
)

// MethodShutdown asks the worker to exit cleanly.
const MethodShutdown = "shutdown"

// Hello is the first line a worker writes.
type Hello struct {
	Type    string `json:"type"`
	Model   string `json:"model,omitempty"`
	Device  string `json:"device,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Request is one call to the worker.
type Request struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Response is the worker reply to a Request.
type Response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RemoteError    `json:"error,omitempty"`
}

// RemoteError is a failure reported by the worker for a single request.
type RemoteError struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func (e *RemoteError) Error() string {
	if e.Kind != "" {
		return e.Kind + ": " + e.Message
	}
	return e.Message
}
