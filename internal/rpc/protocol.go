// Package rpc implements a JSON-lines request/response bridge for a host
// process: one request object per input line, one response object per output
// line, handled strictly in order.
package rpc

import "encoding/json"

// Error codes carried in Error.Code.
const (
	CodeParse         = "E_PARSE"
	CodeUnknownMethod = "E_UNKNOWN_METHOD"
	CodeInvalidParams = "E_INVALID_PARAMS"
	CodeRuntime       = "E_RUNTIME"
)

// Request is one input line. ID is echoed verbatim.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is one output line; exactly one of Result and Error is set.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error is the failure envelope.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
