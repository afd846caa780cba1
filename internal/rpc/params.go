package rpc

import (
	"bytes"
	"encoding/json"
)

// paramsError marks params that could not be decoded into a handler's shape.
type paramsError struct{ err error }

func (e paramsError) Error() string { return "invalid params: " + e.err.Error() }
func (e paramsError) Unwrap() error { return e.err }

// InvalidParams wraps err so the response carries E_INVALID_PARAMS.
func InvalidParams(err error) error { return paramsError{err: err} }

// Decode unmarshals raw params into v. Missing or null params leave v untouched.
func Decode(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return InvalidParams(err)
	}
	return nil
}
