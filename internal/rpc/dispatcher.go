package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Handler serves one method. params is the raw "params" value (possibly
// empty). The returned value is marshalled as "result"; nil becomes null.
type Handler func(ctx context.Context, log zerolog.Logger, params json.RawMessage) (any, error)

// Command binds a method name to its handler.
type Command struct {
	Method string
	Handle Handler
}

// Dispatcher owns the command table. It is immutable after NewDispatcher.
type Dispatcher struct {
	table map[string]Handler
	log   zerolog.Logger
}

// MethodList is always registered and returns the sorted method names.
const MethodList = "rpc.methods"

// NewDispatcher builds the command table. Duplicate or empty method names panic.
func NewDispatcher(log zerolog.Logger, cmds ...Command) *Dispatcher {
	d := &Dispatcher{table: make(map[string]Handler, len(cmds)+1), log: log}
	cmds = append(cmds, Command{Method: MethodList, Handle: func(context.Context, zerolog.Logger, json.RawMessage) (any, error) {
		return d.Methods(), nil
	}})
	for _, c := range cmds {
		if c.Method == "" || c.Handle == nil {
			panic("rpc: command needs a method and a handler")
		}
		if _, dup := d.table[c.Method]; dup {
			panic("rpc: duplicate method " + c.Method)
		}
		d.table[c.Method] = c.Handle
	}
	return d
}

// Methods lists the registered method names, sorted.
func (d *Dispatcher) Methods() []string {
	out := make([]string, 0, len(d.table))
	for m := range d.table {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// maxLine bounds a single request line.
const maxLine = 16 << 20

// Serve reads requests from in until EOF or ctx is done and writes one
// response line per request to out. Handler failures never end the loop;
// only read and write errors do.
func (d *Dispatcher) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	d.log.Info().Strs("methods", d.Methods()).Msg("rpc loop started")
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		resp := d.Handle(ctx, []byte(line))
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("rpc: write response: %w", err)
		}
		if f, ok := out.(interface{ Flush() error }); ok {
			if err := f.Flush(); err != nil {
				return fmt.Errorf("rpc: flush: %w", err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("rpc: read request: %w", err)
	}
	d.log.Info().Msg("rpc input closed")
	return nil
}

// Handle processes a single request line and returns its response.
func (d *Dispatcher) Handle(ctx context.Context, line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		d.log.Warn().Err(err).Msg("rpc parse error")
		return Response{ID: idOrNull(nil), Error: &Error{Code: CodeParse, Message: err.Error()}}
	}
	id := idOrNull(req.ID)
	log := d.log.With().RawJSON("id", id).Str("method", req.Method).Logger()
	log.Info().Msg("rpc request")

	h, ok := d.table[req.Method]
	if !ok {
		log.Warn().Str("status", "error").Msg("rpc response")
		return Response{ID: id, Error: &Error{Code: CodeUnknownMethod, Message: "unknown method: " + req.Method}}
	}
	result, rerr := d.invoke(ctx, log, h, req.Params)
	if rerr != nil {
		log.Error().Str("code", rerr.Code).Str("err", rerr.Message).Str("status", "error").Msg("rpc response")
		if rerr.Trace != "" {
			log.Debug().Str("trace", rerr.Trace).Msg("rpc failure trace")
		}
		return Response{ID: id, Error: rerr}
	}
	log.Info().Str("status", "ok").Msg("rpc response")
	if result == nil {
		result = json.RawMessage("null")
	}
	return Response{ID: id, Result: result}
}

func (d *Dispatcher) invoke(ctx context.Context, log zerolog.Logger, h Handler, params json.RawMessage) (result any, rerr *Error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			rerr = &Error{Code: CodeRuntime, Message: fmt.Sprint(p), Trace: string(debug.Stack())}
		}
	}()
	res, err := h(ctx, log, params)
	if err == nil {
		return res, nil
	}
	var pe paramsError
	if errors.As(err, &pe) {
		return nil, &Error{Code: CodeInvalidParams, Message: pe.Error()}
	}
	return nil, &Error{Code: CodeRuntime, Message: err.Error(), Trace: errorChain(err)}
}

// errorChain renders err and every wrapped cause, one per line.
func errorChain(err error) string {
	var b strings.Builder
	for i := 0; err != nil; i++ {
		fmt.Fprintf(&b, "%d: %T: %v\n", i, err, err)
		err = errors.Unwrap(err)
	}
	return b.String()
}
