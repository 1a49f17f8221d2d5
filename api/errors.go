package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/qf-tally/log"
)

// Error is a coded API failure. Code is stable across releases and tells
// clients which round or claim condition failed; HTTPstatus is only used
// for the response status line.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// errorBody is the JSON shape of every error response, e.g.
// {"error":"round not found","code":40007}.
type errorBody struct {
	Err  string `json:"error"`
	Code int    `json:"code"`
}

func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorBody{Err: e.Err.Error(), Code: e.Code})
}

func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the orchestrator error so errors.Is keeps matching it.
func (e Error) Unwrap() error {
	return e.Err
}

// Write sends e as the JSON response body.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	log.Debugw("api error", "code", e.Code, "status", e.HTTPstatus, "error", e.Error())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(append(msg, '\n')); err != nil {
		log.Warnw("failed to write error response", "error", err)
	}
}

// detail returns a copy of e whose message ends with s. The code and
// status are kept.
func (e Error) detail(s string) Error {
	return Error{Err: fmt.Errorf("%w: %s", e.Err, s), Code: e.Code, HTTPstatus: e.HTTPstatus}
}

func (e Error) With(s string) Error {
	return e.detail(s)
}

func (e Error) Withf(format string, args ...any) Error {
	return e.detail(fmt.Sprintf(format, args...))
}

// WithErr appends the message of err, for instance a round ID parse error.
func (e Error) WithErr(err error) Error {
	return e.detail(err.Error())
}
