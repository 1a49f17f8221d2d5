package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/types"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// decodeBody decodes the JSON request body into v, writing the error
// response if it fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return false
	}
	return true
}

// roundID parses the round ID URL parameter, writing the error response if
// it is malformed.
func roundID(w http.ResponseWriter, r *http.Request) (types.RoundID, bool) {
	id, err := types.ParseRoundID(chi.URLParam(r, RoundURLParam))
	if err != nil {
		ErrMalformedRoundID.WithErr(err).Write(w)
		return types.RoundID{}, false
	}
	return id, true
}

// recipientIndex parses the recipient index URL parameter.
func recipientIndex(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	index, err := strconv.ParseUint(chi.URLParam(r, IndexURLParam), 10, 32)
	if err != nil {
		ErrMalformedParam.Withf("invalid recipient index: %v", err).Write(w)
		return 0, false
	}
	return uint32(index), true
}
