package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/voyagen/popcornview/internal/logger"
	"github.com/voyagen/popcornview/internal/models"
	"github.com/voyagen/popcornview/internal/xtream"
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

// APIError is the JSON body of every error response.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("write json response: %v", err)
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(w http.ResponseWriter, status int, msg string, err error) {
	apiErr := APIError{Status: status, Error: msg}
	if err != nil {
		apiErr.Detail = logger.Redact(err.Error())
		if status >= 500 {
			logger.Errorf("%s: %v", msg, err)
		}
	}
	writeJSON(w, status, apiErr)
}

// writeUpstreamErr maps an upstream failure to 502 and anything else to 500.
func writeUpstreamErr(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, xtream.ErrUnavailable) {
		writeErr(w, http.StatusBadGateway, msg, err)
		return
	}
	writeErr(w, http.StatusInternalServerError, msg, err)
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(dst)
}

// pathID reads and normalizes an id path parameter.
func pathID(r *http.Request, name string) (models.ID, bool) {
	id := models.NormalizeID(chi.URLParam(r, name))
	return id, id != ""
}

// queryInt parses an integer query parameter, returning def when it is
// missing or malformed.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

// queryBool accepts 1/true/yes.
func queryBool(r *http.Request, key string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return r.URL.Query().Get(key) == "yes"
	}
	return b
}
