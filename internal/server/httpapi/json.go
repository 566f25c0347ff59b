package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/accountkeeper/internal/server/validation"
)

const maxBodyBytes = 1 << 20

const (
	statusSuccess = "success"
	statusError   = "error"
)

type response struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, msg string, data any) {
	writeJSON(w, http.StatusOK, response{Status: statusSuccess, Data: data, Message: msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{Status: statusError, Message: msg})
}

// writeValidation reports every validation failure as its own element.
func writeValidation(w http.ResponseWriter, msgs []string) {
	out := make([]response, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, response{Status: statusError, Message: m})
	}
	writeJSON(w, http.StatusBadRequest, out)
}

var (
	errMalformedBody = errors.New("malformed request body")
	errBodyTooLarge  = errors.New("request body too large")
)

// bodyError classifies a read or decode failure.
func bodyError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return errBodyTooLarge
	}
	return errMalformedBody
}

// writeBodyError reports a payload that could not be read.
func writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, MsgTooLarge)
		return
	}
	writeError(w, http.StatusBadRequest, MsgMalformed)
}

// decodePayload reads the request payload from a JSON body or a urlencoded
// form. An empty body yields an empty payload. Unknown fields are ignored.
func decodePayload(w http.ResponseWriter, r *http.Request) (validation.Payload, error) {
	var p validation.Payload
	if r.Body == nil {
		return p, nil
	}
	defer func() { _ = r.Body.Close() }()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return p, bodyError(err)
		}
		return payloadFromValues(r.PostForm.Get, r.PostForm.Has), nil
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return validation.Payload{}, nil
		}
		return p, bodyError(err)
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return p, bodyError(err)
	}
	return p, nil
}

func payloadFromValues(get func(string) string, has func(string) bool) validation.Payload {
	field := func(k string) *string {
		if !has(k) {
			return nil
		}
		v := get(k)
		return &v
	}
	return validation.Payload{
		EmailAddress: field("emailAddress"),
		FirstName:    field("firstName"),
		LastName:     field("lastName"),
		Password:     field("password"),
		Token:        field("token"),
	}
}
