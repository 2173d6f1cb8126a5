package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/taskhub/internal/records"
)

// maxBodyBytes caps create and update bodies.
const maxBodyBytes = 1 << 20

// listFields are always decoded as lists from form bodies, even when a
// single value is sent.
var listFields = map[string]bool{"pendingTasks": true}

// formIndex matches bracketed list keys: "pendingTasks[]" or "pendingTasks[0]".
var formIndex = regexp.MustCompile(`^(.+)\[\d*\]$`)

func badBody(format string, err error) error {
	return &records.ValidationError{
		Message: "Validation Error: " + format,
		Kind:    records.Invalid,
		Err:     err,
	}
}

// decodeBody reads a JSON object or a URL-encoded form. An empty body
// decodes to empty input so that required-field messages are reported.
func decodeBody(w http.ResponseWriter, r *http.Request) (records.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, badBody("invalid Content-Type", err)
		}
		mediaType = parsed
	}

	switch {
	case mediaType == "application/x-www-form-urlencoded":
		return decodeForm(r)
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return decodeJSON(r.Body)
	default:
		return nil, badBody(fmt.Sprintf("unsupported Content-Type %q", mediaType), nil)
	}
}

func decodeJSON(body io.Reader) (records.Input, error) {
	dec := json.NewDecoder(body)

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return records.Input{}, nil
		}
		return nil, bodyError(err)
	}
	if dec.More() {
		return nil, badBody("request body must contain a single JSON object", nil)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, badBody("request body must be a JSON object", nil)
	}
	return records.Input(obj), nil
}

func decodeForm(r *http.Request) (records.Input, error) {
	if err := r.ParseForm(); err != nil {
		return nil, bodyError(err)
	}

	in := records.Input{}
	for key, values := range r.PostForm {
		name, bracketed := key, false
		if m := formIndex.FindStringSubmatch(key); m != nil {
			name, bracketed = m[1], true
		}

		if bracketed || listFields[name] || len(values) > 1 {
			list, _ := in[name].([]any)
			for _, v := range values {
				list = append(list, v)
			}
			in[name] = list
			continue
		}
		in[name] = values[0]
	}
	return in, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return badBody(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), err)
	}
	return badBody("malformed request body", err)
}
