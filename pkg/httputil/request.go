package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies at 1MB
const maxBodyBytes = 1 << 20

// DecodeJSON decodes a JSON request body into dst. The body is limited
// to 1MB and must contain exactly one JSON value.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("request body contains more than one JSON value")
	}
	return nil
}
