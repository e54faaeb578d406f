package security

import (
	"bytes"
	"io"
	"net/http"

	"github.com/noah-isme/backend-pasar/internal/common"
)

// BodyLimit caps request payload sizes before handlers decode them.
type BodyLimit struct {
	Max int64
}

// Middleware rejects oversized payloads with a 413 JSON error and replaces
// the body with a fully buffered reader for downstream decoders.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, common.CodePayloadTooLarge, "request body exceeds limit", nil)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, b.Max+1))
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "unable to read request body", nil)
			return
		}
		if int64(len(body)) > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, common.CodePayloadTooLarge, "request body exceeds limit", nil)
			return
		}
		_ = r.Body.Close()

		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		next.ServeHTTP(w, r)
	})
}
