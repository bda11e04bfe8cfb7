package security

import (
	"net/http"

	"github.com/noah-isme/tripod-pricing/internal/common"
)

// BodyLimit caps request payloads. Quote form data is small; anything larger
// than Max is rejected before it reaches the JSON decoder.
type BodyLimit struct {
	Max int64
}

// Middleware rejects requests declaring a body larger than Max with 413 and
// wraps the body so oversize streams fail while decoding.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large", nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}
