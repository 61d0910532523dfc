package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/backend-apotek/internal/common"
)

// BodyLimit enforces a maximum request payload size.
type BodyLimit struct {
	Max int64
}

// Middleware rejects requests exceeding the configured limit with HTTP 413.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > b.Max {
			tooLarge(w, b.Max)
			return
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, b.Max+1))
		_ = r.Body.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "could not read request body", nil)
			return
		}
		if int64(len(buf)) > b.Max {
			tooLarge(w, b.Max)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func tooLarge(w http.ResponseWriter, max int64) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", map[string]int64{"maxBytes": max})
}
