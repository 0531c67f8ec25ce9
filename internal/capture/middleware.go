package capture

import (
	"bytes"
	"io"
	"net/http"

	"github.com/moamenhredeen/oasrec/internal/models"
)

// Middleware records every request served by the wrapped handler and
// passes the exchange to sink once the handler returns. sink may be called
// concurrently.
func Middleware(router *Router, sink func(models.Exchange)) func(http.Handler) http.Handler {
	if router == nil {
		router = NewRouter()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var reqBody []byte
			if r.Body != nil {
				b, err := io.ReadAll(r.Body)
				r.Body.Close()
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				reqBody = b
				r.Body = io.NopCloser(bytes.NewReader(b))
			}

			rw := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			sink(NewExchange(router, r, reqBody, rw.status, rw.Header(), rw.body.Bytes()))
		})
	}
}

// responseRecorder tees the response body and remembers the status
type responseRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (rw *responseRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rw *responseRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
