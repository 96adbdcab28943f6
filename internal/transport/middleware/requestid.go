package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/satriajat/helpdesk-management/pkg/logger"
)

const traceHeader = "X-Trace-ID"

// RequestID honors an inbound trace id or mints one, stamps it on the
// context logger and echoes it on the response so clients can correlate
// audit entries with their own logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "trace_id", traceID)
		w.Header().Set(traceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
