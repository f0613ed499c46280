package logger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/narwhalmedia/mediaresolver/pkg/interfaces"
)

// HTTPMiddleware logs every request and stores a request scoped logger in the context.
// It expects chi's RequestID middleware to run first.
func HTTPMiddleware(log interfaces.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := r.Context()
			if id := middleware.GetReqID(ctx); id != "" {
				ctx = WithRequestID(ctx, id)
			}
			reqLog := log.WithContext(ctx)
			ctx = WithContext(ctx, reqLog)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := r.URL.Path
			if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			fields := []interfaces.Field{
				interfaces.String("method", r.Method),
				interfaces.String("route", route),
				interfaces.Int("status", ww.Status()),
				interfaces.Int("bytes", ww.BytesWritten()),
				interfaces.Duration("duration", time.Since(start)),
			}

			switch {
			case ww.Status() >= http.StatusInternalServerError:
				reqLog.Error("HTTP request failed", fields...)
			case ww.Status() >= http.StatusBadRequest:
				reqLog.Warn("HTTP request rejected", fields...)
			default:
				reqLog.Info("HTTP request completed", fields...)
			}
		})
	}
}
