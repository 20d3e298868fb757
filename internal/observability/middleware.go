package observability

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type contextKey string

const requestIDKey contextKey = "civid.request_id"

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithRequestID reuses an incoming X-Request-Id or assigns a fresh uuid.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, rid)
		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithRecover turns a panic into a logged error and hands the response to
// onPanic, which renders whatever 500 page suits the route.
func WithRecover(
	logger *zap.Logger,
	onPanic http.HandlerFunc,
) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if onPanic == nil {
		onPanic = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						zap.String("request_id", RequestIDFromContext(r.Context())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("panic", fmt.Sprint(rec)),
						zap.ByteString("stack", debug.Stack()),
					)
					onPanic(w, r)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// WithAccessLog logs and counts every request. Used as mux middleware it
// labels metrics with the matched route template.
func WithAccessLog(
	logger *zap.Logger,
	metrics *Metrics,
	proxies *TrustedProxies,
) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			dur := time.Since(start)

			route := routeTemplate(r)
			metrics.RecordRequest(route, r.Method, sw.status, dur)
			logger.Info("http request",
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", sw.status),
				zap.Int("bytes", sw.bytes),
				zap.Duration("duration", dur),
				zap.String("remote_ip", proxies.ClientIP(r)),
			)
		})
	}
}

// routeTemplate keeps tokens and codes out of metric labels and logs.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}
