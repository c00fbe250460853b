package api

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/Tenderflow/internal/idempotency"
	"github.com/shaiso/Tenderflow/internal/telemetry"
)

// Заголовки запросов и ответов API.
const (
	HeaderActorID           = "X-Actor-ID"
	HeaderIdempotencyKey    = "Idempotency-Key"
	HeaderIdempotentReplay  = "Idempotent-Replayed"
	maxIdempotencyKeyLength = 200
)

// Middleware — функция-обёртка для http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain применяет middleware в порядке слева направо.
// Chain(m1, m2)(handler) = m1(m2(handler))
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Logging логирует HTTP запросы и кладёт в контекст логгер запроса
// с методом, путём и actor_id.
func Logging(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := logger.With("method", r.Method, "path", r.URL.Path)
			if actorID := r.Header.Get(HeaderActorID); actorID != "" {
				reqLogger = telemetry.WithActorID(reqLogger, actorID)
			}

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r.WithContext(telemetry.WithLogger(r.Context(), reqLogger)))

			reqLogger.Info("http request",
				"status", rw.status,
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

// Metrics считает запросы по шаблону маршрута и коду ответа.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			telemetry.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		})
	}
}

// Recovery восстанавливается после паники.
func Recovery(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"stack", string(debug.Stack()),
						"path", r.URL.Path,
					)
					InternalError(w, logger, nil)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Idempotency возвращает сохранённый ответ на повтор POST запроса
// с тем же Idempotency-Key от того же пользователя.
//
// Ответы 5xx не сохраняются: клиент может повторить запрос.
// Если хранилище недоступно, запрос выполняется без дедупликации.
func Idempotency(store IdempotencyStore, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := telemetry.LoggerOr(r.Context(), logger)
			clientKey := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
			if r.Method != http.MethodPost || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(clientKey) > maxIdempotencyKeyLength {
				BadRequest(w, "idempotency key is too long")
				return
			}

			key := strings.Join([]string{r.Header.Get(HeaderActorID), r.Method, r.URL.Path, clientKey}, "|")

			cached, err := store.Acquire(r.Context(), key)
			switch {
			case errors.Is(err, idempotency.ErrInProgress):
				Conflict(w, "request with this idempotency key is in progress")
				return
			case err != nil:
				reqLogger.Warn("idempotency store unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			case cached != nil:
				telemetry.IdempotentReplaysTotal.Inc()
				if cached.ContentType != "" {
					w.Header().Set("Content-Type", cached.ContentType)
				}
				w.Header().Set(HeaderIdempotentReplay, "true")
				w.WriteHeader(cached.Status)
				_, _ = w.Write(cached.Body)
				return
			}

			// Паника обработчика не должна оставлять ключ заблокированным до истечения lock TTL.
			finished := false
			defer func() {
				if finished {
					return
				}
				if err := store.Release(context.WithoutCancel(r.Context()), key); err != nil {
					reqLogger.Warn("failed to release idempotency key after panic", "error", err)
				}
			}()

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			finished = true

			if rec.status >= http.StatusInternalServerError {
				if err := store.Release(r.Context(), key); err != nil {
					reqLogger.Warn("failed to release idempotency key", "error", err)
				}
				return
			}

			resp := idempotency.Response{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}
			if err := store.Save(r.Context(), key, resp); err != nil {
				reqLogger.Warn("failed to save idempotent response", "error", err)
			}
		})
	}
}

// responseWriter — обёртка для захвата статуса ответа.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// recordingWriter дополнительно копирует тело ответа.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	rw.body.Write(p)
	return rw.ResponseWriter.Write(p)
}
