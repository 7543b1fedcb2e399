package http

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"rentacar-backend/internal/config"
	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/security"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// requestLogger tags the request with an id and logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		l := logger.Get().With("request_id", id)
		r = r.WithContext(logger.WithContext(r.Context(), l))

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		l.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(r.Context(), "Panic while serving request", "panic", rec, "stack", string(debug.Stack()))
				writeError(w, r, domain.NewPersistenceError(nil))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// originAllowed builds the origin check shared by CORS and the websocket
// upgrader. "*" allows every origin.
func originAllowed(allowedOrigins []string) func(origin string) bool {
	allowAll := false
	allowed := map[string]bool{}
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return func(origin string) bool {
		return origin != "" && (allowAll || allowed[origin])
	}
}

// corsHandler answers preflight requests before routing so that OPTIONS
// does not need a route of its own.
func corsHandler(allowed func(string) bool) func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOriginValidator(allowed),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", requestIDHeader}),
		handlers.ExposedHeaders([]string{"Content-Disposition", requestIDHeader}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
}

// UserLookup re-reads the caller on every authenticated request.
type UserLookup interface {
	GetProfile(ctx context.Context, actor domain.Actor) (*domain.User, error)
}

// AuthMiddleware resolves the caller from the bearer token according to the
// security level of the matched route.
// Deleted users are rejected and the role is taken from the stored account,
// so a demotion applies before the token expires.
type AuthMiddleware struct {
	tokens security.TokenManager
	users  UserLookup
}

func NewAuthMiddleware(tokens security.TokenManager, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		level := config.GetSecurityLevel(name)
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r, level == config.SecurityQuery)
		if token == "" {
			if level == config.SecurityOptional {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, r, domain.NewUnauthenticatedError("authorization token is not provided"))
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			if errors.Is(err, security.ErrExpiredToken) {
				writeError(w, r, domain.NewUnauthenticatedError("token has expired"))
				return
			}
			writeError(w, r, domain.NewUnauthenticatedError("invalid token"))
			return
		}

		actor := claims.Actor()
		if m.users != nil {
			user, err := m.users.GetProfile(r.Context(), actor)
			if err != nil {
				if domain.IsNotFound(err) {
					writeError(w, r, domain.NewUnauthenticatedError("account no longer exists"))
					return
				}
				writeError(w, r, err)
				return
			}
			actor.Role = user.Role
		}
		ctx := withActor(r.Context(), actor)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("user_id", actor.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request, allowQuery bool) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}
