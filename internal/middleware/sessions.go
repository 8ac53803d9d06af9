package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"netdash/internal/config"
	"netdash/internal/session"
)

type sessionKey struct{}

// Sessions attaches the caller's dashboard session to the request context.
// A missing, tampered or expired cookie starts a fresh session. The cookie is
// written on every response so its expiry slides with the session's idle TTL.
type Sessions struct {
	store  *session.Store
	codec  *session.Codec
	cfg    config.SessionConfig
	secure bool
	logger *slog.Logger
	now    func() time.Time
}

// NewSessions creates the session middleware
func NewSessions(store *session.Store, codec *session.Codec, cfg config.SessionConfig, secure bool, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "netdash_session"
	}
	return &Sessions{
		store:  store,
		codec:  codec,
		cfg:    cfg,
		secure: secure,
		logger: logger.With(slog.String("component", "sessions")),
		now:    time.Now,
	}
}

// Handler resolves the session before calling next
func (s *Sessions) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.resolve(r)
		if sess == nil {
			sess = s.store.Create()
			s.logger.DebugContext(r.Context(), "session started",
				slog.String("session_id", sess.ID),
				slog.String("request_id", GetRequestID(r.Context())))
		}
		sess.Touch(s.now())
		s.setCookie(w, sess.ID)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

func (s *Sessions) resolve(r *http.Request) *session.Session {
	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return nil
	}
	id, ok := s.codec.Decode(c.Value)
	if !ok {
		s.logger.WarnContext(r.Context(), "session cookie rejected",
			slog.String("remote_addr", r.RemoteAddr))
		return nil
	}
	sess, ok := s.store.Get(id)
	if !ok {
		return nil
	}
	return sess
}

func (s *Sessions) setCookie(w http.ResponseWriter, id string) {
	c := &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    s.codec.Encode(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.cfg.IdleTTL > 0 {
		c.MaxAge = int(s.cfg.IdleTTL / time.Second)
	}
	http.SetCookie(w, c)
}

// WithSession stores sess in ctx
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the session attached by Sessions
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*session.Session)
	return sess, ok && sess != nil
}
