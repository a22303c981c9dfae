package webui

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"mediadash/internal/session"
)

type ctxKey struct{}

// withSession resolves the session cookie, starting a new session when the
// cookie is missing or names an evicted session.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.cfg.CookieName); err == nil {
			id = c.Value
		}
		sess, created := s.store.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(ctxKey{}).(*session.Session)
}

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logrus.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}
