package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const cookieName = "catalog_session"

type ctxKey struct{}

// UserID returns the logged-in user stored by RequireLogin.
func UserID(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(ctxKey{}).(uint)
	return id, ok
}

// WithUserID returns a copy of ctx carrying the logged-in user.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// Sessions ties the session store to the signed cookie.
type Sessions struct {
	store  SessionStore
	tokens *Tokens
	ttl    time.Duration
	secure bool
}

func NewSessions(store SessionStore, secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{
		store:  store,
		tokens: NewTokens(secret, ttl),
		ttl:    ttl,
		secure: secure,
	}
}

// Start opens a session for userID and sets the cookie.
func (s *Sessions) Start(ctx context.Context, w http.ResponseWriter, userID uint) error {
	id, err := s.store.Create(ctx, userID, s.ttl)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	token, err := s.tokens.Issue(id, userID)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Current resolves the request's cookie to a user id.
func (s *Sessions) Current(r *http.Request) (uint, string, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return 0, "", ErrSessionNotFound
	}
	sessionID, userID, err := s.tokens.Parse(cookie.Value)
	if err != nil {
		return 0, "", err
	}
	stored, err := s.store.Get(r.Context(), sessionID)
	if err != nil {
		return 0, "", err
	}
	if stored != userID {
		return 0, "", ErrInvalidToken
	}
	return userID, sessionID, nil
}

// End deletes the session, if any, and clears the cookie.
func (s *Sessions) End(w http.ResponseWriter, r *http.Request) {
	if _, sessionID, err := s.Current(r); err == nil {
		if err := s.store.Delete(r.Context(), sessionID); err != nil {
			log.Printf("[auth] delete session: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireLogin redirects anonymous requests to /login.
func (s *Sessions) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := s.Current(r)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrInvalidToken) {
				log.Printf("[auth] session lookup: %v", err)
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

const rateLimitPrefix = "rate_limit:"

// counter is the part of the Redis API the rate limiter needs.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RateLimit allows limit requests per client IP per window. A nil client or
// a Redis error lets the request through.
func RateLimit(client *redis.Client, limit int64, window time.Duration) func(http.Handler) http.Handler {
	if client == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rateLimit(client, limit, window)
}

func rateLimit(c counter, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := rateLimitPrefix + clientIP(r) + ":" + r.URL.Path

			count, err := c.Incr(ctx, key).Result()
			if err != nil {
				log.Printf("[auth] rate limit: %v", err)
				next.ServeHTTP(w, r)
				return
			}

			switch {
			case count == 1:
				if err := c.Expire(ctx, key, window).Err(); err != nil {
					log.Printf("[auth] rate limit expire %s: %v", key, err)
				}
			case count > limit:
				// A counter that lost its expiry would block the client for good.
				if ttl, err := c.TTL(ctx, key).Result(); err == nil && ttl < 0 {
					if err := c.Expire(ctx, key, window).Err(); err != nil {
						log.Printf("[auth] rate limit expire %s: %v", key, err)
					}
				}
			}

			if count > limit {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
