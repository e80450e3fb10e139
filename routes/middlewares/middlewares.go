package middlewares

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
)

type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// Session is the authenticated identity of a request.
type Session struct {
	UserID string
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored by Authenticate.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

var reBearer = regexp.MustCompile(`(?i)^bearer\s+(\S+)\s*$`)

// Authenticate rejects any request without a valid bearer token with 401,
// and forwards the others with their Session in the context.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			match := reBearer.FindStringSubmatch(r.Header.Get("authorization"))
			if len(match) == 0 {
				httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "auth.bearer", "Access token required")
				return
			}

			userID, err := tokens.Verify(match[1])
			if err != nil {
				log.Debugf("auth.verify: %s", err)
				httpx.LogStatusMsg(w, r, http.StatusUnauthorized, log.DebugLevel, "auth.verify", "Invalid or expired token")
				return
			}

			ctx := WithSession(r.Context(), Session{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipLimiter struct {
	sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	l.Unlock()

	return v.limiter.AllowN(now, 1)
}

func (l *ipLimiter) prune(idle time.Duration, now time.Time) {
	l.Lock()
	defer l.Unlock()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(l.visitors, ip)
		}
	}
}

// RateLimit allows each client IP perSecond requests with the given burst,
// and answers 429 beyond that. The IP is taken from RemoteAddr, which only
// reflects forwarding headers when middleware.RealIP runs first. Idle clients
// are forgotten until ctx is done. A non-positive rate disables limiting.
func RateLimit(ctx context.Context, perSecond float64, burst int) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}

	l := &ipLimiter{
		visitors: map[string]*visitor{},
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.prune(10*time.Minute, now)
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !l.allow(ip, time.Now()) {
				httpx.LogStatusMsg(w, r, http.StatusTooManyRequests, log.DebugLevel, "rate_limit", "Too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
