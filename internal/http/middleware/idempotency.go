package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-book-records/internal/clock"
)

// HeaderIdempotencyKey carries the client's idempotency key on POST /books.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"

	defaultIdemMaxLen = 200
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyOptions controls key validation. Expiry belongs to the lookup.
type IdempotencyOptions struct {
	MaxLen  int            // <= 0 means 200
	Pattern *regexp.Regexp // nil means ^[A-Za-z0-9._~\-:]+$
	// Scope selects the requests the key applies to; nil means all.
	// Requests outside it are passed through untouched, header included.
	Scope func(c *gin.Context) bool
	Clock clock.Clock // nil means the system clock
}

// RouteScope matches requests by method and registered route pattern.
func RouteScope(method, fullPath string) func(c *gin.Context) bool {
	return func(c *gin.Context) bool {
		return c.Request.Method == method && c.FullPath() == fullPath
	}
}

// IdempotencyLookup reports whether an unexpired record exists for key at now.
type IdempotencyLookup func(ctx context.Context, key string, now time.Time) (exists bool, err error)

// GetIdempotencyKey returns the key stored by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether lookup found a stored result for this request's key.
func IsReplay(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyIdemReplay)
	b, _ := v.(bool)
	return b
}

// IdempotencyValidator validates the Idempotency-Key header when present and
// stores it for handlers on requests inside opts.Scope. A malformed key aborts
// with 400 bad_idempotency_key.
// When lookup finds a live record the request is flagged as a replay and
// exempted from rate limiting; serving the stored book is the handler's job.
// Lookup failures are logged and the request continues as a first attempt.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}
	clk := clock.Or(opts.Clock)

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || (opts.Scope != nil && !opts.Scope(c)) {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			exists, err := lookup(c.Request.Context(), key, clk.Now())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			case exists:
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
