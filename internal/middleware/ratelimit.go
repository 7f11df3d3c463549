package middleware

import (
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
)

const (
	MsgTooManyRequests     = "Too many requests, please try again later."
	MsgTooManyAuthAttempts = "Too many authentication attempts, please try again later."
)

// limitBodies holds the 429 envelope for each message. Neither message needs
// JSON escaping.
var limitBodies = map[string]string{
	MsgTooManyRequests:     `{"success":false,"error":"` + MsgTooManyRequests + `"}`,
	MsgTooManyAuthAttempts: `{"success":false,"error":"` + MsgTooManyAuthAttempts + `"}`,
}

// RateLimit allows each client IP up to limit requests per window, answering
// the rest with 429 and the JSON envelope carrying message. message must be
// MsgTooManyRequests or MsgTooManyAuthAttempts; anything else gets the
// former.
//
// tollbooth is a token bucket: the full allowance is available at once and
// refills evenly over the window. Clients are keyed by RemoteAddr, which
// chi's RealIP middleware has already rewritten from proxy headers.
func RateLimit(limit int, window time.Duration, message string) func(http.Handler) http.Handler {
	lmt := tollbooth.NewLimiter(float64(limit)/window.Seconds(), &limiter.ExpirableOptions{
		DefaultExpirationTTL: window,
	})
	lmt.SetBurst(limit)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})

	body, ok := limitBodies[message]
	if !ok {
		body = limitBodies[MsgTooManyRequests]
	}
	lmt.SetMessage(body)
	lmt.SetMessageContentType("application/json")

	return tollbooth.HTTPMiddleware(lmt)
}
