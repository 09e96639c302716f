// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// RateLimit applies a token bucket per client IP allowing perMinute requests
// per minute with a burst of the same size. perMinute <= 0 disables limiting.
// Run it after RealIP so proxied clients are told apart.
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	limiters := cache.New(limiterIdleTTL, limiterIdleTTL/2)
	every := rate.Every(time.Minute / time.Duration(perMinute))

	limiterFor := func(ip string) *rate.Limiter {
		if v, ok := limiters.Get(ip); ok {
			limiters.SetDefault(ip, v)
			return v.(*rate.Limiter)
		}
		l := rate.NewLimiter(every, perMinute)
		if err := limiters.Add(ip, l, cache.DefaultExpiration); err != nil {
			// lost the race, use the stored limiter
			if v, ok := limiters.Get(ip); ok {
				return v.(*rate.Limiter)
			}
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			reservation := limiterFor(ip).Reserve()
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				retryAfter := int(math.Ceil(delay.Seconds()))
				log.Debug().Str("ip", ip).Int("retry_after", retryAfter).Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "Too many requests")
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
