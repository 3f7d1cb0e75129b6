package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/gigshield/internal/auth"
	"github.com/ppiankov/gigshield/internal/evidence"
	"github.com/ppiankov/gigshield/internal/store"
)

// abort ends the request with {"detail": detail}
func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidStatus),
		errors.Is(err, evidence.ErrUnsupportedType),
		errors.Is(err, evidence.ErrTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// appealError answers for a failed lookup or update of an appeal owned by
// the caller. action completes "Not authorized to ... this appeal".
func appealError(c *gin.Context, err error, action string) {
	switch status := statusFor(err); status {
	case http.StatusNotFound:
		abort(c, status, "Appeal not found")
	case http.StatusForbidden:
		abort(c, status, "Not authorized to "+action+" this appeal")
	case http.StatusBadRequest:
		abort(c, status, "Invalid status")
	default:
		abort(c, status, err.Error())
	}
}

// rateLimit limits language model routes per user
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := auth.CurrentUser(c)
		key := c.ClientIP()
		if claims != nil {
			key = claims.UID
		}

		if !s.opts.Limiter.Allow(key) {
			wait := s.opts.Limiter.RetryAfter(key)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			abort(c, http.StatusTooManyRequests, "Too many requests, please slow down")
			return
		}
		c.Next()
	}
}
