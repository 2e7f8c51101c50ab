package middleware

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/logger"
	"finora/internal/ratelimit"
)

// Stage names, in execution order.
const (
	StageHeadersRateLimit = "headers_rate_limit"
	StageBillingGate      = "billing_gate"
	StageOriginGuard      = "origin_guard"
)

// cspNonceKey is the context key holding the per-request CSP nonce.
const cspNonceKey = "cspNonce"

// WriteAccessChecker decides whether a tenant may perform writes.
type WriteAccessChecker interface {
	CheckWriteAccess(userID string) error
}

// PipelineConfig configures the request pipeline.
type PipelineConfig struct {
	Production      bool
	AllowedOrigins  []string
	Limiter         *ratelimit.Limiter
	Auth            TokenAuthenticator
	Billing         WriteAccessChecker
	BillingFailOpen bool
}

// Stage is one named step of the pipeline.
type Stage struct {
	Name    string
	Handler gin.HandlerFunc
}

// Pipeline is the ordered set of global request stages.
type Pipeline struct {
	stages []Stage
}

var rateLimitedPaths = map[string]bool{
	"/api/v1/auth/login":           true,
	"/api/v1/auth/admin/login":     true,
	"/api/v1/auth/register":        true,
	"/api/v1/auth/change-password": true,
	"/api/v1/admin/password":       true,
}

var billingExemptPrefixes = []string{
	"/api/v1/auth",
	"/api/v1/billing",
	"/api/v1/admin",
	"/api/health",
	"/health",
	"/static",
	"/swagger",
}

var originExemptPrefixes = []string{
	"/static",
	"/api/health",
	"/health",
	"/swagger",
}

// NewPipeline builds the pipeline: security headers and rate limiting, then
// the billing gate, then the origin guard.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{stages: []Stage{
		{Name: StageHeadersRateLimit, Handler: headersRateLimit(cfg)},
		{Name: StageBillingGate, Handler: billingGate(cfg)},
		{Name: StageOriginGuard, Handler: originGuard(cfg)},
	}}
}

// Names returns the stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Handlers returns the stage handlers in execution order.
func (p *Pipeline) Handlers() []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, len(p.stages))
	for i, s := range p.stages {
		handlers[i] = s.Handler
	}
	return handlers
}

// Install registers the stages on r.
func (p *Pipeline) Install(r gin.IRoutes) {
	r.Use(p.Handlers()...)
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func hasPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// cspNonce returns the nonce generated for this request.
func cspNonce(c *gin.Context) string {
	return c.GetString(cspNonceKey)
}

func headersRateLimit(cfg PipelineConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce, err := newNonce()
		if err != nil {
			AbortWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
			return
		}
		c.Set(cspNonceKey, nonce)

		h := c.Writer.Header()
		if !hasPrefix(c.Request.URL.Path, []string{"/swagger"}) {
			h.Set("Content-Security-Policy", fmt.Sprintf(
				"default-src 'self'; script-src 'self' 'nonce-%[1]s'; style-src 'self' 'nonce-%[1]s'; "+
					"img-src 'self' data:; object-src 'none'; base-uri 'self'; frame-ancestors 'none'", nonce))
		}
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		if c.Request.TLS != nil || cfg.Production {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		method := c.Request.Method
		if cfg.Limiter != nil && (method == http.MethodPost || method == http.MethodPatch) &&
			rateLimitedPaths[c.Request.URL.Path] {
			allowed, err := cfg.Limiter.Allow(c.Request.Context(), "auth:"+c.ClientIP())
			if err != nil {
				logger.Get().Errorw("Rate limiter unavailable", "error", err, "path", c.Request.URL.Path)
			} else if !allowed {
				logger.Get().Warnw("Rate limit exceeded",
					"client_ip", c.ClientIP(),
					"path", c.Request.URL.Path,
				)
				c.Header("Retry-After", fmt.Sprintf("%d", int(cfg.Limiter.Window().Seconds())))
				AbortWithError(c, apperrors.ErrRateLimited)
				return
			}
		}

		c.Next()
	}
}

// billingGate blocks writes from tenants whose subscription is overdue.
// Requests without a usable token pass through; route auth rejects them.
func billingGate(cfg PipelineConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Auth == nil || cfg.Billing == nil ||
			!isWriteMethod(c.Request.Method) || hasPrefix(c.Request.URL.Path, billingExemptPrefixes) {
			c.Next()
			return
		}

		token, _ := TokenFromRequest(c)
		if token == "" {
			c.Next()
			return
		}
		user, err := cfg.Auth.Authenticate(token)
		if err != nil {
			c.Next()
			return
		}

		err = cfg.Billing.CheckWriteAccess(user.ID)
		if err == nil {
			c.Next()
			return
		}

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrSubscriptionOverdue.Code {
			logger.Get().Infow("Write blocked by overdue subscription",
				"user_id", user.ID,
				"path", c.Request.URL.Path,
			)
			AbortWithError(c, err)
			return
		}

		logger.Get().Errorw("Billing gate check failed",
			"user_id", user.ID,
			"path", c.Request.URL.Path,
			"error", err,
			"fail_open", cfg.BillingFailOpen,
		)
		if cfg.BillingFailOpen {
			c.Next()
			return
		}
		AbortWithError(c, apperrors.Wrap(apperrors.ErrBillingUnavailable, err))
	}
}

// originGuard rejects cookie-authenticated writes from foreign origins.
func originGuard(cfg PipelineConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isWriteMethod(c.Request.Method) || hasPrefix(c.Request.URL.Path, originExemptPrefixes) {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "" {
			c.Next()
			return
		}
		if cookie, err := c.Cookie(AccessTokenCookie); err != nil || cookie == "" {
			c.Next()
			return
		}

		accepted := acceptedOrigins(c, cfg.AllowedOrigins)
		if origin := c.GetHeader("Origin"); origin != "" {
			if accepted[strings.TrimSuffix(origin, "/")] {
				c.Next()
				return
			}
		} else if referer := c.GetHeader("Referer"); referer != "" {
			for origin := range accepted {
				if strings.HasPrefix(referer, origin+"/") {
					c.Next()
					return
				}
			}
		}

		logger.Get().Warnw("Cross-origin write rejected",
			"origin", c.GetHeader("Origin"),
			"referer", c.GetHeader("Referer"),
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
		)
		AbortWithError(c, apperrors.ErrOriginRejected)
	}
}

func acceptedOrigins(c *gin.Context, allowed []string) map[string]bool {
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	accepted := map[string]bool{scheme + "://" + c.Request.Host: true}
	for _, origin := range allowed {
		accepted[strings.TrimSuffix(origin, "/")] = true
	}
	return accepted
}

// CORS answers preflight requests and echoes allowed origins with
// credentials enabled.
func CORS(allowed []string) gin.HandlerFunc {
	origins := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		origins[strings.TrimSuffix(origin, "/")] = true
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		if origin := c.GetHeader("Origin"); origin != "" && origins[origin] {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
