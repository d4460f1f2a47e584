package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig describes which browser origins may call the storefront API.
type CORSConfig struct {
	// AllowedOrigins lists exact origins. "*" accepts any origin.
	AllowedOrigins []string

	// AllowedMethods defaults to the methods the storefront routes use.
	AllowedMethods []string

	// AllowedHeaders defaults to the session, tab and correlation headers.
	AllowedHeaders []string

	// ExposedHeaders defaults to X-Correlation-ID and Retry-After.
	ExposedHeaders []string

	// MaxAge is the preflight cache lifetime in seconds; 0 means one hour.
	MaxAge int

	AllowCredentials bool

	// Environment "development" accepts any origin.
	Environment string
}

func storefrontMethods() []string {
	return []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
}

func storefrontHeaders() []string {
	return []string{"Accept", "Content-Type", HeaderCorrelationID, HeaderSessionID, HeaderTabID}
}

func storefrontExposed() []string {
	return []string{HeaderCorrelationID, "Retry-After"}
}

// DefaultCORSConfig returns the development policy for a locally served
// storefront frontend.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: storefrontMethods(),
		AllowedHeaders: storefrontHeaders(),
		ExposedHeaders: storefrontExposed(),
		MaxAge:         3600,
		Environment:    "development",
	}
}

// corsPolicy is a CORSConfig with its header values rendered once.
type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]struct{}
	credentials bool
	methods     string
	headers     string
	exposed     string
	maxAge      string
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = storefrontMethods()
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = storefrontHeaders()
	}
	if cfg.ExposedHeaders == nil {
		cfg.ExposedHeaders = storefrontExposed()
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 3600
	}

	p := corsPolicy{
		anyOrigin:   cfg.Environment == "development",
		origins:     make(map[string]struct{}, len(cfg.AllowedOrigins)),
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(cfg.AllowedMethods, ", "),
		headers:     strings.Join(cfg.AllowedHeaders, ", "),
		exposed:     strings.Join(cfg.ExposedHeaders, ", "),
		maxAge:      strconv.Itoa(cfg.MaxAge),
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[o] = struct{}{}
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin.
// Credentialed policies echo the origin because browsers refuse "*" there.
func (p corsPolicy) allowOrigin(origin string) (string, bool) {
	if _, ok := p.origins[origin]; ok && origin != "" {
		return origin, true
	}
	if !p.anyOrigin {
		return "", false
	}
	if p.credentials && origin != "" {
		return origin, true
	}
	return "*", true
}

// CORS returns middleware applying cfg. Preflight requests are answered
// directly with 204; other requests only gain the origin headers.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")

			allowed, ok := policy.allowOrigin(origin)
			if ok {
				h.Set("Access-Control-Allow-Origin", allowed)
				if allowed != "*" {
					h.Add("Vary", "Origin")
				}
				if policy.credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if policy.exposed != "" {
					h.Set("Access-Control-Expose-Headers", policy.exposed)
				}
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if ok {
				h.Set("Access-Control-Allow-Methods", policy.methods)
				h.Set("Access-Control-Allow-Headers", policy.headers)
				h.Set("Access-Control-Max-Age", policy.maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
