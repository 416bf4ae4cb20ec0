// Package csrf provides CSRF protection using the double-submit cookie pattern.
//
// The double-submit cookie pattern works by:
// 1. Setting a random token in a cookie
// 2. Echoing the same token back on every state-changing request, either as
//    a form field or as the X-CSRF-Token header that htmx sends
// 3. Comparing the cookie value with the echoed value
//
// Attackers can make the browser send our cookies cross-origin, but they
// cannot read them, so they cannot echo the token.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// CookieName is the name of the CSRF token cookie.
	CookieName = "trainerdesk_csrf"

	// FormFieldName is the name of the CSRF token form field.
	FormFieldName = "csrf_token"

	// HeaderName carries the token on htmx requests.
	HeaderName = "X-CSRF-Token"

	// TokenLength is the number of random bytes for the token (32 bytes = 256 bits).
	TokenLength = 32

	// CookieMaxAge is the lifetime of the CSRF cookie (12 hours).
	CookieMaxAge = 12 * 3600
)

type contextKey struct{}

// =============================================================================
// Token Generation
// =============================================================================

// GenerateToken generates a cryptographically secure random token.
//
// The token is 32 bytes of random data, base64 URL-encoded.
// This produces a 44-character string.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// =============================================================================
// Token Validation
// =============================================================================

// ValidateToken compares the cookie token with the submitted token.
// Uses constant-time comparison to prevent timing attacks.
func ValidateToken(cookieToken, submitted string) bool {
	if cookieToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submitted)) == 1
}

// ValidateRequest validates the CSRF token of a request. The header wins
// over the form field when both are present.
func ValidateRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}

	submitted := r.Header.Get(HeaderName)
	if submitted == "" {
		submitted = r.FormValue(FormFieldName)
	}

	return ValidateToken(cookie.Value, submitted)
}

// =============================================================================
// Cookie Management
// =============================================================================

// SetCookie sets the CSRF token cookie on the response.
func SetCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Token returns the token stored in ctx by Protect, or "".
func Token(ctx context.Context) string {
	token, _ := ctx.Value(contextKey{}).(string)
	return token
}

// =============================================================================
// Middleware
// =============================================================================

// Protect issues a token cookie to every client that lacks one and rejects
// state-changing requests whose echoed token does not match it.
func Protect(isSecure bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				if !ValidateRequest(r) {
					logger.Warn("csrf token mismatch", "method", r.Method, "path", r.URL.Path)
					if r.Header.Get("HX-Request") == "true" {
						w.Header().Set("HX-Reswap", "none")
					}
					http.Error(w, "Invalid or missing CSRF token", http.StatusForbidden)
					return
				}
			}

			token := ""
			if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
				token = cookie.Value
			} else {
				generated, err := GenerateToken()
				if err != nil {
					logger.Error("csrf token generation failed", "error", err)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				token = generated
				SetCookie(w, token, isSecure)
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, token)))
		})
	}
}
