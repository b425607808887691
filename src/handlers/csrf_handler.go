package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/username/monbudget/backend/src/logger"
)

const csrfCookieName = "_monbudget_csrf"

// CSRFProtector issues double-submit tokens signed with the CSRF_AUTH_KEY.
// A token is "<nonce>.<hmac(nonce)>"; the header must match the cookie and carry a valid signature.
type CSRFProtector struct {
	key []byte
}

func NewCSRFProtector(key []byte) *CSRFProtector {
	return &CSRFProtector{key: key}
}

func (p *CSRFProtector) sign(nonce string) string {
	mac := hmac.New(sha256.New, p.key)
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (p *CSRFProtector) newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	nonce := base64.RawURLEncoding.EncodeToString(b)
	return nonce + "." + p.sign(nonce), nil
}

func (p *CSRFProtector) valid(token string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(p.sign(nonce)))
}

func (p *CSRFProtector) GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := p.newToken()
	if err != nil {
		logger.FromContext(r.Context()).Error("Error generating random bytes for CSRF token", "error", err)
		sendJSONError(w, "Failed to generate CSRF token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		MaxAge:   3600,
	})

	w.Header().Set("X-CSRF-Token", token)
	sendJSON(w, http.StatusOK, map[string]string{
		"csrfToken": token,
	})
}

// Middleware rejects state-changing requests without a matching, signed token.
func (p *CSRFProtector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		headerToken := r.Header.Get("X-CSRF-Token")
		cookie, errCookie := r.Cookie(csrfCookieName)

		if headerToken != "" && errCookie == nil &&
			subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookie.Value)) == 1 &&
			p.valid(headerToken) {
			next.ServeHTTP(w, r)
			return
		}

		logger.FromContext(r.Context()).Warn("CSRF validation failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Bool("headerTokenPresent", headerToken != ""),
			slog.Bool("cookiePresent", errCookie == nil),
			slog.String("origin", r.Header.Get("Origin")),
		)

		sendJSONError(w, "CSRF token validation failed", http.StatusForbidden)
	})
}
