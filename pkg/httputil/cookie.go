package httputil

import (
	"errors"
	"net/http"
	"strings"
)

const AuthCookieName = "auth_token"

func ClearAuthCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	}

	http.SetCookie(w, cookie)
}

// GetTokenFromCookie extracts the JWT token from the auth cookie
func GetTokenFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(AuthCookieName)
	if err != nil {
		return "", errors.New("auth cookie not found")
	}

	if cookie.Value == "" {
		return "", errors.New("auth cookie is empty")
	}

	return cookie.Value, nil
}

func GetTokenFromRequest(r *http.Request) (string, error) {
	token, err := GetTokenFromCookie(r)
	if err == nil && token != "" {
		return token, nil
	}

	// Fallback to Authorization header for non-browser clients
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader != "" {
		// Support "Bearer <token>" format. A bare scheme carries no token.
		if scheme, rest, _ := strings.Cut(authHeader, " "); strings.EqualFold(scheme, "Bearer") {
			authHeader = strings.TrimSpace(rest)
		}
		if authHeader != "" {
			return authHeader, nil
		}
	}

	return "", errors.New("no auth token found in cookie or header")
}
