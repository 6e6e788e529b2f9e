// Package credential resolves the caller's source-control token from
// whichever transport carried it.
package credential

import (
	"net/http"
	"strings"
)

// CookieName is the cookie set by the browser login flow.
const CookieName = "gh_token"

// Credential is an opaque caller token. The zero value means absent.
type Credential string

func (c Credential) Present() bool {
	return strings.TrimSpace(string(c)) != ""
}

func (c Credential) String() string {
	return string(c)
}

// Redacted is safe to log. An absent credential redacts to "".
func (c Credential) Redacted() string {
	s := strings.TrimSpace(string(c))
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

// Resolve picks the first non-empty source: explicit body token, then an
// Authorization bearer header, then the login cookie.
func Resolve(bodyToken string, r *http.Request) Credential {
	if tok := strings.TrimSpace(bodyToken); tok != "" {
		return Credential(tok)
	}
	if r == nil {
		return ""
	}
	if tok := bearer(r.Header.Get("Authorization")); tok != "" {
		return Credential(tok)
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return Credential(strings.TrimSpace(c.Value))
	}
	return ""
}

func bearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
