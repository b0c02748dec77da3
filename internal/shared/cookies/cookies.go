package cookies

import (
	"net/http"
	"net/url"
	"strings"

	"sectorwars-server/internal/shared/config"
)

// AuthCookieName carries the session token for browser clients.
const AuthCookieName = "auth_token"

type Jar struct {
	auth   config.AuthConfig
	domain string
}

func New(auth config.AuthConfig, frontendURL string) *Jar {
	return &Jar{auth: auth, domain: extractDomain(frontendURL)}
}

func (j *Jar) SetAuthCookie(w http.ResponseWriter, token string) {
	cookie := j.authCookie()
	cookie.Value = token
	cookie.MaxAge = int(j.auth.TokenExpiration.Seconds())

	http.SetCookie(w, cookie)
}

func (j *Jar) ClearAuthCookie(w http.ResponseWriter) {
	cookie := j.authCookie()
	cookie.Value = ""
	cookie.MaxAge = -1

	http.SetCookie(w, cookie)
}

func (j *Jar) authCookie() *http.Cookie {
	return &http.Cookie{
		Name:     AuthCookieName,
		Path:     "/",
		Domain:   j.domain,
		HttpOnly: true,
		Secure:   j.auth.CookieSecure,
		SameSite: parseSameSite(j.auth.CookieSameSite),
	}
}

func extractDomain(frontendURL string) string {
	parsedURL, err := url.Parse(frontendURL)
	if err != nil || parsedURL.Host == "" {
		return ""
	}

	host := strings.Split(parsedURL.Host, ":")[0]
	if host == "localhost" || host == "127.0.0.1" {
		return ""
	}

	return host
}

func parseSameSite(sameSiteStr string) http.SameSite {
	switch sameSiteStr {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
