package cookies

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sectorwars-server/internal/shared/config"
)

func TestSetAuthCookie(t *testing.T) {
	jar := New(config.AuthConfig{TokenExpiration: time.Hour, CookieSecure: true, CookieSameSite: "strict"}, "https://play.example.com:8443")

	rec := httptest.NewRecorder()
	jar.SetAuthCookie(rec, "tok")

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != AuthCookieName || c.Value != "tok" || c.MaxAge != 3600 {
		t.Errorf("cookie = %+v", c)
	}
	if c.Domain != "play.example.com" || !c.Secure || !c.HttpOnly || c.SameSite != http.SameSiteStrictMode {
		t.Errorf("cookie attributes = %+v", c)
	}
}

func TestClearAuthCookieOnLocalhost(t *testing.T) {
	jar := New(config.AuthConfig{}, "http://localhost:3000")

	rec := httptest.NewRecorder()
	jar.ClearAuthCookie(rec)

	c := rec.Result().Cookies()[0]
	if c.Domain != "" || c.MaxAge >= 0 || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie = %+v", c)
	}
}
