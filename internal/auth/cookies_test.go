package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("testpass123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "testpass123" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "testpass123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrongpassword") {
		t.Error("wrong password accepted")
	}
}

func TestSetTokenCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetTokenCookies(rec, TokenPair{AccessToken: "a", RefreshToken: "r"}, 15*time.Minute, 7*24*time.Hour, true)

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}

	access, refresh := cookies[AccessCookie], cookies[RefreshCookie]
	if access == nil || refresh == nil {
		t.Fatalf("missing cookies: %v", cookies)
	}
	if access.MaxAge != 900 {
		t.Errorf("access max-age: got %d", access.MaxAge)
	}
	if refresh.MaxAge != 604800 {
		t.Errorf("refresh max-age: got %d", refresh.MaxAge)
	}
	for _, c := range []*http.Cookie{access, refresh} {
		if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
			t.Errorf("%s: wrong attributes %+v", c.Name, c)
		}
	}
}

func TestClearTokenCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearTokenCookies(rec, false)

	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if (c.Name == AccessCookie || c.Name == RefreshCookie) && c.MaxAge < 0 && c.Value == "" {
			cleared++
		}
	}
	if cleared != 2 {
		t.Errorf("expected both cookies cleared, got %d", cleared)
	}
}

func TestTokensFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "r"})

	access, refresh := TokensFromRequest(req)
	if access != "" || refresh != "r" {
		t.Errorf("got access=%q refresh=%q", access, refresh)
	}
}
