package registry

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"Bearer":             "",
		"Bearer ":            "",
		"Basic dXNlcjpwYXNz": "",
		"Bearertok_abc":      "",
		"Bearer tok_abc":     "tok_abc",
		"bearer tok_abc":     "tok_abc",
		"BEARER   tok_abc  ": "tok_abc",
		"Bearer\ttok_abc":    "tok_abc",
	}

	for header, want := range cases {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if got := BearerToken(r); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
