package i18n

import (
	"net/http/httptest"
	"testing"
)

func TestMain(m *testing.M) {
	if err := LoadTranslations(); err != nil {
		panic(err)
	}
	m.Run()
}

func TestLocalesHaveSameKeys(t *testing.T) {
	for key := range translations["en"] {
		if _, ok := translations["fr"][key]; !ok {
			t.Errorf("fr is missing key %q", key)
		}
	}
	for key := range translations["fr"] {
		if _, ok := translations["en"][key]; !ok {
			t.Errorf("en is missing key %q", key)
		}
	}
}

func TestTFallback(t *testing.T) {
	if got := T("fr", "nav.login"); got != "Connexion" {
		t.Errorf("T(fr, nav.login) = %q", got)
	}
	if got := T("de", "nav.login"); got != "Log in" {
		t.Errorf("unknown language should fall back to English, got %q", got)
	}
	if got := T("en", "no.such.key"); got != "no.such.key" {
		t.Errorf("missing key should echo the key, got %q", got)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		accept string
		want   string
	}{
		{"default", "/", "", "en"},
		{"header", "/", "fr-CH, fr;q=0.9, en;q=0.8", "fr"},
		{"unsupported then supported", "/", "de-DE, fr;q=0.5", "fr"},
		{"query wins", "/?lang=en", "fr-FR", "en"},
		{"unknown query ignored", "/?lang=xx", "fr-FR", "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			if tt.accept != "" {
				r.Header.Set("Accept-Language", tt.accept)
			}
			if got := DetectLanguage(r); got != tt.want {
				t.Errorf("DetectLanguage() = %q, want %q", got, tt.want)
			}
		})
	}
}
