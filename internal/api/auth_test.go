package api

import (
	"net/http"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	enabled := AuthConfig{Enabled: true, APIKey: testAPIKey}

	tests := []struct {
		name   string
		cfg    AuthConfig
		target string
		header []string
		want   int
	}{
		{"disabled", AuthConfig{}, "/surahs", nil, http.StatusOK},
		{"public root", enabled, "/", nil, http.StatusOK},
		{"public health", enabled, "/health", nil, http.StatusOK},
		{"missing key", enabled, "/surahs", nil, http.StatusUnauthorized},
		{"valid header", enabled, "/surahs", []string{APIKeyHeader, testAPIKey}, http.StatusOK},
		{"case sensitive", enabled, "/surahs", []string{APIKeyHeader, strings.ToUpper(testAPIKey)}, http.StatusUnauthorized},
		{"prefix of key", enabled, "/surahs", []string{APIKeyHeader, testAPIKey[:8]}, http.StatusUnauthorized},
		{"ws query key", enabled, "/ws/events?api_key=" + testAPIKey, nil, http.StatusOK},
		{"ws wrong query key", enabled, "/ws/events?api_key=nope", nil, http.StatusUnauthorized},
		{"query key outside ws", enabled, "/surahs?api_key=" + testAPIKey, nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, AuthMiddleware(tt.cfg, okHandler()), tt.target, tt.header...)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestIsPublicEndpoint(t *testing.T) {
	for path, want := range map[string]bool{
		"/":        true,
		"/health":  true,
		"/surahs":  false,
		"/metrics": false,
		"/health/": false,
	} {
		if got := isPublicEndpoint(path); got != want {
			t.Errorf("isPublicEndpoint(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestValidateAuthConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AuthConfig
		wantErr bool
	}{
		{"disabled", AuthConfig{}, false},
		{"disabled with short key", AuthConfig{APIKey: "x"}, false},
		{"enabled", AuthConfig{Enabled: true, APIKey: testAPIKey}, false},
		{"enabled without key", AuthConfig{Enabled: true}, true},
		{"enabled short key", AuthConfig{Enabled: true, APIKey: "short"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAuthConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAuthConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPIKeyHint(t *testing.T) {
	if !strings.Contains(APIKeyHint(), "QURAN_API_KEY") {
		t.Errorf("APIKeyHint() = %q", APIKeyHint())
	}
}
