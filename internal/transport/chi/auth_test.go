package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	for _, keys := range [][]string{nil, {"", "  "}} {
		handler := APIKeyAuth(keys)(okHandler())

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", "/v1/similar", http.NoBody))

		if rr.Code != http.StatusOK {
			t.Errorf("keys %q: got %d, want %d", keys, rr.Code, http.StatusOK)
		}
	}
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		headers  map[string]string
		wantCode int
		wantErr  ErrorResponseCode
	}{
		{"no credentials", "/v1/similar", nil, http.StatusUnauthorized, ErrorResponseCodeMissingAPIKey},
		{"empty bearer", "/v1/similar", map[string]string{"Authorization": "Bearer "}, http.StatusUnauthorized, ErrorResponseCodeMissingAPIKey},
		{"basic scheme", "/v1/similar", map[string]string{"Authorization": "Basic dXNlcjpwYXNz"}, http.StatusUnauthorized, ErrorResponseCodeInvalidAPIKey},
		{"unknown bearer", "/v1/similar", map[string]string{"Authorization": "Bearer wrong"}, http.StatusUnauthorized, ErrorResponseCodeInvalidAPIKey},
		{"unknown header key", "/v1/similar/xml", map[string]string{"X-API-Key": "wrong"}, http.StatusUnauthorized, ErrorResponseCodeInvalidAPIKey},
		{"bearer key1", "/v1/similar", map[string]string{"Authorization": "Bearer key1"}, http.StatusOK, ""},
		{"lowercase scheme", "/v1/similar", map[string]string{"Authorization": "bearer key2"}, http.StatusOK, ""},
		{"header key2", "/v1/similar", map[string]string{"X-API-Key": "key2"}, http.StatusOK, ""},
		{"header wins", "/v1/similar", map[string]string{"X-API-Key": "key1", "Authorization": "Bearer wrong"}, http.StatusOK, ""},
		{"health open", "/health", nil, http.StatusOK, ""},
		{"metrics open", "/metrics", nil, http.StatusOK, ""},
	}

	handler := APIKeyAuth([]string{"key1", " key2 ", ""})(okHandler())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.path, http.NoBody)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantErr == "" {
				return
			}
			if got := rr.Header().Get("WWW-Authenticate"); got != `Bearer realm="patsim"` {
				t.Errorf("WWW-Authenticate = %q", got)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != tt.wantErr {
				t.Errorf("code = %s, want %s", errResp.Code, tt.wantErr)
			}
		})
	}
}
