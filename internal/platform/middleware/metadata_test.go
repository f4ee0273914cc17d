package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientMetadataParsesUserAgent(t *testing.T) {
	var captured ClientMeta
	handler := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetClientMeta(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "chrome", captured.Browser)
	assert.Equal(t, "desktop", captured.Platform)
	assert.NotEqual(t, "unknown", captured.OS)
}

func TestClientMetadataMissingUserAgent(t *testing.T) {
	var captured ClientMeta
	handler := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetClientMeta(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, ClientMeta{Browser: "unknown", OS: "unknown", Platform: "unknown"}, captured)
}

func TestGetClientMetaWithoutMiddleware(t *testing.T) {
	meta := GetClientMeta(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.Equal(t, "unknown", meta.Browser)
}
