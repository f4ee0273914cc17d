package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// ClientMeta is a coarse description of the calling client, attached to
// audit events for holder-facing endpoints. It deliberately excludes the
// raw User-Agent string and IP address.
type ClientMeta struct {
	Browser  string
	OS       string
	Platform string
}

// String renders the metadata in the compact form audit events carry.
func (m ClientMeta) String() string {
	return m.Browser + "/" + m.OS + "/" + m.Platform
}

type clientMetaKey struct{}

// ClientMetadata parses the User-Agent header into a ClientMeta and stores
// it on the request context.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := parseClientMeta(r.Header.Get("User-Agent"))
		ctx := context.WithValue(r.Context(), clientMetaKey{}, meta)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientMeta retrieves the parsed client metadata from the context.
func GetClientMeta(ctx context.Context) ClientMeta {
	if meta, ok := ctx.Value(clientMetaKey{}).(ClientMeta); ok {
		return meta
	}
	return ClientMeta{Browser: "unknown", OS: "unknown", Platform: "unknown"}
}

func parseClientMeta(uaString string) ClientMeta {
	if uaString == "" {
		return ClientMeta{Browser: "unknown", OS: "unknown", Platform: "unknown"}
	}

	ua := useragent.New(uaString)
	browser, _ := ua.Browser()
	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = "unknown"
	}

	os := strings.ToLower(strings.TrimSpace(ua.OS()))
	if os == "" {
		os = "unknown"
	}

	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}

	return ClientMeta{Browser: browser, OS: os, Platform: platform}
}
