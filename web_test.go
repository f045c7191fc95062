/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(t *testing.T, cfg *Config, rt *Router, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	newMux(cfg, rt, make(chan error, 16)).ServeHTTP(w, req)

	return w
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{path: "/", contentType: "text/html", contains: "/ws"},
		{path: "/healthz", contentType: "text/plain", contains: "Ok"},
		{path: "/version", contentType: "text/plain", contains: "beacon v" + releaseVersion},
		{path: "/robots.txt", contentType: "text/plain", contains: "Disallow: /ws"},
		{path: "/favicon.svg", contentType: "image/svg+xml", contains: "<svg"},
	}

	cfg := &Config{queueSize: defaultQueueSize}
	rt := newTestRouter()

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(t, cfg, rt, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			if !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("body %q does not contain %q", w.Body.String(), tt.contains)
			}
			if w.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("security headers missing")
			}
		})
	}
}

func TestRoutesUnderPrefix(t *testing.T) {
	cfg := &Config{prefix: "/beacon/", queueSize: defaultQueueSize}
	rt := newTestRouter()

	if w := serve(t, cfg, rt, httptest.NewRequest(http.MethodGet, "/beacon/healthz", nil)); w.Code != http.StatusOK {
		t.Errorf("prefixed healthz status = %d, want 200", w.Code)
	}
	if w := serve(t, cfg, rt, httptest.NewRequest(http.MethodGet, "/healthz", nil)); w.Code != http.StatusNotFound {
		t.Errorf("unprefixed healthz status = %d, want 404", w.Code)
	}
}

func TestServeStats(t *testing.T) {
	cfg := &Config{queueSize: defaultQueueSize}
	rt := newTestRouter()

	x := join(t, rt)
	join(t, rt)
	rt.Handle(x.Session, ClaimName{Name: "alice"})
	rt.Handle(x.Session, LocationUpdate{Latitude: 1, Longitude: 1})

	w := serve(t, cfg, rt, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got Stats
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if want := (Stats{Connected: 2, Named: 1, Located: 1}); got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestServeQR(t *testing.T) {
	cfg := &Config{queueSize: defaultQueueSize}

	w := serve(t, cfg, newTestRouter(), httptest.NewRequest(http.MethodGet, "/qr", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("body is not a PNG")
	}
}

func TestHubURL(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		target string
		proto  string
		want   string
	}{
		{name: "plain", target: "/qr", want: "http://example.com/"},
		{name: "prefixed", prefix: "/beacon", target: "/beacon/qr", want: "http://example.com/beacon/"},
		{name: "behind proxy", target: "/qr", proto: "https", want: "https://example.com/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tt.proto)
			}

			if got := hubURL(&Config{prefix: tt.prefix}, r); got != tt.want {
				t.Errorf("hubURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		remote string
		header string
		value  string
		want   string
	}{
		{remote: "192.0.2.1:1234", want: "192.0.2.1:1234"},
		{remote: "192.0.2.1:1234", header: "X-Real-IP", value: "203.0.113.9", want: "203.0.113.9:1234"},
		{remote: "192.0.2.1:1234", header: "CF-Connecting-IP", value: "2001:db8::1", want: "[2001:db8::1]:1234"},
		{remote: "192.0.2.1:1234", header: "X-Real-IP", value: "garbage", want: "192.0.2.1:1234"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		if tt.header != "" {
			r.Header.Set(tt.header, tt.value)
		}

		if got := realIP(r); got != tt.want {
			t.Errorf("realIP(%s, %s=%s) = %q, want %q", tt.remote, tt.header, tt.value, got, tt.want)
		}
	}
}

func TestHumanReadableSize(t *testing.T) {
	for in, want := range map[int64]string{
		0:       "0 B",
		999:     "999 B",
		1500:    "1.5 kB",
		2500000: "2.5 MB",
	} {
		if got := humanReadableSize(in); got != want {
			t.Errorf("humanReadableSize(%d) = %q, want %q", in, got, want)
		}
	}
}
