package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// windowServer serves one page per start offset and can drop the connection
// on a chosen offset a number of times before serving it normally.
func windowServer(t *testing.T, pages map[string]string, dropAt string, drops int) *httptest.Server {
	t.Helper()
	remaining := drops
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("start")
		if start == dropAt && remaining > 0 {
			remaining--
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatalf("server does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			_ = conn.Close()
			return
		}
		page, ok := pages[start]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
}

func testConfig(endpoint, outputPath string) Config {
	return Config{
		Endpoint:       endpoint,
		OutputPath:     outputPath,
		UpperBound:     300,
		Step:           100,
		WindowSize:     100,
		Pause:          time.Millisecond,
		RequestTimeout: 2 * time.Second,
		UserAgent:      DefaultUserAgent,
	}
}

func TestRun_EndToEnd_NoFailures(t *testing.T) {
	srv := windowServer(t, map[string]string{
		"0":   `<html><body>A</body></html>`,
		"100": `<html><body>B</body></html>`,
		"200": `<html><body>C</body></html>`,
	}, "", 0)
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "run.txt")
	a, err := New(testConfig(srv.URL, out))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(got) != "A B C " {
		t.Fatalf("expected artifact content %q, got %q", "A B C ", got)
	}

	var m runManifest
	data, err := os.ReadFile(out + ".manifest.json")
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if m.Stats.Windows != 3 || m.Stats.Flushes != 1 || m.Stats.TransientFailures != 0 {
		t.Fatalf("unexpected manifest stats: %+v", m.Stats)
	}
	if m.SHA256 == "" {
		t.Fatalf("expected artifact digest in manifest")
	}
}

func TestRun_EndToEnd_RecoversFromDroppedConnection(t *testing.T) {
	srv := windowServer(t, map[string]string{
		"0":   `<html><body>A</body></html>`,
		"100": `<html><body>B</body></html>`,
		"200": `<html><body>C</body></html>`,
	}, "100", 1)
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "run.txt")
	a, err := New(testConfig(srv.URL, out))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	// Two flushes land in the same file: "A " at the failure point, then
	// "B C " at the end.
	if string(got) != "A B C " {
		t.Fatalf("expected artifact content %q, got %q", "A B C ", got)
	}

	var m runManifest
	data, err := os.ReadFile(out + ".manifest.json")
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if m.Stats.TransientFailures != 1 || m.Stats.Flushes != 2 {
		t.Fatalf("unexpected manifest stats: %+v", m.Stats)
	}
}

func TestRun_DryRunFetchesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "run.txt")
	cfg := testConfig("https://example.org/rdf/instancesof/content", out)
	cfg.DryRun = true

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("dry run must not create the artifact")
	}
}

func TestNew_RequiresEndpoint(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for missing endpoint")
	}
}
