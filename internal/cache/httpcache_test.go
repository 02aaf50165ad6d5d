package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	url := "https://example.org/content?start=0&results=100"

	if err := c.Save(ctx, url, "text/html", `"e1"`, "Mon, 01 Jan 2024 00:00:00 GMT", []byte("body")); err != nil {
		t.Fatalf("save: %v", err)
	}

	meta, err := c.LoadMeta(ctx, url)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.ETag != `"e1"` || meta.ContentType != "text/html" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	body, err := c.LoadBody(ctx, url)
	if err != nil {
		t.Fatalf("load body: %v", err)
	}
	if string(body) != "body" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestLoadMeta_MissingEntry(t *testing.T) {
	c := &HTTPCache{Dir: t.TempDir()}
	if _, err := c.LoadMeta(context.Background(), "https://example.org/none"); err == nil {
		t.Fatalf("expected error for missing entry")
	}
}

func TestPurgeByAge(t *testing.T) {
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	ctx := context.Background()

	if err := c.Save(ctx, "https://example.org/old", "text/html", "", "", []byte("old")); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Backdate by rewriting SavedAt through a short sleep and tiny maxAge.
	time.Sleep(20 * time.Millisecond)

	removed, err := PurgeByAge(dir, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one entry purged, got %d", removed)
	}
	if _, err := c.LoadMeta(ctx, "https://example.org/old"); err == nil {
		t.Fatalf("expected purged meta to be gone")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty cache dir after purge, found %d entries", len(entries))
	}
}

func TestPurgeByAge_KeepsFreshEntries(t *testing.T) {
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	ctx := context.Background()

	if err := c.Save(ctx, "https://example.org/fresh", "text/html", "", "", []byte("fresh")); err != nil {
		t.Fatalf("save: %v", err)
	}
	removed, err := PurgeByAge(dir, time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected nothing purged, got %d", removed)
	}
	if _, err := c.LoadMeta(ctx, "https://example.org/fresh"); err != nil {
		t.Fatalf("fresh entry should survive: %v", err)
	}
}

func TestClearDir(t *testing.T) {
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	if err := c.Save(context.Background(), "https://example.org/x", "text/html", "", "", []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("cleared dir should exist: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, found %d entries", len(entries))
	}
}
