package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "PTS_SYNC_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "pkg", "configuration")
	requireMkdirAll(t, sub)

	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(sub); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	_ = os.Unsetenv("PTS_SYNC_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{".env", ".env.local"})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 env file loaded, got %d", n)
	}
	if got := os.Getenv("PTS_SYNC_TEST_ENV_LOAD"); got != "ok" {
		t.Fatalf("expected env var loaded from repo root, got %q", got)
	}
}

func TestParse_DefaultsAndValidation(t *testing.T) {
	t.Setenv("PTS_DATE_FALLBACK", "ERROR")
	t.Setenv("LOCK_BACKEND", "memory")

	c, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.PTS.BatchSize != 100 {
		t.Fatalf("expected default batch size 100, got %d", c.PTS.BatchSize)
	}
	if c.PTS.DateFallback != DateFallbackError {
		t.Fatalf("expected normalized date fallback, got %q", c.PTS.DateFallback)
	}
	if c.PTS.RawDataSheet != "02-Raw Data" || c.PTS.LogRange != "A2:R" {
		t.Fatalf("unexpected sheet defaults: %+v", c.PTS)
	}
	if c.Database.Opts == "" {
		t.Fatalf("expected connection string to be populated")
	}
}

func TestPTSOptions_Validate(t *testing.T) {
	cases := []struct {
		name string
		opts PTSOptions
		ok   bool
	}{
		{"valid", PTSOptions{BatchSize: 10, SourceTag: "PTS", DateFallback: "now", MaxReportedItems: 1}, true},
		{"zero batch", PTSOptions{BatchSize: 0, SourceTag: "PTS", DateFallback: "now", MaxReportedItems: 1}, false},
		{"empty tag", PTSOptions{BatchSize: 10, SourceTag: " ", DateFallback: "now", MaxReportedItems: 1}, false},
		{"bad fallback", PTSOptions{BatchSize: 10, SourceTag: "PTS", DateFallback: "yesterday", MaxReportedItems: 1}, false},
		{"negative max items", PTSOptions{BatchSize: 10, SourceTag: "PTS", DateFallback: "now", MaxReportedItems: -1}, false},
		{"zero max items", PTSOptions{BatchSize: 10, SourceTag: "PTS", DateFallback: "now", MaxReportedItems: 0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLockOptions_Validate(t *testing.T) {
	if err := (&LockOptions{Backend: "redis", TTL: time.Minute}).Validate(); err == nil {
		t.Fatalf("expected error for redis without url")
	}
	if err := (&LockOptions{Backend: "etcd", TTL: time.Minute}).Validate(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if err := (&LockOptions{Backend: "memory", TTL: time.Minute}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGoogleOptions_Credentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	requireWriteFile(t, path, `{"type":"service_account"}`)

	g := GoogleOptions{ServiceAccountFile: path}
	b, err := g.Credentials()
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Fatalf("unexpected credentials: %q %v", b, err)
	}

	g.ServiceAccountKey = `{"inline":true}`
	b, _ = g.Credentials()
	if string(b) != `{"inline":true}` {
		t.Fatalf("inline key must win, got %q", b)
	}

	empty := GoogleOptions{}
	b, err = empty.Credentials()
	if err != nil || b != nil {
		t.Fatalf("expected nil credentials, got %q %v", b, err)
	}
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func requireMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}
