package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/vitreos/internal/config"
	"github.com/Skufu/vitreos/internal/kv"
	"github.com/Skufu/vitreos/internal/profile"
)

func setSQLiteEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vitreos.db")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("LOG_LEVEL", "disabled")
	t.Setenv("AI_API_KEY", "")
	return path
}

func seedProfile(t *testing.T, path string, p profile.Profile) {
	t.Helper()
	ctx := context.Background()
	store, err := kv.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()
	if err := profile.NewStore(store, zerolog.Nop()).Submit(ctx, p); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestProfileShowAndClear(t *testing.T) {
	path := setSQLiteEnv(t)
	seedProfile(t, path, profile.Profile{profile.BloodGroup: "A+", profile.WBC: "9.1"})

	out := runCmd(t, "profile", "show")
	if !strings.Contains(out, `"bg": "A+"`) || !strings.Contains(out, `"complete": true`) {
		t.Fatalf("unexpected profile output: %s", out)
	}

	if out := runCmd(t, "profile", "clear"); !strings.Contains(out, "profile cleared") {
		t.Fatalf("unexpected clear output: %s", out)
	}

	out = runCmd(t, "profile", "show")
	if !strings.Contains(out, `"complete": false`) {
		t.Fatalf("expected incomplete profile after clear, got %s", out)
	}

	out = runCmd(t, "history", "list")
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected header plus one entry, got %q", out)
	}
}

func TestHistoryExport(t *testing.T) {
	path := setSQLiteEnv(t)
	seedProfile(t, path, profile.Profile{profile.Allergies: "peanuts"})

	target := filepath.Join(t.TempDir(), "history.xlsx")
	out := runCmd(t, "history", "export", "--out", target)
	if !strings.Contains(out, "exported 1 entries") {
		t.Fatalf("unexpected export output: %s", out)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatal("export is not an xlsx archive")
	}
}

func TestPromptsCommand(t *testing.T) {
	out := runCmd(t, "prompts")
	for _, want := range []string{"advisor", "drug-analyzer", "safetyScore:number[0-100]!", "scan"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestLoadAppRejectsBadConfig(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, _, err := loadApp(context.Background()); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestRouterHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		StoreBackend:          config.BackendMemory,
		AIMaxTokens:           900,
		MaxBodyBytes:          1 << 20,
		DashboardRefreshDelay: time.Millisecond,
	}
	a, cleanup, err := newApp(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer cleanup()

	router := a.router("")
	for _, path := range []string{"/healthz", "/readyz"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"status":"ok"`) {
			t.Fatalf("%s: unexpected body: %s", path, w.Body.String())
		}
	}
}

func TestCompletionConfig(t *testing.T) {
	cfg := &config.Config{
		AIAPIKey:      "sk-test-123",
		AIEndpoint:    "http://localhost:9999/v1",
		AIModel:       "openai",
		AIMaxTokens:   500,
		AITemperature: 0.2,
		AITimeout:     3 * time.Second,
	}
	got := completionConfig(cfg)
	if got.APIKey != cfg.AIAPIKey || got.Endpoint != cfg.AIEndpoint || got.MaxTokens != 500 || got.Timeout != 3*time.Second {
		t.Fatalf("unexpected completion config: %+v", got)
	}
}
