package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Errorf("Expected OS and Arch to be set, got %q/%q", info.OS, info.Arch)
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		setEnv   bool
		want     string
	}{
		{"Returns default when env var not set", "", false, "default"},
		{"Returns env value when set", "custom", true, "custom"},
		{"Returns default when env var is empty", "", true, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const key = "CATALOG_TEST_STRING"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			} else {
				t.Setenv(key, "")
				os.Unsetenv(key)
			}

			if got := getEnv(key, "default"); got != tt.want {
				t.Errorf("getEnv(%q) = %q, want %q", key, got, tt.want)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CATALOG_DATABASE_DIR", dir)
	for _, key := range []string{
		"CATALOG_PORT", "CATALOG_METRICS_PORT", "CATALOG_METRICS_ENABLED",
		"CATALOG_METRICS_INTERVAL", "CATALOG_LOG_HEALTH_CHECKS",
		"CATALOG_AUTOCOMPLETE_MIN_LENGTH", "CATALOG_SEARCH_MIN_LENGTH",
		"CATALOG_BATCH_SIZE", "CATALOG_QUERY_TIMEOUT",
		"CATALOG_REBUILD_INTERVAL", "CATALOG_REBUILD_ON_START",
	} {
		t.Setenv(key, "")
	}

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.Port != "8080" || config.MetricsPort != "9090" {
		t.Errorf("ports = %s/%s, want 8080/9090", config.Port, config.MetricsPort)
	}
	if !config.MetricsEnabled {
		t.Error("metrics should be enabled by default")
	}
	if config.AutocompleteMinLength != 2 || config.SearchMinLength != 0 {
		t.Errorf("min lengths = %d/%d, want 2/0", config.AutocompleteMinLength, config.SearchMinLength)
	}
	if config.BatchSize != 1000 {
		t.Errorf("BatchSize = %d, want 1000", config.BatchSize)
	}
	if config.QueryTimeout != 5*time.Second {
		t.Errorf("QueryTimeout = %v, want 5s", config.QueryTimeout)
	}
	if config.RebuildInterval != 6*time.Hour {
		t.Errorf("RebuildInterval = %v, want 6h", config.RebuildInterval)
	}
	if want := filepath.Join(dir, "catalog.db"); config.DatabasePath != want {
		t.Errorf("DatabasePath = %s, want %s", config.DatabasePath, want)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("CATALOG_DATABASE_DIR", filepath.Join(t.TempDir(), "nested", "db"))
	t.Setenv("CATALOG_PORT", "9000")
	t.Setenv("CATALOG_AUTOCOMPLETE_MIN_LENGTH", "3")
	t.Setenv("CATALOG_SEARCH_MIN_LENGTH", "1")
	t.Setenv("CATALOG_BATCH_SIZE", "-5")
	t.Setenv("CATALOG_REBUILD_INTERVAL", "0")
	t.Setenv("CATALOG_METRICS_INTERVAL", "nonsense")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.Port != "9000" {
		t.Errorf("Port = %s, want 9000", config.Port)
	}
	if config.AutocompleteMinLength != 3 || config.SearchMinLength != 1 {
		t.Errorf("min lengths = %d/%d, want 3/1", config.AutocompleteMinLength, config.SearchMinLength)
	}
	if config.BatchSize != 1000 {
		t.Errorf("invalid batch size should fall back to 1000, got %d", config.BatchSize)
	}
	if config.RebuildInterval != 0 {
		t.Errorf("RebuildInterval = %v, want disabled", config.RebuildInterval)
	}
	if config.MetricsInterval != time.Minute {
		t.Errorf("MetricsInterval = %v, want fallback 1m", config.MetricsInterval)
	}
	if info, err := os.Stat(config.DatabaseDir); err != nil || !info.IsDir() {
		t.Errorf("database directory was not created: %v", err)
	}
}

func TestLoadConfigLeavesNoWriteCheckBehind(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CATALOG_DATABASE_DIR", dir)

	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("database directory should be left empty, found %d entries", len(entries))
	}
}

func TestLoadConfigDatabaseDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CATALOG_DATABASE_DIR", file)

	if _, err := LoadConfig(); err == nil {
		t.Error("expected an error when the database directory is a file")
	}
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/search", func(http.ResponseWriter, *http.Request) {}).Methods("GET").Name("search")
	router.HandleFunc("/healthz", func(http.ResponseWriter, *http.Request) {})

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d: %+v", len(routes), routes)
	}
	if routes[0] != (RouteInfo{Method: "GET", Path: "/api/search", Name: "search"}) {
		t.Errorf("unexpected first route %+v", routes[0])
	}
	if routes[1].Method != "*" {
		t.Errorf("route without methods should report *, got %s", routes[1].Method)
	}
}
