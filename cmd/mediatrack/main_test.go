package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
)

type cliTestEnv struct {
	configPath string
	dataDir    string
	searches   *atomic.Int64
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("MEDIATRACK_VERSION", "")

	searches := new(atomic.Int64)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/movie":
			searches.Add(1)
			_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"total_results":2,"results":[
				{"id":1,"title":"Heat Wave","release_date":"1995-03-01"},
				{"id":949,"title":"Heat","release_date":"1995-12-15"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	env := &cliTestEnv{
		configPath: filepath.Join(base, "config.toml"),
		dataDir:    filepath.Join(base, "data"),
		searches:   searches,
	}
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[tmdb]
api_key = "test-key"
base_url = %q
requests_per_second = 100.0

[cache]
version = "cli-test"

[logging]
level = "error"
`, env.dataDir, filepath.Join(base, "logs"), server.URL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestMatchReadsCandidatesFromStdin(t *testing.T) {
	env := setupCLITestEnv(t)
	candidates := `[
		{"title":"Breaking Bad","publish_year":2008,"lot":"movie","identifier":"m"},
		{"title":"Breaking Bad","publish_year":2008,"lot":"show","identifier":"s"}
	]`

	out, err := runCLI(t, env, candidates, "--json", "match", "--title", "Breaking Bad S01E01")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	var best struct {
		Identifier string  `json:"identifier"`
		Position   int     `json:"position"`
		Score      float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(out), &best); err != nil {
		t.Fatalf("decode match output %q: %v", out, err)
	}
	if best.Identifier != "s" || best.Position != 1 {
		t.Fatalf("expected the show, got %+v", best)
	}

	out, err = runCLI(t, env, candidates, "match", "--title", "Breaking Bad", "--rank")
	if err != nil {
		t.Fatalf("match --rank: %v", err)
	}
	if strings.Index(out, " m ") > strings.Index(out, " s ") {
		t.Fatalf("expected the movie ranked first without an episode marker:\n%s", out)
	}
}

func TestMatchWithoutCandidatesFails(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := runCLI(t, env, "[]", "match", "--title", "Heat"); err == nil {
		t.Fatal("expected an error for an empty candidate list")
	}
	if _, err := runCLI(t, env, "[]", "match"); err == nil {
		t.Fatal("expected an error without --title")
	}
}

func TestResolveCachesSearches(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "", "resolve", "--title", "Heat (1995)", "--lot", "movie")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	requireContains(t, out, "949")

	out, err = runCLI(t, env, "", "--json", "resolve", "--file", "/media/Heat.1995.1080p.BluRay.x264.mkv", "--lot", "movie")
	if err != nil {
		t.Fatalf("resolve --file: %v", err)
	}
	var res struct {
		Query  string `json:"query"`
		Cached bool   `json:"cached"`
		Match  struct {
			Identifier string `json:"identifier"`
		} `json:"match"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode resolve output %q: %v", out, err)
	}
	if !res.Cached || res.Match.Identifier != "949" || res.Query != "Heat" {
		t.Fatalf("expected cached resolution of Heat, got %+v", res)
	}
	if got := env.searches.Load(); got != 1 {
		t.Fatalf("expected a single TMDB search, got %d", got)
	}
}

func TestCacheCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := runCLI(t, env, "", "resolve", "--title", "Heat", "--lot", "movie"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	out, err := runCLI(t, env, "", "cache", "variants")
	if err != nil {
		t.Fatalf("cache variants: %v", err)
	}
	requireContains(t, out, "metadata_search")
	requireContains(t, out, "progress_update_cache")

	out, err = runCLI(t, env, "", "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, out, "metadata_search")

	out, err = runCLI(t, env, "", "cache", "expire", "metadata_search")
	if err != nil {
		t.Fatalf("cache expire: %v", err)
	}
	requireContains(t, out, "Expired: 1 entry for metadata_search")

	out, err = runCLI(t, env, "", "cache", "list")
	if err != nil {
		t.Fatalf("cache list after expire: %v", err)
	}
	requireContains(t, out, "No cache entries")

	out, err = runCLI(t, env, "", "cache", "purge")
	if err != nil {
		t.Fatalf("cache purge: %v", err)
	}
	requireContains(t, out, "Purged 1 expired entry")

	out, err = runCLI(t, env, "", "sweep", "--once")
	if err != nil {
		t.Fatalf("sweep --once: %v", err)
	}
	requireContains(t, out, "Purged 0 expired entries")

	if _, err := runCLI(t, env, "", "cache", "expire", "not-a-target"); err == nil {
		t.Fatal("expected error for unknown expire target")
	}
}

func TestCacheExpireByID(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := runCLI(t, env, "", "resolve", "--title", "Heat", "--lot", "movie"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out, err := runCLI(t, env, "", "--json", "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	var entries []struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil || len(entries) != 1 {
		t.Fatalf("decode cache list %q: %v", out, err)
	}

	out, err = runCLI(t, env, "", "cache", "expire", entries[0].ID)
	if err != nil {
		t.Fatalf("cache expire id: %v", err)
	}
	requireContains(t, out, "Expired: 1 entry")

	out, err = runCLI(t, env, "", "cache", "expire", entries[0].Key)
	if err != nil {
		t.Fatalf("cache expire key: %v", err)
	}
	requireContains(t, out, "Unchanged")
}

func TestProgressRecordCoalesces(t *testing.T) {
	env := setupCLITestEnv(t)
	args := []string{"progress", "record", "--id", "tt0113277", "--lot", "movie", "--progress", "50"}

	out, err := runCLI(t, env, "", args...)
	if err != nil {
		t.Fatalf("progress record: %v", err)
	}
	requireContains(t, out, "Accepted")

	out, err = runCLI(t, env, "", args...)
	if err != nil {
		t.Fatalf("progress record again: %v", err)
	}
	requireContains(t, out, "Duplicate")

	out, err = runCLI(t, env, "", "progress", "status", "--id", "tt0113277", "--lot", "movie")
	if err != nil {
		t.Fatalf("progress status: %v", err)
	}
	requireContains(t, out, "Recent")

	out, err = runCLI(t, env, "", "progress", "status", "--id", "tt0000001", "--lot", "movie")
	if err != nil {
		t.Fatalf("progress status unknown: %v", err)
	}
	requireContains(t, out, "Idle")
}

func TestVersionCachesCoreDetails(t *testing.T) {
	env := setupCLITestEnv(t)
	first, err := runCLI(t, env, "", "--json", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, first, `"version": "cli-test"`)
	second, err := runCLI(t, env, "", "--json", "version")
	if err != nil {
		t.Fatalf("version again: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached core details\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestConfigInitShowValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, env, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, err := runCLI(t, env, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}

	out, err = runCLI(t, env, "", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "********")
	if strings.Contains(out, "test-key") {
		t.Fatalf("api key leaked in config show:\n%s", out)
	}

	out, err = runCLI(t, env, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "cli-test")
}

func TestProcessVersionFallbacks(t *testing.T) {
	if got := processVersion(nil); !strings.HasPrefix(got, "dev-") {
		t.Fatalf("expected dev fallback, got %q", got)
	}
	original := buildVersion
	t.Cleanup(func() { buildVersion = original })
	buildVersion = "1.2.3"
	if got := processVersion(nil); got != "1.2.3" {
		t.Fatalf("expected build version, got %q", got)
	}
}
