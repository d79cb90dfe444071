package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/injectly/injectly/internal/client"
	"github.com/injectly/injectly/internal/config"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("v-test")
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if strings.TrimSpace(out) != "v-test" {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestParseSiteIDs(t *testing.T) {
	ids, err := parseSiteIDs("3,1,2")
	if err != nil {
		t.Fatalf("parseSiteIDs() error = %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 1 || ids[2] != 2 {
		t.Fatalf("unexpected ids: %#v", ids)
	}

	ids, err = parseSiteIDs("  ")
	if err != nil {
		t.Fatalf("parseSiteIDs(empty) error = %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("empty input must clear assignments: %#v", ids)
	}

	for _, raw := range []string{"a,b", "1,", "0", "-2"} {
		if _, err := parseSiteIDs(raw); err == nil {
			t.Fatalf("parseSiteIDs(%q) expected error", raw)
		}
	}
}

func TestReadContent(t *testing.T) {
	if _, err := readContent("", ""); err == nil {
		t.Fatalf("expected error when neither flag given")
	}
	if _, err := readContent("x", "y"); err == nil {
		t.Fatalf("expected error when both flags given")
	}

	got, err := readContent("console.log(1);", "")
	if err != nil || got != "console.log(1);" {
		t.Fatalf("inline content: (%q, %v)", got, err)
	}

	path := filepath.Join(t.TempDir(), "snippet.js")
	if err := os.WriteFile(path, []byte("var fromFile = 1;"), 0o600); err != nil {
		t.Fatalf("write snippet file: %v", err)
	}
	got, err = readContent("", path)
	if err != nil || got != "var fromFile = 1;" {
		t.Fatalf("file content: (%q, %v)", got, err)
	}
}

func TestFormatSiteRefs(t *testing.T) {
	if got := formatSiteRefs(nil); got != "(none)" {
		t.Fatalf("empty refs = %q", got)
	}
	refs := []client.SiteRef{{ID: 1, Domain: "a.example.com"}, {ID: 2, Domain: "b.example.com"}}
	if got := formatSiteRefs(refs); got != "a.example.com, b.example.com" {
		t.Fatalf("unexpected refs: %q", got)
	}
}

func TestLoginWritesConfigAndScriptListUsesIt(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/login":
			_ = json.NewEncoder(w).Encode(client.LoginResponse{Username: "admin", Token: "tok-xyz"})
		case "/api/v1/scripts":
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(client.ScriptsResponse{Scripts: []client.Script{
				{ID: 1, Name: "tracker", UpdatedAt: "2026-03-14T12:00:00.000Z"},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(config.EnvConfigPath, configPath)

	out, err := runCommand(t, "login", "--server", ts.URL, "--username", "admin", "--password", "pw")
	if err != nil {
		t.Fatalf("login command error = %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Logged in to "+ts.URL+" as admin.") {
		t.Fatalf("unexpected login output: %q", out)
	}

	saved, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load saved config: %v", err)
	}
	if saved.Server != ts.URL || saved.Token != "tok-xyz" {
		t.Fatalf("unexpected saved config: %#v", saved)
	}

	out, err = runCommand(t, "script", "list")
	if err != nil {
		t.Fatalf("script list error = %v\noutput: %s", err, out)
	}
	if gotAuth != "Bearer tok-xyz" {
		t.Fatalf("stored token not sent: %q", gotAuth)
	}
	if !strings.Contains(out, "tracker") {
		t.Fatalf("unexpected list output: %q", out)
	}
}

func TestSiteAddPrintsEmbedHint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sites" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(client.Site{ID: 3, Domain: "example.com"})
	}))
	defer ts.Close()

	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))

	out, err := runCommand(t, "site", "add", "example.com", "--server", ts.URL)
	if err != nil {
		t.Fatalf("site add error = %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Site registered:") || !strings.Contains(out, "/inject.js") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestStatsCommandJSONOutput(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/scripts/7/stats" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(client.ScriptStats{ScriptID: 7, Total24h: 42})
	}))
	defer ts.Close()

	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))

	out, err := runCommand(t, "stats", "7", "--server", ts.URL, "-o", "json")
	if err != nil {
		t.Fatalf("stats command error = %v\noutput: %s", err, out)
	}
	var decoded client.ScriptStats
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid json: %v\n%s", err, out)
	}
	if decoded.ScriptID != 7 || decoded.Total24h != 42 {
		t.Fatalf("unexpected stats: %#v", decoded)
	}
}

func TestScriptCommandRejectsBadID(t *testing.T) {
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))
	if _, err := runCommand(t, "script", "get", "not-a-number"); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
}
