package server

import (
	"io"
	"net/http"
	"strconv"
	"testing"

	"github.com/injectly/injectly/internal/calllog"
)

func createScript(t *testing.T, base, token, name, content string) scriptResponse {
	t.Helper()
	resp := postJSON(t, base+"/api/v1/scripts", token, map[string]string{
		"name":    name,
		"content": content,
	})
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("create script: expected 201, got %d body=%s", resp.StatusCode, string(b))
	}
	return decodeBody[scriptResponse](t, resp)
}

func createSite(t *testing.T, base, token, domain string) siteResponse {
	t.Helper()
	resp := postJSON(t, base+"/api/v1/sites", token, map[string]string{"domain": domain})
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("create site: expected 201, got %d body=%s", resp.StatusCode, string(b))
	}
	return decodeBody[siteResponse](t, resp)
}

func assignScript(t *testing.T, base, token string, scriptID int64, siteIDs []int64) scriptResponse {
	t.Helper()
	resp := doJSON(t, http.MethodPut, base+"/api/v1/scripts/"+itoa(scriptID)+"/sites", token, map[string]any{
		"siteIds": siteIDs,
	})
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("assign script: expected 200, got %d body=%s", resp.StatusCode, string(b))
	}
	return decodeBody[scriptResponse](t, resp)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestScriptsCRUD(t *testing.T) {
	srv := startTestServer(t)
	base := "http://" + srv.Addr()
	token := setupAndLogin(t, base)

	created := createScript(t, base, token, "analytics", "console.log('a');")
	if created.Name != "analytics" || created.Content != "console.log('a');" {
		t.Fatalf("unexpected created script: %#v", created)
	}
	if len(created.AssignedSites) != 0 {
		t.Fatalf("new script must start unassigned: %#v", created)
	}

	resp := doJSON(t, http.MethodGet, base+"/api/v1/scripts", token, nil)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("list scripts: expected 200, got %d", resp.StatusCode)
	}
	listed := decodeBody[scriptsResponse](t, resp)
	if len(listed.Scripts) != 1 || listed.Scripts[0].ID != created.ID {
		t.Fatalf("unexpected script list: %#v", listed)
	}

	resp = doJSON(t, http.MethodPut, base+"/api/v1/scripts/"+itoa(created.ID), token, map[string]string{
		"name":    "analytics-v2",
		"content": "console.log('b');",
	})
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("update script: expected 200, got %d", resp.StatusCode)
	}
	updated := decodeBody[scriptResponse](t, resp)
	if updated.Name != "analytics-v2" || updated.Content != "console.log('b');" {
		t.Fatalf("update not reflected: %#v", updated)
	}

	resp = doJSON(t, http.MethodDelete, base+"/api/v1/scripts/"+itoa(created.ID), token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete script: expected 204, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, base+"/api/v1/scripts/"+itoa(created.ID), token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted script: expected 404, got %d", resp.StatusCode)
	}
}

func TestScriptValidation(t *testing.T) {
	srv := startTestServer(t)
	base := "http://" + srv.Addr()
	token := setupAndLogin(t, base)

	for _, payload := range []map[string]string{
		{"name": "", "content": "console.log(1);"},
		{"name": "x", "content": "   "},
	} {
		resp := postJSON(t, base+"/api/v1/scripts", token, payload)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for %#v, got %d", payload, resp.StatusCode)
		}
	}
}

func TestScriptAssignmentReplace(t *testing.T) {
	srv := startTestServer(t)
	base := "http://" + srv.Addr()
	token := setupAndLogin(t, base)

	script := createScript(t, base, token, "tracker", "console.log('t');")
	siteA := createSite(t, base, token, "a.example.com")
	siteB := createSite(t, base, token, "b.example.com")

	assigned := assignScript(t, base, token, script.ID, []int64{siteB.ID, siteA.ID})
	if len(assigned.AssignedSites) != 2 {
		t.Fatalf("expected 2 assigned sites: %#v", assigned)
	}
	if assigned.AssignedSites[0].ID != siteB.ID || assigned.AssignedSites[1].ID != siteA.ID {
		t.Fatalf("assignment order not preserved: %#v", assigned.AssignedSites)
	}

	// Replacing swaps the whole set.
	assigned = assignScript(t, base, token, script.ID, []int64{siteA.ID})
	if len(assigned.AssignedSites) != 1 || assigned.AssignedSites[0].ID != siteA.ID {
		t.Fatalf("replace did not swap set: %#v", assigned.AssignedSites)
	}

	// And an empty set clears every assignment.
	assigned = assignScript(t, base, token, script.ID, []int64{})
	if len(assigned.AssignedSites) != 0 {
		t.Fatalf("empty replace did not clear: %#v", assigned.AssignedSites)
	}
}

func TestScriptAssignmentRejectsUnknownSite(t *testing.T) {
	srv := startTestServer(t)
	base := "http://" + srv.Addr()
	token := setupAndLogin(t, base)

	script := createScript(t, base, token, "tracker", "console.log('t');")

	resp := doJSON(t, http.MethodPut, base+"/api/v1/scripts/"+itoa(script.ID)+"/sites", token, map[string]any{
		"siteIds": []int64{9999},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown site, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, base+"/api/v1/scripts/9999/sites", token, map[string]any{
		"siteIds": []int64{},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown script, got %d", resp.StatusCode)
	}
}

func TestScriptStatsEndpoint(t *testing.T) {
	srv := startTestServer(t)
	base := "http://" + srv.Addr()
	token := setupAndLogin(t, base)

	script := createScript(t, base, token, "tracker", "console.log('t');")
	site := createSite(t, base, token, "stats.example.com")
	assignScript(t, base, token, script.ID, []int64{site.ID})

	resp := doJSON(t, http.MethodGet, base+"/inject.js?site=stats.example.com", "", nil)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("inject: expected 200, got %d", resp.StatusCode)
	}
	waitCallLogIdle(t, srv)

	resp = doJSON(t, http.MethodGet, base+"/api/v1/scripts/"+itoa(script.ID)+"/stats", token, nil)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("stats: expected 200, got %d", resp.StatusCode)
	}
	stats := decodeBody[calllog.Stats](t, resp)
	if stats.ScriptID != script.ID {
		t.Fatalf("unexpected stats script id: %#v", stats)
	}
	if stats.Total24h != 1 {
		t.Fatalf("expected 1 logged call, got %d", stats.Total24h)
	}

	resp = doJSON(t, http.MethodGet, base+"/api/v1/scripts/9999/stats", token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 stats for unknown script, got %d", resp.StatusCode)
	}
}
