package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/testutil"
)

const planMode = "---\ndescription: Planning mode\ntools: ['codebase', 'search']\n---\nPlan before coding."

// testEnv spins up a router backed by a temp modes dir and catalog.
type testEnv struct {
	server *httptest.Server
	svc    *registry.Service
}

func newTestEnv(t *testing.T, authEnabled bool, token string) *testEnv {
	t.Helper()
	_, store := testutil.TestModesDir(t)
	db := testutil.TestDB(t)
	svc := registry.NewService(store, db)

	router := NewRouter(svc, authEnabled, token, nil)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, svc: svc}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCreateAndGetMode(t *testing.T) {
	env := newTestEnv(t, false, "")

	resp := env.do(t, http.MethodPost, "/modes", CreateModeRequest{
		Path:    "plan.chatmode.md",
		Content: planMode,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created ModeDetail
	decodeBody(t, resp, &created)
	if created.Name != "plan" || created.Checksum == "" {
		t.Errorf("created = %+v", created)
	}

	resp = env.do(t, http.MethodGet, "/modes/plan", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var got ModeDetail
	decodeBody(t, resp, &got)
	if got.Description != "Planning mode" {
		t.Errorf("description = %q", got.Description)
	}
	if len(got.Tools) != 2 {
		t.Errorf("tools = %v", got.Tools)
	}
}

func TestGetMode_NotFound(t *testing.T) {
	env := newTestEnv(t, false, "")
	resp := env.do(t, http.MethodGet, "/modes/nonexistent", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateMode_Conflict(t *testing.T) {
	env := newTestEnv(t, false, "")
	body := CreateModeRequest{Path: "plan.chatmode.md", Content: planMode}

	if resp := env.do(t, http.MethodPost, "/modes", body, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create = %d", resp.StatusCode)
	}
	resp := env.do(t, http.MethodPost, "/modes", body, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second create = %d, want 409", resp.StatusCode)
	}
}

func TestCreateMode_MalformedContent(t *testing.T) {
	env := newTestEnv(t, false, "")

	resp := env.do(t, http.MethodPost, "/modes", CreateModeRequest{
		Path:    "bad.chatmode.md",
		Content: "---\ndescription: Broken\nno closing fence",
	}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestCreateMode_BadRequests(t *testing.T) {
	env := newTestEnv(t, false, "")

	// Missing suffix.
	resp := env.do(t, http.MethodPost, "/modes", CreateModeRequest{
		Path:    "plan.md",
		Content: planMode,
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad suffix status = %d, want 400", resp.StatusCode)
	}

	// Missing fields.
	resp = env.do(t, http.MethodPost, "/modes", CreateModeRequest{}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty body status = %d, want 400", resp.StatusCode)
	}
}

func TestUpdateMode_IfMatch(t *testing.T) {
	env := newTestEnv(t, false, "")

	resp := env.do(t, http.MethodPost, "/modes", CreateModeRequest{Path: "plan.chatmode.md", Content: planMode}, nil)
	var created ModeDetail
	decodeBody(t, resp, &created)

	updated := "---\ndescription: Updated\n---\nNew body."
	resp = env.do(t, http.MethodPut, "/modes/plan.chatmode.md", UpdateModeRequest{Content: updated},
		map[string]string{"If-Match": `"` + created.Checksum + `"`})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPut, "/modes/plan.chatmode.md", UpdateModeRequest{Content: updated},
		map[string]string{"If-Match": "stale"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("stale update status = %d, want 409", resp.StatusCode)
	}
}

func TestDeleteMode(t *testing.T) {
	env := newTestEnv(t, false, "")
	env.do(t, http.MethodPost, "/modes", CreateModeRequest{Path: "plan.chatmode.md", Content: planMode}, nil)

	resp := env.do(t, http.MethodDelete, "/modes/plan", nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/modes/plan", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", resp.StatusCode)
	}
}

func TestListModes(t *testing.T) {
	env := newTestEnv(t, false, "")
	env.do(t, http.MethodPost, "/modes", CreateModeRequest{Path: "a.chatmode.md", Content: "---\ndescription: A\ntools: ['search']\n---\nBody."}, nil)
	env.do(t, http.MethodPost, "/modes", CreateModeRequest{Path: "b.chatmode.md", Content: "---\ndescription: B\n---\nBody."}, nil)

	resp := env.do(t, http.MethodGet, "/modes?sort=path", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var list ModeListResponse
	decodeBody(t, resp, &list)
	if list.Total != 2 || len(list.Modes) != 2 {
		t.Fatalf("list = %+v", list)
	}

	resp = env.do(t, http.MethodGet, "/modes?tool=search", nil, nil)
	decodeBody(t, resp, &list)
	if list.Total != 1 || list.Modes[0].Path != "a.chatmode.md" {
		t.Errorf("filtered list = %+v", list)
	}
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, false, "")
	env.do(t, http.MethodPost, "/modes", CreateModeRequest{Path: "plan.chatmode.md", Content: "---\ndescription: Planning\n---\nThink about architecture first."}, nil)

	resp := env.do(t, http.MethodGet, "/search?q=architecture", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}
	var sr SearchResponse
	decodeBody(t, resp, &sr)
	if len(sr.Results) != 1 || sr.Results[0].Path != "plan.chatmode.md" {
		t.Errorf("results = %+v", sr.Results)
	}

	resp = env.do(t, http.MethodGet, "/search", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", resp.StatusCode)
	}
}

func TestToolsAndGraph(t *testing.T) {
	env := newTestEnv(t, false, "")
	env.do(t, http.MethodPost, "/modes", CreateModeRequest{Path: "a.chatmode.md", Content: "---\ndescription: A\ntools: ['search', 'fetch']\n---\nBody."}, nil)

	resp := env.do(t, http.MethodGet, "/tools", nil, nil)
	var tr ToolsResponse
	decodeBody(t, resp, &tr)
	if len(tr.Tools) != 2 {
		t.Errorf("tools = %+v", tr.Tools)
	}

	resp = env.do(t, http.MethodGet, "/tools/search/modes", nil, nil)
	var fm struct {
		Tool  string   `json:"tool"`
		Modes []string `json:"modes"`
	}
	decodeBody(t, resp, &fm)
	if fm.Tool != "search" || len(fm.Modes) != 1 {
		t.Errorf("modes for tool = %+v", fm)
	}

	resp = env.do(t, http.MethodGet, "/graph", nil, nil)
	var gr GraphResponse
	decodeBody(t, resp, &gr)
	if len(gr.Nodes) != 3 || len(gr.Links) != 2 {
		t.Errorf("graph = %d nodes, %d links", len(gr.Nodes), len(gr.Links))
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, true, "secret-token")

	resp := env.do(t, http.MethodGet, "/modes", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/modes", nil, map[string]string{"Authorization": "Bearer wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d, want 401", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/modes", nil, map[string]string{"Authorization": "Bearer secret-token"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid token status = %d, want 200", resp.StatusCode)
	}
}

func TestModePathEncodedSlash(t *testing.T) {
	env := newTestEnv(t, false, "")
	content := "---\ndescription: Team plan\n---\nBody."
	env.do(t, http.MethodPost, "/modes", CreateModeRequest{Path: "team/plan.chatmode.md", Content: content}, nil)

	for _, url := range []string{"/modes/team/plan.chatmode.md", "/modes/" + strings.ReplaceAll("team/plan.chatmode.md", "/", "%2F")} {
		resp := env.do(t, http.MethodGet, url, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", url, resp.StatusCode)
		}
	}
}
