package mcpserver

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/sessionstore"
	"github.com/starford/othala/internal/storage"
)

func testServer(t *testing.T) (*Server, *sessionstore.DB, *storage.ManifestFS) {
	t.Helper()

	manifests, err := storage.NewManifestFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "othala-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := sessionstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	return New(db, manifests), db, manifests
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	return tc.Text
}

func TestGetSessionStatus(t *testing.T) {
	srv, db, _ := testServer(t)
	now := time.Now().UTC()
	s := &models.Session{ID: "s1", Status: models.SessionActive, NotesPlanned: 4, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(s); err != nil {
		t.Fatal(err)
	}

	res, err := srv.getSessionStatus(context.Background(), toolRequest("get_session_status", map[string]interface{}{"session_id": "s1"}))
	if err != nil {
		t.Fatalf("tool error: %v", err)
	}
	text := textOf(t, res)
	if !strings.Contains(text, `"status": "active"`) {
		t.Errorf("result = %s", text)
	}
}

func TestGetSessionStatus_Missing(t *testing.T) {
	srv, _, _ := testServer(t)
	res, err := srv.getSessionStatus(context.Background(), toolRequest("get_session_status", map[string]interface{}{"session_id": "nope"}))
	if err != nil {
		t.Fatalf("tool error: %v", err)
	}
	if !res.IsError {
		t.Error("expected error result for unknown session")
	}
}

func TestListPages(t *testing.T) {
	srv, _, manifests := testServer(t)
	m := &models.Manifest{
		SessionID: "s1",
		Pages: []models.ManifestPage{
			{ID: "a", Title: "Guide", Route: "/docs/guide/", Slug: "guide", PublishedAt: time.Now()},
			{ID: "b", Title: "Hello", Route: "/hello/", Slug: "hello", PublishedAt: time.Now()},
		},
	}
	if err := manifests.Save(m); err != nil {
		t.Fatal(err)
	}

	res, err := srv.listPages(context.Background(), toolRequest("list_pages", nil))
	if err != nil {
		t.Fatal(err)
	}
	text := textOf(t, res)
	if !strings.Contains(text, "/docs/guide/") || !strings.Contains(text, "/hello/") {
		t.Errorf("result = %s", text)
	}

	res, err = srv.listPages(context.Background(), toolRequest("list_pages", map[string]interface{}{"prefix": "/docs/"}))
	if err != nil {
		t.Fatal(err)
	}
	text = textOf(t, res)
	if strings.Contains(text, "/hello/") {
		t.Errorf("prefix filter leaked: %s", text)
	}
}

func TestListPages_NoManifest(t *testing.T) {
	srv, _, _ := testServer(t)
	res, err := srv.listPages(context.Background(), toolRequest("list_pages", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(textOf(t, res), "no manifest") {
		t.Errorf("result = %s", textOf(t, res))
	}
}

func TestSiteSummary(t *testing.T) {
	srv, _, manifests := testServer(t)
	m := &models.Manifest{
		SessionID: "s1",
		Pages:     []models.ManifestPage{{ID: "a", Route: "/a/", Slug: "a", PublishedAt: time.Now()}},
		Assets:    []models.AssetRecord{{Path: "/x.png", Hash: "h"}},
	}
	if err := manifests.Save(m); err != nil {
		t.Fatal(err)
	}

	res, err := srv.siteSummary(context.Background(), toolRequest("site_summary", nil))
	if err != nil {
		t.Fatal(err)
	}
	text := textOf(t, res)
	if !strings.Contains(text, `"pages": 1`) || !strings.Contains(text, `"assets": 1`) {
		t.Errorf("summary = %s", text)
	}
}

func TestGetPublishContract(t *testing.T) {
	srv, _, _ := testServer(t)
	res, err := srv.getPublishContract(context.Background(), toolRequest("get_publish_contract", nil))
	if err != nil {
		t.Fatal(err)
	}
	text := textOf(t, res)
	if !strings.Contains(text, "published + skipped + errors") {
		t.Errorf("contract missing accounting rule: %s", text)
	}
}
