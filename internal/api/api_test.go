package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/starford/othala/internal/admission"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/publish"
	"github.com/starford/othala/internal/render"
	"github.com/starford/othala/internal/sessionstore"
	"github.com/starford/othala/internal/storage"
)

// testEnv wires a real service over temp storage and returns the API router.
func testEnv(t *testing.T, authToken string, adm *admission.Controller) http.Handler {
	t.Helper()
	siteDir := t.TempDir()

	content, err := storage.NewContentFS(siteDir)
	if err != nil {
		t.Fatal(err)
	}
	assets, err := storage.NewAssetFS(siteDir)
	if err != nil {
		t.Fatal(err)
	}
	manifests, err := storage.NewManifestFS(siteDir)
	if err != nil {
		t.Fatal(err)
	}

	f, err := os.CreateTemp("", "othala-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	db, err := sessionstore.Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	svc := publish.NewService(db, manifests, content, assets, render.NewGoldmark(), checksum.SHA256{}, 4)
	h := NewHandler(svc, nil)
	return NewRouter(h, authToken != "", authToken, adm, nil)
}

func do(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/sessions", CreateSessionRequest{NotesPlanned: 1}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d, body %s", rec.Code, rec.Body.String())
	}
	var s models.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	return s.ID
}

func TestCreateAndGetSession(t *testing.T) {
	router := testEnv(t, "", nil)
	id := createSession(t, router)

	rec := do(t, router, http.MethodGet, "/sessions/"+id, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var s models.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.Status != models.SessionPending || s.NotesPlanned != 1 {
		t.Errorf("session = %+v", s)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	router := testEnv(t, "", nil)
	rec := do(t, router, http.MethodGet, "/sessions/missing", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestFinishUnknownSessionNotFound(t *testing.T) {
	router := testEnv(t, "", nil)
	rec := do(t, router, http.MethodPost, "/sessions/missing/finish", FinishRequest{}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAbortUnknownSessionNotFound(t *testing.T) {
	router := testEnv(t, "", nil)
	rec := do(t, router, http.MethodPost, "/sessions/missing/abort", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUploadNotesFlow(t *testing.T) {
	router := testEnv(t, "", nil)
	id := createSession(t, router)

	req := UploadNotesRequest{
		Notes: []models.Document{
			{ID: "n1", Title: "Hello", Slug: "hello", Markdown: "# Hello"},
		},
	}
	rec := do(t, router, http.MethodPost, "/sessions/"+id+"/notes", req, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res models.UploadBatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Published != 1 || len(res.Errors) != 0 {
		t.Errorf("result = %+v", res)
	}

	// Manifest and tree become available.
	if rec := do(t, router, http.MethodGet, "/manifest", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("manifest status = %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/tree", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("tree status = %d", rec.Code)
	}
}

func TestUploadNotesEmptyBatch(t *testing.T) {
	router := testEnv(t, "", nil)
	id := createSession(t, router)
	rec := do(t, router, http.MethodPost, "/sessions/"+id+"/notes", UploadNotesRequest{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadAssetsBase64RoundTrip(t *testing.T) {
	router := testEnv(t, "", nil)
	id := createSession(t, router)

	// encoding/json expects []byte fields base64-encoded; exercise the real
	// wire shape rather than the struct.
	payload := fmt.Sprintf(`{"assets":[{"path":"/img/a.bin","content":%q}]}`,
		base64.StdEncoding.EncodeToString([]byte("binary payload")))
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/assets", bytes.NewReader([]byte(payload)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res models.UploadBatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Published != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestFinishThenUploadConflicts(t *testing.T) {
	router := testEnv(t, "", nil)
	id := createSession(t, router)

	rec := do(t, router, http.MethodPost, "/sessions/"+id+"/finish", FinishRequest{NotesProcessed: 0}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("finish status = %d", rec.Code)
	}

	req := UploadNotesRequest{Notes: []models.Document{{ID: "n", Slug: "n", Markdown: "x"}}}
	rec = do(t, router, http.MethodPost, "/sessions/"+id+"/notes", req, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("upload after finish status = %d, want 409", rec.Code)
	}
}

func TestAbortAfterFinishConflicts(t *testing.T) {
	router := testEnv(t, "", nil)
	id := createSession(t, router)

	do(t, router, http.MethodPost, "/sessions/"+id+"/finish", FinishRequest{}, nil)
	rec := do(t, router, http.MethodPost, "/sessions/"+id+"/abort", nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("abort after finish status = %d, want 409", rec.Code)
	}
}

func TestManifestNotFoundBeforeFirstPublish(t *testing.T) {
	router := testEnv(t, "", nil)
	if rec := do(t, router, http.MethodGet, "/manifest", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("manifest status = %d, want 404", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/tree", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("tree status = %d, want 404", rec.Code)
	}
}

func TestAuthTokenRequired(t *testing.T) {
	router := testEnv(t, "secret", nil)

	rec := do(t, router, http.MethodPost, "/sessions", CreateSessionRequest{}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/sessions", CreateSessionRequest{}, map[string]string{
		"Authorization": "Bearer wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d, want 401", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/sessions", CreateSessionRequest{}, map[string]string{
		"Authorization": "Bearer secret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("valid token status = %d, want 201", rec.Code)
	}
}

func TestUploadShedUnderPressure(t *testing.T) {
	adm := admission.New(admission.Config{MaxInFlight: 1, RetryAfter: 750 * time.Millisecond})
	adm.Begin() // occupy the only slot
	defer adm.Done()

	router := testEnv(t, "", adm)
	id := createSession(t, router)

	req := UploadNotesRequest{Notes: []models.Document{{ID: "n", Slug: "n", Markdown: "x"}}}
	rec := do(t, router, http.MethodPost, "/sessions/"+id+"/notes", req, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["retry_after_ms"] != float64(750) {
		t.Errorf("retry_after_ms = %v", body["retry_after_ms"])
	}

	// The session must be untouched by the shed request.
	rec = do(t, router, http.MethodGet, "/sessions/"+id, nil, nil)
	var s models.Session
	_ = json.Unmarshal(rec.Body.Bytes(), &s)
	if s.Status != models.SessionPending || s.NotesProcessed != 0 {
		t.Errorf("session mutated by shed request: %+v", s)
	}

	// Session reads stay ungated.
	if rec := do(t, router, http.MethodGet, "/sessions/"+id, nil, nil); rec.Code != http.StatusOK {
		t.Errorf("read status = %d under pressure", rec.Code)
	}
}
