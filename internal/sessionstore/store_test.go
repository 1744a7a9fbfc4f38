package sessionstore

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "othala-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newSession(id string) *models.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Session{
		ID:            id,
		Status:        models.SessionPending,
		NotesPlanned:  5,
		AssetsPlanned: 2,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCreateAndFind(t *testing.T) {
	db := testDB(t)
	s := newSession("s1")
	if err := db.Create(s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := db.FindByID("s1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Status != models.SessionPending {
		t.Errorf("status = %q", got.Status)
	}
	if got.NotesPlanned != 5 || got.AssetsPlanned != 2 {
		t.Errorf("planned counters = %d/%d", got.NotesPlanned, got.AssetsPlanned)
	}
	if got.Routes != nil && len(got.Routes) != 0 {
		t.Errorf("routes = %v, want empty", got.Routes)
	}
}

func TestFindMissing(t *testing.T) {
	db := testDB(t)
	_, err := db.FindByID("nope")
	if !errors.Is(err, apperr.ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestSaveUpdatesFields(t *testing.T) {
	db := testDB(t)
	s := newSession("s1")
	if err := db.Create(s); err != nil {
		t.Fatal(err)
	}

	s.Status = models.SessionFinished
	s.NotesProcessed = 5
	s.AssetsProcessed = 2
	s.Routes = []string{"/a/", "/b/"}
	s.UpdatedAt = time.Now().UTC()
	if err := db.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := db.FindByID("s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.SessionFinished {
		t.Errorf("status = %q", got.Status)
	}
	if got.NotesProcessed != 5 || got.AssetsProcessed != 2 {
		t.Errorf("processed = %d/%d", got.NotesProcessed, got.AssetsProcessed)
	}
	if len(got.Routes) != 2 || got.Routes[0] != "/a/" {
		t.Errorf("routes = %v", got.Routes)
	}
}

func TestSaveMissing(t *testing.T) {
	db := testDB(t)
	s := newSession("ghost")
	err := db.Save(s)
	if !errors.Is(err, apperr.ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestCreateDuplicateID(t *testing.T) {
	db := testDB(t)
	if err := db.Create(newSession("dup")); err != nil {
		t.Fatal(err)
	}
	if err := db.Create(newSession("dup")); err == nil {
		t.Fatal("expected primary key violation for duplicate id")
	}
}
