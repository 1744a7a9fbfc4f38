package manifest

import (
	"testing"
	"time"

	"github.com/starford/othala/internal/models"
)

func page(id, title, route string) models.ManifestPage {
	return models.ManifestPage{ID: id, Title: title, Slug: id, Route: route, PublishedAt: time.Now()}
}

func TestBuildTree_Nesting(t *testing.T) {
	m := &models.Manifest{
		Pages: []models.ManifestPage{
			page("a", "Standup", "/meeting-notes/2026/standup/"),
			page("b", "Roadmap", "/docs/roadmap/"),
			page("c", "Welcome", "/welcome/"),
		},
	}
	root := BuildTree(m)

	if len(root.Children) != 3 {
		t.Fatalf("root children = %d, want 3", len(root.Children))
	}
	// Folders sort before files.
	if !root.Children[0].Folder || !root.Children[1].Folder {
		t.Fatalf("expected two folders first, got %+v", root.Children)
	}
	if root.Children[0].Route != "/docs/" || root.Children[1].Route != "/meeting-notes/" {
		t.Errorf("folder order = %q, %q", root.Children[0].Route, root.Children[1].Route)
	}
	if root.Children[2].Label != "Welcome" {
		t.Errorf("file label = %q, want Welcome", root.Children[2].Label)
	}

	mn := root.Children[1]
	if len(mn.Children) != 1 || !mn.Children[0].Folder || mn.Children[0].Route != "/meeting-notes/2026/" {
		t.Fatalf("meeting-notes children = %+v", mn.Children)
	}
}

func TestBuildTree_FolderDisplayNames(t *testing.T) {
	m := &models.Manifest{
		Pages: []models.ManifestPage{
			page("a", "Standup", "/meeting-notes/standup/"),
			page("b", "Plan", "/roadmap/plan/"),
		},
		FolderDisplayNames: map[string]string{"/meeting-notes/": "Meeting Notes"},
	}
	root := BuildTree(m)

	var labels []string
	for _, c := range root.Children {
		if c.Folder {
			labels = append(labels, c.Label)
		}
	}
	if len(labels) != 2 {
		t.Fatalf("folders = %v", labels)
	}
	if labels[0] != "Meeting Notes" {
		t.Errorf("stored display name not applied: %q", labels[0])
	}
	// Fallback derives the label from the segment.
	if labels[1] != "roadmap" {
		t.Errorf("fallback label = %q, want roadmap", labels[1])
	}
}

func TestBuildTree_ExcludesIndexPages(t *testing.T) {
	idx := page("i", "Docs Home", "/docs/")
	idx.IsIndex = true
	m := &models.Manifest{
		Pages: []models.ManifestPage{
			idx,
			page("a", "Guide", "/docs/guide/"),
		},
	}
	root := BuildTree(m)
	if len(root.Children) != 1 {
		t.Fatalf("root children = %d, want 1", len(root.Children))
	}
	docs := root.Children[0]
	if !docs.Folder || len(docs.Children) != 1 || docs.Children[0].Label != "Guide" {
		t.Errorf("docs node = %+v", docs)
	}
}

func TestBuildTree_CaseInsensitiveOrder(t *testing.T) {
	m := &models.Manifest{
		Pages: []models.ManifestPage{
			page("a", "banana", "/banana/"),
			page("b", "Apple", "/apple/"),
			page("c", "cherry", "/cherry/"),
		},
	}
	root := BuildTree(m)
	got := []string{root.Children[0].Label, root.Children[1].Label, root.Children[2].Label}
	want := []string{"Apple", "banana", "cherry"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
