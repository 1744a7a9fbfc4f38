package manifest

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/othala/internal/models"
)

// TreeNode is one entry in the hierarchical navigation tree.
type TreeNode struct {
	Label    string      `json:"label"`
	Route    string      `json:"route"`
	Folder   bool        `json:"folder"`
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildTree produces the navigation tree for a manifest. Custom index pages
// are excluded. Ordering is deterministic: folders before files, then labels
// compared case-insensitively with locale-aware collation. Folder display
// names from the manifest override the label derived from the route segment.
func BuildTree(m *models.Manifest) *TreeNode {
	root := &TreeNode{Label: "/", Route: "/", Folder: true}

	for _, p := range m.Pages {
		if p.IsIndex {
			continue
		}
		trimmed := strings.Trim(p.Route, "/")
		if trimmed == "" {
			continue
		}
		segs := strings.Split(trimmed, "/")

		node := root
		prefix := "/"
		for _, seg := range segs[:len(segs)-1] {
			prefix += seg + "/"
			node = node.folderChild(seg, prefix, m.FolderDisplayNames)
		}

		label := p.Title
		if label == "" {
			label = p.Slug
		}
		node.Children = append(node.Children, &TreeNode{Label: label, Route: p.Route})
	}

	sortTree(root)
	return root
}

// folderChild finds or creates the folder node for a route prefix.
func (n *TreeNode) folderChild(seg, prefix string, displayNames map[string]string) *TreeNode {
	for _, c := range n.Children {
		if c.Folder && c.Route == prefix {
			return c
		}
	}
	label := displayNames[prefix]
	if label == "" {
		label = strings.ReplaceAll(seg, "-", " ")
	}
	c := &TreeNode{Label: label, Route: prefix, Folder: true}
	n.Children = append(n.Children, c)
	return c
}

func sortTree(root *TreeNode) {
	// Collators are not safe for concurrent use, so build one per call.
	c := collate.New(language.Und, collate.IgnoreCase)

	var rec func(*TreeNode)
	rec = func(n *TreeNode) {
		sort.SliceStable(n.Children, func(i, j int) bool {
			a, b := n.Children[i], n.Children[j]
			if a.Folder != b.Folder {
				return a.Folder
			}
			return c.CompareString(a.Label, b.Label) < 0
		})
		for _, ch := range n.Children {
			if ch.Folder {
				rec(ch)
			}
		}
	}
	rec(root)
}
