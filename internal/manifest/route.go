// Package manifest reconciles uploaded pages and assets into the site
// manifest and maintains its derived structures (route tree, redirects).
package manifest

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/apperr"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidateSlug enforces the published-slug domain: lowercase alphanumerics
// separated by single hyphens, at most 200 characters.
func ValidateSlug(slug string) error {
	err := validation.Validate(slug,
		validation.Required,
		validation.Length(1, 200),
		validation.Match(slugPattern),
	)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", apperr.ErrInvalidSlug, slug, err)
	}
	return nil
}

var nonSegmentChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a route segment from a folder name.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonSegmentChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// RouteFor derives the canonical route for a page: slugified folder segments
// plus the page slug, absolute with a trailing slash. A custom index page
// takes its folder's route.
func RouteFor(folders []string, slug string, isIndex bool) string {
	segs := make([]string, 0, len(folders)+1)
	for _, f := range folders {
		if s := Slugify(f); s != "" {
			segs = append(segs, s)
		}
	}
	if !isIndex {
		segs = append(segs, slug)
	}
	if len(segs) == 0 {
		return "/"
	}
	return "/" + strings.Join(segs, "/") + "/"
}
