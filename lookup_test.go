package fanray

import (
	"errors"
	"testing"

	"github.com/sss-software/fanray/routing"
)

func resolvedRoute(action string, params map[string]string) routing.Resolved {
	return routing.Resolved{Action: action, Params: params}
}

func TestLocatePost(t *testing.T) {
	s := setupTestStore(t)
	lookup := NewLookup(s)

	if _, err := s.CreatePost(Post{
		Slug: "hello-world", Title: "Hello", Date: "2018-05-01", Content: "x", Published: true,
	}); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	ref, err := lookup.Locate(resolvedRoute("Post", map[string]string{
		"year": "2018", "month": "5", "day": "1", "slug": "hello-world",
	}))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if ref.Kind != KindPost || ref.Post.Slug != "hello-world" {
		t.Errorf("ref = %+v", ref)
	}

	// Zero-padded parameters address the same post.
	if _, err := lookup.Locate(resolvedRoute("Post", map[string]string{
		"year": "2018", "month": "05", "day": "01", "slug": "hello-world",
	})); err != nil {
		t.Errorf("zero-padded address should resolve: %v", err)
	}

	// Any differing field is a terminal not-found.
	for name, params := range map[string]map[string]string{
		"year":  {"year": "2017", "month": "5", "day": "1", "slug": "hello-world"},
		"month": {"year": "2018", "month": "4", "day": "1", "slug": "hello-world"},
		"day":   {"year": "2018", "month": "5", "day": "2", "slug": "hello-world"},
		"slug":  {"year": "2018", "month": "5", "day": "1", "slug": "hello"},
	} {
		if _, err := lookup.Locate(resolvedRoute("Post", params)); !errors.Is(err, ErrNotFound) {
			t.Errorf("differing %s: err = %v, want ErrNotFound", name, err)
		}
	}
}

func TestLocateCategoryAndTag(t *testing.T) {
	s := setupTestStore(t)
	lookup := NewLookup(s)

	if _, err := s.CreatePost(Post{
		Slug: "p", Title: "P", Date: "2023-01-01", Category: "releases",
		Tags: []string{"go"}, Content: "x", Published: true,
	}); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	ref, err := lookup.Locate(resolvedRoute("Category", map[string]string{"slug": "releases"}))
	if err != nil {
		t.Fatalf("Locate category failed: %v", err)
	}
	if ref.Kind != KindCategory || len(ref.Posts) != 1 {
		t.Errorf("ref = %+v", ref)
	}

	ref, err = lookup.Locate(resolvedRoute("Tag", map[string]string{"slug": "go"}))
	if err != nil {
		t.Fatalf("Locate tag failed: %v", err)
	}
	if ref.Kind != KindTag || len(ref.Posts) != 1 {
		t.Errorf("ref = %+v", ref)
	}

	// Multi-word tags resolve by slug with a non-empty archive.
	if _, err := s.CreatePost(Post{
		Slug: "p2", Title: "P2", Date: "2023-01-02",
		Tags: []string{"Machine Learning"}, Content: "x", Published: true,
	}); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	ref, err = lookup.Locate(resolvedRoute("Tag", map[string]string{"slug": "machine-learning"}))
	if err != nil {
		t.Fatalf("Locate multi-word tag failed: %v", err)
	}
	if ref.Tag.Title != "Machine Learning" || len(ref.Posts) != 1 {
		t.Errorf("ref = %+v, want one archived post under the display title", ref)
	}

	if _, err := lookup.Locate(resolvedRoute("Category", map[string]string{"slug": "nope"})); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing category = %v, want ErrNotFound", err)
	}
	if _, err := lookup.Locate(resolvedRoute("Category", map[string]string{"slug": ""})); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty slug = %v, want ErrNotFound", err)
	}
}

func TestLocateUnknownAction(t *testing.T) {
	s := setupTestStore(t)
	lookup := NewLookup(s)

	if _, err := lookup.Locate(resolvedRoute("Default", nil)); !errors.Is(err, ErrNoRouteMatch) {
		t.Errorf("non-content action = %v, want ErrNoRouteMatch", err)
	}
}

func TestBuildRouteTableDefaults(t *testing.T) {
	cfg := SiteConfig{}
	cfg.setDefaults()
	table, err := BuildRouteTable(cfg)
	if err != nil {
		t.Fatalf("BuildRouteTable failed: %v", err)
	}
	r, ok := table.Resolve("/category/releases")
	if !ok || r.Action != "Category" || r.Param("slug") != "releases" {
		t.Errorf("category route: %+v ok=%v", r, ok)
	}
	r, ok = table.Resolve("/tag/go")
	if !ok || r.Action != "Tag" || r.Param("slug") != "go" {
		t.Errorf("tag route: %+v ok=%v", r, ok)
	}
}
