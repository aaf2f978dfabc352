package fanray

import (
	"strconv"

	"github.com/sss-software/fanray/routing"
)

// ContentKind identifies what a resolved route pointed at.
type ContentKind int

const (
	KindPost ContentKind = iota
	KindCategory
	KindTag
)

// ContentRef is the outcome of a successful content lookup: the matched
// content plus, for archive kinds, the posts under it.
type ContentRef struct {
	Kind     ContentKind
	Post     Post
	Category Category
	Tag      Tag
	Posts    []Post // archive posts for KindCategory / KindTag
}

// Lookup turns resolved route parameters into content-store queries. It only
// handles the content-bearing actions (Post, Category, Tag); fixed pages never
// reach it.
type Lookup struct {
	store *Store
}

// NewLookup creates a Lookup over the given store.
func NewLookup(s *Store) *Lookup {
	return &Lookup{store: s}
}

// Locate maps a resolved route to content. A missing post, category, or tag
// yields ErrNotFound — a terminal not-found, distinct from ErrNoRouteMatch
// which means the path shape itself was unknown.
func (l *Lookup) Locate(r routing.Resolved) (ContentRef, error) {
	switch r.Action {
	case "Post":
		year, okY := atoi(r.Param("year"))
		month, okM := atoi(r.Param("month"))
		day, okD := atoi(r.Param("day"))
		slug := r.Param("slug")
		if !okY || !okM || !okD || slug == "" {
			return ContentRef{}, ErrNotFound
		}
		post, err := l.store.GetPostByDateAndSlug(year, month, day, slug)
		if err != nil {
			return ContentRef{}, err
		}
		return ContentRef{Kind: KindPost, Post: post}, nil

	case "Category":
		slug := r.Param("slug")
		if slug == "" {
			return ContentRef{}, ErrNotFound
		}
		cat, err := l.store.GetCategoryBySlug(slug)
		if err != nil {
			return ContentRef{}, err
		}
		posts, err := l.store.ListPostsByCategory(slug)
		if err != nil {
			return ContentRef{}, err
		}
		return ContentRef{Kind: KindCategory, Category: cat, Posts: posts}, nil

	case "Tag":
		slug := r.Param("slug")
		if slug == "" {
			return ContentRef{}, ErrNotFound
		}
		tag, err := l.store.GetTagBySlug(slug)
		if err != nil {
			return ContentRef{}, err
		}
		posts, err := l.store.ListPostsByTag(slug)
		if err != nil {
			return ContentRef{}, err
		}
		return ContentRef{Kind: KindTag, Tag: tag, Posts: posts}, nil
	}
	return ContentRef{}, ErrNoRouteMatch
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
