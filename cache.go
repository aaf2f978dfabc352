package fanray

import (
	"sync"
	"time"
)

// PostCache is an in-memory cache of published posts, categories, and tags
// with TTL. Every content mutation (admin save/delete, RPC newPost/editPost/
// deletePost) must Invalidate it.
type PostCache struct {
	mu         sync.RWMutex
	posts      []Post
	categories []Category
	tags       []Tag
	fetched    time.Time
	ttl        time.Duration
	store      *Store
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration) *PostCache {
	return &PostCache{store: s, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.categories = nil
	c.tags = nil
	c.mu.Unlock()
}

func (c *PostCache) load() error {
	if c.valid() {
		return nil
	}
	posts, err := c.store.ListPosts()
	if err != nil {
		return err
	}
	categories, err := c.store.ListCategories()
	if err != nil {
		return err
	}
	tags, err := c.store.ListTags()
	if err != nil {
		return err
	}
	c.posts = posts
	c.categories = categories
	c.tags = tags
	c.fetched = time.Now()
	return nil
}

// ensureLoaded refreshes the cache if stale. It tries a read lock first and
// only takes the write lock when a reload is needed.
func (c *PostCache) ensureLoaded() ([]Post, []Category, []Tag, error) {
	c.mu.RLock()
	if c.valid() {
		posts, categories, tags := c.posts, c.categories, c.tags
		c.mu.RUnlock()
		return posts, categories, tags, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, nil, nil, err
	}
	return c.posts, c.categories, c.tags, nil
}

// ListPosts returns all cached published posts, newest first.
func (c *PostCache) ListPosts() ([]Post, error) {
	posts, _, _, err := c.ensureLoaded()
	return posts, err
}

// ListCategories returns all cached categories.
func (c *PostCache) ListCategories() ([]Category, error) {
	_, categories, _, err := c.ensureLoaded()
	return categories, err
}

// ListTags returns all cached tags.
func (c *PostCache) ListTags() ([]Tag, error) {
	_, _, tags, err := c.ensureLoaded()
	return tags, err
}
