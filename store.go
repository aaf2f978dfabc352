package fanray

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store wraps a SQLite database and provides CRUD operations for posts,
// categories, tags, and media metadata. The provider string comes from
// SiteConfig.DatabaseProvider; only "sqlite" is compiled in.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path for the given provider,
// ensures the data directory exists, and runs schema bootstrap.
func NewStore(provider, path string) (*Store, error) {
	if provider != "sqlite" {
		return nil, fmt.Errorf("fanray: unsupported database provider %q", provider)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent read/write access, busy_timeout so writers wait
	// instead of returning SQLITE_BUSY, synchronous=NORMAL is safe with WAL.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    date TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    excerpt TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    published INTEGER NOT NULL DEFAULT 1
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_address ON posts(date, slug) WHERE published = 1;
CREATE TABLE IF NOT EXISTS categories (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tags (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS media (
    filename TEXT PRIMARY KEY,
    original_name TEXT NOT NULL,
    content_type TEXT NOT NULL,
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);
`)
	return err
}

const postColumns = `id, slug, title, date, category, tags, excerpt, content, published`

func scanPost(row interface{ Scan(...any) error }) (Post, error) {
	var p Post
	var tags string
	var published int
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Date, &p.Category, &tags, &p.Excerpt, &p.Content, &published)
	if err != nil {
		return Post{}, err
	}
	p.Tags = ParseTags(tags)
	p.Published = published == 1
	return p, nil
}

// GetPostByID returns a post by numeric id regardless of published status.
func (s *Store) GetPostByID(id int64) (Post, error) {
	p, err := scanPost(s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	return p, err
}

// GetPostByDateAndSlug returns the published post at the exact (date, slug)
// address. The slug comparison is case-sensitive; drafts are never returned.
func (s *Store) GetPostByDateAndSlug(year, month, day int, slug string) (Post, error) {
	date := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	p, err := scanPost(s.db.QueryRow(
		`SELECT `+postColumns+` FROM posts WHERE date = ? AND slug = ? AND published = 1`, date, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	return p, err
}

// CreatePost inserts a new post and returns its id. A published post whose
// (date, slug) address is already taken fails with ErrDuplicateSlug. The
// post's category and tags are upserted in the same transaction.
func (s *Store) CreatePost(p Post) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if p.Published {
		taken, err := addressTaken(tx, p.Date, p.Slug, 0)
		if err != nil {
			return 0, err
		}
		if taken {
			return 0, ErrDuplicateSlug
		}
	}
	res, err := tx.Exec(
		`INSERT INTO posts (slug, title, date, category, tags, excerpt, content, published) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Title, p.Date, p.Category, joinTags(p.Tags), p.Excerpt, p.Content, boolInt(p.Published))
	if err != nil {
		if isUniqueConstraint(err) {
			return 0, ErrDuplicateSlug
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := upsertTerms(tx, p); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// UpdatePost replaces an existing post's fields by id. ErrNotFound if the id
// does not exist, ErrDuplicateSlug if publishing onto a taken address.
func (s *Store) UpdatePost(p Post) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if p.Published {
		taken, err := addressTaken(tx, p.Date, p.Slug, p.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateSlug
		}
	}
	res, err := tx.Exec(
		`UPDATE posts SET slug = ?, title = ?, date = ?, category = ?, tags = ?, excerpt = ?, content = ?, published = ? WHERE id = ?`,
		p.Slug, p.Title, p.Date, p.Category, joinTags(p.Tags), p.Excerpt, p.Content, boolInt(p.Published), p.ID)
	if err != nil {
		if isUniqueConstraint(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := upsertTerms(tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// DeletePost removes a post by id. ErrNotFound if no such post exists.
func (s *Store) DeletePost(id int64) error {
	res, err := s.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueConstraint reports whether err is the (date, slug) unique index
// firing: a concurrent writer claimed the address between addressTaken and
// the write.
func isUniqueConstraint(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func addressTaken(tx *sql.Tx, date, slug string, excludeID int64) (bool, error) {
	var n int
	err := tx.QueryRow(
		`SELECT COUNT(*) FROM posts WHERE date = ? AND slug = ? AND published = 1 AND id != ?`,
		date, slug, excludeID).Scan(&n)
	return n > 0, err
}

func upsertTerms(tx *sql.Tx, p Post) error {
	if p.Category != "" {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO categories (slug, title) VALUES (?, ?)`,
			p.Category, titleFromSlug(p.Category)); err != nil {
			return err
		}
	}
	for _, t := range p.Tags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO tags (slug, title) VALUES (?, ?)`,
			Slugify(t), t); err != nil {
			return err
		}
	}
	return nil
}

// ListPosts returns all published posts ordered by date descending.
func (s *Store) ListPosts() ([]Post, error) {
	return s.queryPosts(`SELECT ` + postColumns + ` FROM posts WHERE published = 1 ORDER BY date DESC, id DESC`)
}

// ListRecentPosts returns up to n published posts, newest first.
func (s *Store) ListRecentPosts(n int) ([]Post, error) {
	return s.queryPosts(`SELECT `+postColumns+` FROM posts WHERE published = 1 ORDER BY date DESC, id DESC LIMIT ?`, n)
}

// ListPostsByCategory returns published posts in the category, newest first.
func (s *Store) ListPostsByCategory(slug string) ([]Post, error) {
	return s.queryPosts(`SELECT `+postColumns+` FROM posts WHERE published = 1 AND category = ? ORDER BY date DESC, id DESC`, slug)
}

// ListPostsByTag returns published posts carrying the tag, newest first. The
// tags column holds slugs, so the lookup slug matches it directly.
func (s *Store) ListPostsByTag(slug string) ([]Post, error) {
	return s.queryPosts(`SELECT `+postColumns+` FROM posts WHERE published = 1 AND instr(tags, ',' || ? || ',') > 0 ORDER BY date DESC, id DESC`,
		Slugify(slug))
}

// ListAllPosts returns every post including drafts, newest first (for admin).
func (s *Store) ListAllPosts() ([]Post, error) {
	return s.queryPosts(`SELECT ` + postColumns + ` FROM posts ORDER BY date DESC, id DESC`)
}

func (s *Store) queryPosts(query string, args ...any) ([]Post, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetCategoryBySlug returns the category with the given slug.
func (s *Store) GetCategoryBySlug(slug string) (Category, error) {
	var c Category
	err := s.db.QueryRow(`SELECT slug, title FROM categories WHERE slug = ?`, slug).Scan(&c.Slug, &c.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	return c, err
}

// GetTagBySlug returns the tag with the given slug.
func (s *Store) GetTagBySlug(slug string) (Tag, error) {
	var t Tag
	err := s.db.QueryRow(`SELECT slug, title FROM tags WHERE slug = ?`, slug).Scan(&t.Slug, &t.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return Tag{}, ErrNotFound
	}
	return t, err
}

// ListCategories returns all categories ordered by title.
func (s *Store) ListCategories() ([]Category, error) {
	rows, err := s.db.Query(`SELECT slug, title FROM categories ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.Slug, &c.Title); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// ListTags returns all tags ordered by title.
func (s *Store) ListTags() ([]Tag, error) {
	rows, err := s.db.Query(`SELECT slug, title FROM tags ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.Slug, &t.Title); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// SaveMedia records metadata for an uploaded file.
func (s *Store) SaveMedia(m Media) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO media (filename, original_name, content_type, width, height, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Filename, m.OriginalName, m.ContentType, m.Width, m.Height, m.Size, m.UploadedAt)
	return err
}

// ListMedia returns all uploaded media, newest first.
func (s *Store) ListMedia() ([]Media, error) {
	rows, err := s.db.Query(`SELECT filename, original_name, content_type, width, height, size, uploaded_at FROM media ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var media []Media
	for rows.Next() {
		var m Media
		if err := rows.Scan(&m.Filename, &m.OriginalName, &m.ContentType, &m.Width, &m.Height, &m.Size, &m.UploadedAt); err != nil {
			return nil, err
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

// DeleteMedia removes a media metadata row by filename.
func (s *Store) DeleteMedia(filename string) error {
	_, err := s.db.Exec(`DELETE FROM media WHERE filename = ?`, filename)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// joinTags encodes tags as a comma-wrapped slug list (",go,machine-learning,")
// so the tag archive query can match on the same slug that keys the tags table.
// Display titles live only in the tags table.
func joinTags(tags []string) string {
	slugs := make([]string, 0, len(tags))
	for _, t := range tags {
		if s := Slugify(t); s != "" {
			slugs = append(slugs, s)
		}
	}
	if len(slugs) == 0 {
		return ""
	}
	return "," + strings.Join(slugs, ",") + ","
}

// ParseTags splits a comma-delimited tag slug string (e.g. ",go,web,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func titleFromSlug(slug string) string {
	return strings.ReplaceAll(slug, "-", " ")
}
