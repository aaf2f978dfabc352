package fanray

import "time"

// SiteConfig holds all configuration for a fanray site.
type SiteConfig struct {
	Name        string // Site name (default "Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name

	Addr string // Listen address (default ":3000")

	// DatabaseProvider selects the storage backend at startup. Only "sqlite"
	// is compiled in; the value is injected once into the store and never
	// consulted per request.
	DatabaseProvider string // default "sqlite"
	DatabasePath     string // SQLite path (default "data/blog.db")

	// Route templates for the category and tag archives. The slug placeholder
	// is optional with an empty default.
	CategoryURLTemplate string // default "category/{slug?}"
	TagURLTemplate      string // default "tag/{slug?}"

	// Credentials for the admin dashboard and the MetaWeblog endpoint.
	// PasswordHash is a bcrypt hash; plain passwords are never stored.
	Username     string
	PasswordHash string

	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	PostCacheTTL time.Duration // Post cache TTL (default 5min)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabaseProvider == "" {
		c.DatabaseProvider = "sqlite"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.CategoryURLTemplate == "" {
		c.CategoryURLTemplate = "category/{slug?}"
	}
	if c.TagURLTemplate == "" {
		c.TagURLTemplate = "tag/{slug?}"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes, before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}
