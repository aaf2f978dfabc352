// Package fanray is a blog publishing backend built with Go, Echo, and templ.
// Browser paths are resolved through an explicit ordered route table; desktop
// publishing clients talk to the same content store through the MetaWeblog
// XML-RPC endpoint (see the metaweblog package).
//
// The embedding application provides its templates via ViewFuncs and mounts
// extra endpoints (the RPC service among them) through WithCustomRoutes.
package fanray

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sss-software/fanray/routing"
)

// App is the central application. It wires together the store, cache, route
// table, lookup adapter, accounts, media library, and user-provided templates.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Cache    *PostCache
	Accounts *Accounts
	Lookup   *Lookup
	Media    *MediaLibrary
	Routes   *routing.Table
	Limiter  *LoginLimiter
	Views    ViewFuncs

	customRoutes []func(*App)
	staticDir    string
}

// New creates an App with the given configuration and view functions.
// Collaborators are initialized by Start.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the database, cache, routes, and middleware, then serves.
func (a *App) Start() error {
	if a.Config.Username == "" || a.Config.PasswordHash == "" {
		return fmt.Errorf("fanray: Username and PasswordHash are required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("fanray: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabaseProvider, a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("fanray: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewPostCache(store, a.Config.PostCacheTTL)
	a.Accounts = NewAccounts(a.Config.Username, a.Config.PasswordHash)
	a.Lookup = NewLookup(store)
	a.Media = NewMediaLibrary(store, a.staticDir, a.Config.URL)
	a.Limiter = NewLoginLimiter(5, time.Minute)

	table, err := BuildRouteTable(a.Config)
	if err != nil {
		return fmt.Errorf("fanray: build route table: %w", err)
	}
	a.Routes = table

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// BuildRouteTable compiles the site's route patterns in their significant
// declaration order: fixed pages first, then the content patterns, then the
// generic catch-all.
func BuildRouteTable(cfg SiteConfig) (*routing.Table, error) {
	return routing.NewTable([]routing.Pattern{
		{Name: "Home", Template: ""},
		{Name: "Setup", Template: "setup"},
		{Name: "About", Template: "about"},
		{Name: "Contact", Template: "contact"},
		{Name: "Admin", Template: "admin"},
		{Name: "RSD", Template: "rsd"},
		{Name: "Post", Template: "{year}/{month}/{day}/{slug}", Digits: []string{"year", "month", "day"}},
		{Name: "Category", Template: cfg.CategoryURLTemplate},
		{Name: "Tag", Template: cfg.TagURLTemplate},
		{Name: "Default", Template: "{controller?}/{action?}/{id?}", Defaults: map[string]string{
			"controller": "home",
			"action":     "index",
		}},
	})
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	// Admin mutations need concrete method routes; the dashboard page itself
	// arrives through the resolver like every other browser path.
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.POST("/admin/save/", a.handleAdminSave)
	e.POST("/admin/upload/", a.handleAdminUpload)
	e.DELETE("/admin/post/:id/", a.handleAdminDelete)

	// Everything else goes through the route table.
	e.GET("/", a.handleBrowse)
	e.GET("/*", a.handleBrowse)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("fanray: required environment variable %s is not set", key)
	}
	return v
}
