// Command fanray runs the blog server: browser routes through the route
// table, plus the MetaWeblog XML-RPC endpoint for desktop publishing clients.
// All site configuration comes from environment variables.
package main

import (
	"log"
	"strings"

	"github.com/sss-software/fanray"
	"github.com/sss-software/fanray/metaweblog"
)

func main() {
	cfg := fanray.SiteConfig{
		Name:        fanray.EnvOr("SITE_NAME", "Blog"),
		URL:         strings.TrimSuffix(fanray.EnvOr("SITE_URL", "http://localhost:3000"), "/"),
		Description: fanray.EnvOr("SITE_DESCRIPTION", ""),
		Author:      fanray.EnvOr("SITE_AUTHOR", ""),

		Addr:             fanray.EnvOr("ADDR", ":3000"),
		DatabaseProvider: fanray.EnvOr("DATABASE_PROVIDER", "sqlite"),
		DatabasePath:     fanray.EnvOr("DATABASE_PATH", "data/blog.db"),

		Username:      fanray.MustEnv("ADMIN_USERNAME"),
		PasswordHash:  fanray.MustEnv("ADMIN_PASSWORD_HASH"),
		SessionSecret: fanray.MustEnv("ADMIN_SESSION_SECRET"),
		CookieSecure:  strings.EqualFold(fanray.EnvOr("COOKIE_SECURE", ""), "true"),
	}

	app := fanray.New(cfg, defaultViews(cfg), fanray.WithCustomRoutes(mountMetaWeblog))
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// mountMetaWeblog wires the RPC service against the app's collaborators and
// mounts it on /olw. Content mutations through RPC invalidate the same cache
// the browser handlers read from.
func mountMetaWeblog(a *fanray.App) {
	svc := metaweblog.NewService(metaweblog.ServiceConfig{
		Store:    a.Store,
		Creds:    a.Accounts,
		Media:    a.Media,
		Limiter:  a.Limiter,
		BlogID:   "1",
		BlogName: a.Config.Name,
		SiteURL:  a.Config.URL,
		OnChange: a.Cache.Invalidate,
	})
	svc.Register(a.Echo)
}
