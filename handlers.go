package fanray

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sss-software/fanray/routing"
)

// handleBrowse is the single entry point for every browser path. It resolves
// the path against the route table and dispatches on the matched action; a
// path no pattern matches, and a Default fallback pointing at nothing, both
// end as a standard 404.
func (a *App) handleBrowse(c echo.Context) error {
	resolved, ok := a.Routes.Resolve(c.Request().URL.Path)
	if !ok {
		return a.notFound(c)
	}

	switch resolved.Action {
	case "Home":
		return a.renderHome(c)
	case "Setup":
		return Render(c, a.Views.Setup())
	case "About":
		return Render(c, a.Views.About())
	case "Contact":
		return Render(c, a.Views.Contact())
	case "Admin":
		return a.handleAdmin(c)
	case "RSD":
		return a.renderRSD(c)
	case "Post", "Category", "Tag":
		return a.renderContent(c, resolved)
	}
	// Default pattern: the MVC-style fallback has no controllers behind it
	// beyond the named routes above, so anything landing here is a 404.
	return a.notFound(c)
}

func (a *App) renderHome(c echo.Context) error {
	posts, err := a.Cache.ListPosts()
	if err != nil {
		return err
	}
	categories, err := a.Cache.ListCategories()
	if err != nil {
		return err
	}
	tags, err := a.Cache.ListTags()
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(posts, categories, tags))
}

func (a *App) renderContent(c echo.Context, resolved routing.Resolved) error {
	ref, err := a.Lookup.Locate(resolved)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoRouteMatch) {
			return a.notFound(c)
		}
		return err
	}
	switch ref.Kind {
	case KindPost:
		recent, err := a.Store.ListRecentPosts(5)
		if err != nil {
			return err
		}
		return Render(c, a.Views.Post(ref.Post, recent))
	case KindCategory:
		return Render(c, a.Views.Category(ref.Category, ref.Posts))
	case KindTag:
		return Render(c, a.Views.Tag(ref.Tag, ref.Posts))
	}
	return a.notFound(c)
}

func (a *App) notFound(c echo.Context) error {
	return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = a.notFound(c)
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

// handleRobots generates robots.txt dynamically using the canonical site URL.
func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin/\n\nSitemap: %s/sitemap.xml\n", a.Config.URL)
	return c.String(http.StatusOK, body)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}
