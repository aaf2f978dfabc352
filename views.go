package fanray

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// ViewFuncs holds the templ components the framework calls when rendering
// pages. The embedding application owns every template; handlers only decide
// which component runs and with what data.
type ViewFuncs struct {
	Home           func(posts []Post, categories []Category, tags []Tag) templ.Component
	Post           func(post Post, recent []Post) templ.Component
	Category       func(category Category, posts []Post) templ.Component
	Tag            func(tag Tag, posts []Post) templ.Component
	About          func() templ.Component
	Contact        func() templ.Component
	Setup          func() templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(posts []Post, message string, csrfToken string) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}
