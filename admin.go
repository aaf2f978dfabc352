package fanray

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if a.Limiter.Blocked(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	username := c.FormValue("username")
	password := c.FormValue("password")
	if a.Accounts.Verify(username, password) {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	// Only failures count against the per-IP budget.
	a.Limiter.Record(ip)
	return Render(c, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminSave(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	title := strings.TrimSpace(c.FormValue("title"))
	slug := strings.TrimSpace(c.FormValue("slug"))
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=Slug+is+required.+Add+a+title+or+slug.")
	}
	date := strings.TrimSpace(c.FormValue("date"))
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=Invalid+date+format.+Use+YYYY-MM-DD.")
	}
	post := Post{
		Slug:      slug,
		Title:     title,
		Date:      date,
		Category:  Slugify(c.FormValue("category")),
		Tags:      FilterEmpty(strings.Split(c.FormValue("tags"), ",")),
		Excerpt:   c.FormValue("excerpt"),
		Content:   c.FormValue("content"),
		Published: c.FormValue("published") != "",
	}

	var err error
	if idStr := c.FormValue("id"); idStr != "" {
		post.ID, err = strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return c.Redirect(http.StatusSeeOther, "/admin/?msg=Invalid+post+id.")
		}
		err = a.Store.UpdatePost(post)
	} else {
		_, err = a.Store.CreatePost(post)
	}
	if errors.Is(err, ErrDuplicateSlug) {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=A+published+post+with+this+slug+and+date+already+exists.")
	}
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, "saved")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if err := a.Store.DeletePost(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.NoContent(http.StatusNotFound)
		}
		return err
	}
	a.Cache.Invalidate()
	return a.renderAdminDashboard(c, "deleted")
}

func (a *App) handleAdminUpload(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	file, err := c.FormFile("file")
	if err != nil {
		return c.String(http.StatusBadRequest, "No file provided")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return err
	}
	url, err := a.Media.Save(file.Filename, file.Header.Get("Content-Type"), data)
	if err != nil {
		return c.String(http.StatusBadRequest, "Upload failed: "+err.Error())
	}
	return c.String(http.StatusOK, url)
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	posts, err := a.Store.ListAllPosts()
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(posts, msg, CsrfToken(c)))
}
