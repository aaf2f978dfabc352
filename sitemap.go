package fanray

import (
	"encoding/xml"

	"github.com/labstack/echo/v4"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts()
	if err != nil {
		return err
	}
	urls := []sitemapURL{{Loc: a.Config.URL}}
	for _, p := range posts {
		urls = append(urls, sitemapURL{
			Loc:     BuildURL(a.Config.URL, p.Link()),
			LastMod: p.Date,
		})
	}
	categories, err := a.Cache.ListCategories()
	if err != nil {
		return err
	}
	for _, cat := range categories {
		urls = append(urls, sitemapURL{Loc: BuildURL(a.Config.URL, "category", cat.Slug)})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	return writeXML(c, "application/xml; charset=utf-8", sitemap)
}
