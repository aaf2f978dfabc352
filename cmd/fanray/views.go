package main

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"

	"github.com/sss-software/fanray"
)

// defaultViews builds a plain-HTML set of ViewFuncs. Sites that want their
// own look replace these with generated templ components; the handlers only
// see the ViewFuncs seam either way.
func defaultViews(cfg fanray.SiteConfig) fanray.ViewFuncs {
	return fanray.ViewFuncs{
		Home: func(posts []fanray.Post, categories []fanray.Category, tags []fanray.Tag) templ.Component {
			return page(cfg, cfg.Name, func(w io.Writer) error {
				fmt.Fprintf(w, "<p>%s</p>\n", html.EscapeString(cfg.Description))
				return postList(w, posts)
			})
		},
		Post: func(post fanray.Post, recent []fanray.Post) templ.Component {
			return page(cfg, post.Title, func(w io.Writer) error {
				fmt.Fprintf(w, "<article><h2>%s</h2>\n<p><time>%s</time></p>\n<div>%s</div></article>\n",
					html.EscapeString(post.Title), post.Date, post.Content)
				fmt.Fprint(w, "<h3>Recent posts</h3>\n")
				return postList(w, recent)
			})
		},
		Category: func(category fanray.Category, posts []fanray.Post) templ.Component {
			return page(cfg, category.Title, func(w io.Writer) error {
				fmt.Fprintf(w, "<h2>Category: %s</h2>\n", html.EscapeString(category.Title))
				return postList(w, posts)
			})
		},
		Tag: func(tag fanray.Tag, posts []fanray.Post) templ.Component {
			return page(cfg, tag.Title, func(w io.Writer) error {
				fmt.Fprintf(w, "<h2>Tag: %s</h2>\n", html.EscapeString(tag.Title))
				return postList(w, posts)
			})
		},
		About: func() templ.Component {
			return page(cfg, "About", func(w io.Writer) error {
				fmt.Fprintf(w, "<p>%s</p>\n", html.EscapeString(cfg.Description))
				return nil
			})
		},
		Contact: func() templ.Component {
			return page(cfg, "Contact", func(w io.Writer) error {
				fmt.Fprintf(w, "<p>Contact %s.</p>\n", html.EscapeString(cfg.Author))
				return nil
			})
		},
		Setup: func() templ.Component {
			return page(cfg, "Setup", func(w io.Writer) error {
				fmt.Fprint(w, "<p>Configure the site through environment variables and restart.</p>\n")
				return nil
			})
		},
		AdminLogin: func(showError bool, csrfToken string) templ.Component {
			return page(cfg, "Sign in", func(w io.Writer) error {
				if showError {
					fmt.Fprint(w, "<p>Sign in failed.</p>\n")
				}
				fmt.Fprintf(w, `<form method="post" action="/admin/login/">
<input type="hidden" name="_csrf" value="%s">
<label>Username <input name="username"></label>
<label>Password <input type="password" name="password"></label>
<button>Sign in</button>
</form>
`, html.EscapeString(csrfToken))
				return nil
			})
		},
		AdminDashboard: func(posts []fanray.Post, message, csrfToken string) templ.Component {
			return page(cfg, "Dashboard", func(w io.Writer) error {
				if message != "" {
					fmt.Fprintf(w, "<p>%s</p>\n", html.EscapeString(message))
				}
				fmt.Fprint(w, "<ul>\n")
				for _, p := range posts {
					state := "draft"
					if p.Published {
						state = "published"
					}
					fmt.Fprintf(w, `<li>#%d %s (%s, %s)</li>`+"\n", p.ID, html.EscapeString(p.Title), p.Date, state)
				}
				fmt.Fprint(w, "</ul>\n")
				return nil
			})
		},
		NotFound: func() templ.Component {
			return page(cfg, "Not found", func(w io.Writer) error {
				fmt.Fprint(w, "<p>The page you are looking for does not exist.</p>\n")
				return nil
			})
		},
		ServerError: func() templ.Component {
			return page(cfg, "Something went wrong", func(w io.Writer) error {
				fmt.Fprint(w, "<p>Please try again later.</p>\n")
				return nil
			})
		},
	}
}

func page(cfg fanray.SiteConfig, title string, body func(io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fmt.Fprintf(w, "<!doctype html>\n<html><head><title>%s | %s</title>"+
			`<link rel="EditURI" type="application/rsd+xml" href="%s/rsd">`+
			"</head><body>\n<h1>%s</h1>\n",
			html.EscapeString(title), html.EscapeString(cfg.Name), cfg.URL, html.EscapeString(cfg.Name))
		if err := body(w); err != nil {
			return err
		}
		_, err := fmt.Fprint(w, "</body></html>\n")
		return err
	})
}

func postList(w io.Writer, posts []fanray.Post) error {
	fmt.Fprint(w, "<ul>\n")
	for _, p := range posts {
		fmt.Fprintf(w, `<li><a href="%s">%s</a> <time>%s</time></li>`+"\n",
			p.Link(), html.EscapeString(p.Title), p.Date)
	}
	_, err := fmt.Fprint(w, "</ul>\n")
	return err
}
