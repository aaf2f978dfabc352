package fanray

// Post is the core content type. A published post is addressable two ways that
// always resolve to the same row: by numeric ID, and by (Date, Slug). Drafts
// are only reachable by ID.
type Post struct {
	ID        int64
	Title     string
	Slug      string
	Date      string // publish date, YYYY-MM-DD
	Category  string   // category slug, may be empty
	Tags      []string // tag slugs; display titles live in the tags table
	Excerpt   string
	Content   string
	Published bool
}

// Link returns the canonical site-relative URL for a published post,
// e.g. "/2018/05/01/hello-world".
func (p Post) Link() string {
	if len(p.Date) != 10 {
		return "/" + p.Slug
	}
	return "/" + p.Date[:4] + "/" + p.Date[5:7] + "/" + p.Date[8:10] + "/" + p.Slug
}

// Category groups posts. Slug is unique.
type Category struct {
	Title string
	Slug  string
}

// Tag labels posts. Slug is unique.
type Tag struct {
	Title string
	Slug  string
}

// Media is an uploaded file (typically an image) referenced from post content.
type Media struct {
	Filename     string
	OriginalName string
	ContentType  string
	Width        int
	Height       int
	Size         int
	UploadedAt   string
}

// URL returns the site-relative URL the file is served under.
func (m Media) URL() string {
	return "/public/uploads/" + m.Filename
}
