package metaweblog

import (
	"strconv"
	"strings"
	"time"

	"github.com/sss-software/fanray"
)

// Method handlers. Each one is a pure translation layer: validate the
// method-specific argument shape, call the content store, and map the result
// into a wire value. The dispatcher has already authenticated the call.

func handleGetUsersBlogs(s *Service, _ []Value) (Value, error) {
	return NewArray(NewStruct(
		Member{Name: "blogid", Value: NewString(s.cfg.BlogID)},
		Member{Name: "blogName", Value: NewString(s.cfg.BlogName)},
		Member{Name: "url", Value: NewString(s.cfg.SiteURL)},
	)), nil
}

func handleNewPost(s *Service, args []Value) (Value, error) {
	content, ok := args[3].AsStruct()
	if !ok {
		return Value{}, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: content must be a struct"}
	}
	publish, ok := args[4].AsBool()
	if !ok {
		return Value{}, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: publish must be a boolean"}
	}

	post := overlayPost(fanray.Post{Date: time.Now().Format("2006-01-02")}, content)
	post.Published = publish
	if post.Slug == "" {
		post.Slug = fanray.Slugify(post.Title)
	}
	if post.Slug == "" {
		return Value{}, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: post needs a title or slug"}
	}

	id, err := s.cfg.Store.CreatePost(post)
	if err != nil {
		return Value{}, err
	}
	s.changed()
	// MetaWeblog returns the new post id as a string.
	return NewString(strconv.FormatInt(id, 10)), nil
}

func handleEditPost(s *Service, args []Value) (Value, error) {
	id, ok := args[0].AsInt()
	if !ok {
		return Value{}, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: postid must be an integer"}
	}
	content, ok := args[3].AsStruct()
	if !ok {
		return Value{}, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: content must be a struct"}
	}
	publish, ok := args[4].AsBool()
	if !ok {
		return Value{}, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: publish must be a boolean"}
	}

	existing, err := s.cfg.Store.GetPostByID(int64(id))
	if err != nil {
		return Value{}, err
	}
	post := overlayPost(existing, content)
	post.Published = publish
	if err := s.cfg.Store.UpdatePost(post); err != nil {
		return Value{}, err
	}
	s.changed()
	return NewBool(true), nil
}

func handleDeletePost(s *Service, args []Value) (Value, error) {
	id, ok := args[1].AsInt()
	if !ok {
		return Value{}, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: postid must be an integer"}
	}
	if err := s.cfg.Store.DeletePost(int64(id)); err != nil {
		return Value{}, err
	}
	s.changed()
	return NewBool(true), nil
}

func handleGetPost(s *Service, args []Value) (Value, error) {
	id, ok := args[0].AsInt()
	if !ok {
		return Value{}, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: postid must be an integer"}
	}
	post, err := s.cfg.Store.GetPostByID(int64(id))
	if err != nil {
		return Value{}, err
	}
	return s.wirePost(post), nil
}

func handleGetRecentPosts(s *Service, args []Value) (Value, error) {
	n, ok := args[3].AsInt()
	if !ok || n < 1 {
		return Value{}, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: numberOfPosts must be a positive integer"}
	}
	if n > 100 {
		n = 100
	}
	posts, err := s.cfg.Store.ListRecentPosts(n)
	if err != nil {
		return Value{}, err
	}
	values := make([]Value, len(posts))
	for i, p := range posts {
		values[i] = s.wirePost(p)
	}
	return NewArray(values...), nil
}

func handleGetCategories(s *Service, args []Value) (Value, error) {
	cats, err := s.cfg.Store.ListCategories()
	if err != nil {
		return Value{}, err
	}
	values := make([]Value, len(cats))
	for i, c := range cats {
		values[i] = NewStruct(
			Member{Name: "categoryid", Value: NewString(c.Slug)},
			Member{Name: "title", Value: NewString(c.Title)},
			// Older clients read "description" as the display name.
			Member{Name: "description", Value: NewString(c.Title)},
			Member{Name: "htmlUrl", Value: NewString(fanray.BuildURL(s.cfg.SiteURL, "category", c.Slug))},
			Member{Name: "rssUrl", Value: NewString(fanray.BuildURL(s.cfg.SiteURL, "feed.xml"))},
		)
	}
	return NewArray(values...), nil
}

func handleNewMediaObject(s *Service, args []Value) (Value, error) {
	obj, ok := args[3].AsStruct()
	if !ok {
		return Value{}, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: media object must be a struct"}
	}
	name, okName := obj["name"].AsString()
	contentType, _ := obj["type"].AsString()
	bits, okBits := obj["bits"].AsBase64()
	if !okName || name == "" || !okBits {
		return Value{}, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: media object needs name and bits"}
	}
	url, err := s.cfg.Media.Save(name, contentType, bits)
	if err != nil {
		return Value{}, err
	}
	return NewStruct(Member{Name: "url", Value: NewString(url)}), nil
}

// overlayPost applies the wire content struct over a base post. Fields the
// client did not send keep their base values, so editPost preserves what the
// client's dialog does not surface.
func overlayPost(base fanray.Post, content map[string]Value) fanray.Post {
	post := base
	if title, ok := content["title"].AsString(); ok && title != "" {
		post.Title = title
	}
	if body, ok := content["description"].AsString(); ok && body != "" {
		post.Content = body
	}
	if slug, ok := content["wp_slug"].AsString(); ok && slug != "" {
		post.Slug = fanray.Slugify(slug)
	}
	if excerpt, ok := content["mt_excerpt"].AsString(); ok && excerpt != "" {
		post.Excerpt = excerpt
	}
	if keywords, ok := content["mt_keywords"].AsString(); ok && keywords != "" {
		post.Tags = fanray.FilterEmpty(strings.Split(keywords, ","))
	}
	if cats, ok := content["categories"].AsArray(); ok && len(cats) > 0 {
		// MetaWeblog sends category display names; only the first one is
		// kept since a post belongs to a single category here.
		if name, ok := cats[0].AsString(); ok && name != "" {
			post.Category = fanray.Slugify(name)
		}
	}
	if t, ok := content["dateCreated"].AsTime(); ok {
		post.Date = t.Format("2006-01-02")
	}
	return post
}

// wirePost converts a post into the MetaWeblog struct shape.
func (s *Service) wirePost(p fanray.Post) Value {
	link := fanray.BuildURL(s.cfg.SiteURL, p.Link())
	members := []Member{
		{Name: "postid", Value: NewString(strconv.FormatInt(p.ID, 10))},
		{Name: "title", Value: NewString(p.Title)},
		{Name: "description", Value: NewString(p.Content)},
		{Name: "wp_slug", Value: NewString(p.Slug)},
		{Name: "mt_excerpt", Value: NewString(p.Excerpt)},
		{Name: "mt_keywords", Value: NewString(strings.Join(p.Tags, ", "))},
		{Name: "link", Value: NewString(link)},
		{Name: "permaLink", Value: NewString(link)},
	}
	if t, err := time.Parse("2006-01-02", p.Date); err == nil {
		members = append(members, Member{Name: "dateCreated", Value: NewDateTime(t)})
	}
	if p.Category != "" {
		members = append(members, Member{Name: "categories", Value: NewArray(NewString(p.Category))})
	}
	return NewStruct(members...)
}
