package metaweblog

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sss-software/fanray"
)

type fakeStore struct {
	posts   map[int64]fanray.Post
	nextID  int64
	fail    error
	creates int
	updates []int64
	deletes []int64
	lists   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{posts: make(map[int64]fanray.Post), nextID: 1}
}

func (f *fakeStore) calls() int {
	return f.creates + len(f.updates) + len(f.deletes) + f.lists
}

func (f *fakeStore) GetPostByID(id int64) (fanray.Post, error) {
	f.lists++
	if f.fail != nil {
		return fanray.Post{}, f.fail
	}
	p, ok := f.posts[id]
	if !ok {
		return fanray.Post{}, fanray.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) CreatePost(p fanray.Post) (int64, error) {
	f.creates++
	if f.fail != nil {
		return 0, f.fail
	}
	p.ID = f.nextID
	f.nextID++
	f.posts[p.ID] = p
	return p.ID, nil
}

func (f *fakeStore) UpdatePost(p fanray.Post) error {
	f.updates = append(f.updates, p.ID)
	if f.fail != nil {
		return f.fail
	}
	if _, ok := f.posts[p.ID]; !ok {
		return fanray.ErrNotFound
	}
	f.posts[p.ID] = p
	return nil
}

func (f *fakeStore) DeletePost(id int64) error {
	f.deletes = append(f.deletes, id)
	if f.fail != nil {
		return f.fail
	}
	if _, ok := f.posts[id]; !ok {
		return fanray.ErrNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakeStore) ListRecentPosts(n int) ([]fanray.Post, error) {
	f.lists++
	if f.fail != nil {
		return nil, f.fail
	}
	var out []fanray.Post
	for _, p := range f.posts {
		out = append(out, p)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) ListCategories() ([]fanray.Category, error) {
	f.lists++
	if f.fail != nil {
		return nil, f.fail
	}
	return []fanray.Category{{Slug: "releases", Title: "Releases"}}, nil
}

type fakeCreds struct{}

func (fakeCreds) Verify(username, password string) bool {
	return username == "ann" && password == "secret"
}

type fakeMedia struct {
	saved []string
}

func (f *fakeMedia) Save(name, contentType string, data []byte) (string, error) {
	f.saved = append(f.saved, name)
	return "http://example.com/public/uploads/" + name, nil
}

func newTestService(store *fakeStore) (*Service, *fakeMedia) {
	media := &fakeMedia{}
	svc := NewService(ServiceConfig{
		Store:    store,
		Creds:    fakeCreds{},
		Media:    media,
		BlogID:   "1",
		BlogName: "Test Blog",
		SiteURL:  "http://example.com",
	})
	return svc, media
}

// post drives one RPC call through the echo handler and decodes the response.
func post(t *testing.T, svc *Service, body string) parsedResponse {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/olw", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "text/xml")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := svc.Handle(c); err != nil {
		t.Fatalf("Handle returned transport error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (faults travel inside the envelope)", rec.Code)
	}
	return parseResponse(t, rec.Body.String())
}

type parsedResponse struct {
	value Value
	fault *Fault
}

func parseResponse(t *testing.T, body string) parsedResponse {
	t.Helper()
	var resp methodResponse
	if err := xml.NewDecoder(strings.NewReader(body)).Decode(&resp); err != nil {
		t.Fatalf("response is not a methodResponse: %v\n%s", err, body)
	}
	if resp.Fault != nil {
		members, ok := resp.Fault.Value.AsStruct()
		if !ok {
			t.Fatalf("fault value is not a struct:\n%s", body)
		}
		code, _ := members["faultCode"].AsInt()
		msg, _ := members["faultString"].AsString()
		return parsedResponse{fault: &Fault{Code: code, Message: msg}}
	}
	if resp.Params == nil || len(resp.Params.Params) != 1 {
		t.Fatalf("expected exactly one result param:\n%s", body)
	}
	return parsedResponse{value: resp.Params.Params[0].Value}
}

func (r parsedResponse) requireFault(t *testing.T, code int) *Fault {
	t.Helper()
	if r.fault == nil {
		t.Fatalf("expected fault %d, got success %+v", code, r.value)
	}
	if r.fault.Code != code {
		t.Fatalf("fault code = %d (%s), want %d", r.fault.Code, r.fault.Message, code)
	}
	return r.fault
}

func (r parsedResponse) requireSuccess(t *testing.T) Value {
	t.Helper()
	if r.fault != nil {
		t.Fatalf("expected success, got fault %d: %s", r.fault.Code, r.fault.Message)
	}
	return r.value
}

func callBody(method string, values ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><methodCall><methodName>`)
	b.WriteString(method)
	b.WriteString(`</methodName><params>`)
	for _, v := range values {
		b.WriteString("<param><value>")
		b.WriteString(v)
		b.WriteString("</value></param>")
	}
	b.WriteString(`</params></methodCall>`)
	return b.String()
}

func str(s string) string { return "<string>" + s + "</string>" }

func intv(n int) string { return fmt.Sprintf("<int>%d</int>", n) }

func boolv(b bool) string {
	if b {
		return "<boolean>1</boolean>"
	}
	return "<boolean>0</boolean>"
}

const contentStruct = `<struct>
<member><name>title</name><value><string>Hello World</string></value></member>
<member><name>description</name><value><string>&lt;p&gt;Body&lt;/p&gt;</string></value></member>
<member><name>mt_keywords</name><value><string>go, web</string></value></member>
<member><name>categories</name><value><array><data><value><string>Releases</string></value></data></array></value></member>
<member><name>dateCreated</name><value><dateTime.iso8601>20180501T09:00:00</dateTime.iso8601></value></member>
</struct>`

func TestUnknownMethodNeverTouchesStore(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	resp := post(t, svc, callBody("wp.getPages", str("1"), str("ann"), str("secret")))
	f := resp.requireFault(t, CodeUnsupportedMethod)
	if !strings.Contains(f.Message, "wp.getPages") {
		t.Errorf("fault message should name the method: %q", f.Message)
	}
	if store.calls() != 0 {
		t.Errorf("store touched %d times for unknown method", store.calls())
	}
}

func TestMalformedEnvelope(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	resp := post(t, svc, "this is not xml-rpc")
	resp.requireFault(t, CodeParseError)
	if store.calls() != 0 {
		t.Error("store touched for unparseable body")
	}
}

func TestArgumentCountCheckedBeforeHandler(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	resp := post(t, svc, callBody("metaWeblog.newPost", str("1"), str("ann"), str("secret")))
	resp.requireFault(t, CodeInvalidParams)
	if store.calls() != 0 {
		t.Error("store touched despite wrong argument count")
	}
}

func TestAuthFailureMessagesAreIdentical(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	wrongPass := post(t, svc, callBody("metaWeblog.getCategories", str("1"), str("ann"), str("nope")))
	unknownUser := post(t, svc, callBody("metaWeblog.getCategories", str("1"), str("mallory"), str("secret")))

	f1 := wrongPass.requireFault(t, CodeInvalidCredentials)
	f2 := unknownUser.requireFault(t, CodeInvalidCredentials)
	if f1.Message != f2.Message {
		t.Errorf("messages differ: %q vs %q (username enumeration)", f1.Message, f2.Message)
	}
	if store.calls() != 0 {
		t.Error("store touched despite failed auth")
	}
}

func TestEditPost(t *testing.T) {
	store := newFakeStore()
	store.posts[42] = fanray.Post{ID: 42, Slug: "hello-world", Title: "Old", Date: "2018-05-01", Published: true}
	store.nextID = 43
	svc, _ := newTestService(store)

	resp := post(t, svc, callBody("metaWeblog.editPost",
		str("42"), str("ann"), str("secret"), contentStruct, boolv(true)))
	v := resp.requireSuccess(t)
	if b, ok := v.AsBool(); !ok || !b {
		t.Errorf("editPost result = %+v, want boolean true", v)
	}
	if len(store.updates) != 1 || store.updates[0] != 42 {
		t.Fatalf("updates = %v, want exactly one update of 42", store.updates)
	}
	got := store.posts[42]
	if got.Title != "Hello World" || got.Content != "<p>Body</p>" {
		t.Errorf("post not updated: %+v", got)
	}
	if got.Slug != "hello-world" {
		t.Errorf("slug changed without wp_slug: %q", got.Slug)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" {
		t.Errorf("tags = %v", got.Tags)
	}
	if got.Category != "releases" {
		t.Errorf("category = %q", got.Category)
	}
}

func TestEditPostInvalidCredentialsMakesNoUpdate(t *testing.T) {
	store := newFakeStore()
	store.posts[42] = fanray.Post{ID: 42, Slug: "hello-world", Date: "2018-05-01", Published: true}
	svc, _ := newTestService(store)

	resp := post(t, svc, callBody("metaWeblog.editPost",
		str("42"), str("ann"), str("wrong"), contentStruct, boolv(true)))
	resp.requireFault(t, CodeInvalidCredentials)
	if len(store.updates) != 0 {
		t.Errorf("updates = %v, want none", store.updates)
	}
}

func TestEditPostMissing(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	resp := post(t, svc, callBody("metaWeblog.editPost",
		str("42"), str("ann"), str("secret"), contentStruct, boolv(true)))
	resp.requireFault(t, CodeNotFound)
}

func TestNewPost(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	resp := post(t, svc, callBody("metaWeblog.newPost",
		str("1"), str("ann"), str("secret"), contentStruct, boolv(true)))
	v := resp.requireSuccess(t)
	id, ok := v.AsString()
	if !ok || id != "1" {
		t.Fatalf("newPost returned %q, want post id string", id)
	}
	created := store.posts[1]
	if created.Title != "Hello World" || !created.Published {
		t.Errorf("created = %+v", created)
	}
	if created.Slug != "hello-world" {
		t.Errorf("slug not derived from title: %q", created.Slug)
	}
	if created.Date != "2018-05-01" {
		t.Errorf("date = %q, want from dateCreated", created.Date)
	}
}

func TestNewPostDraft(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	resp := post(t, svc, callBody("metaWeblog.newPost",
		str("1"), str("ann"), str("secret"), contentStruct, boolv(false)))
	resp.requireSuccess(t)
	if store.posts[1].Published {
		t.Error("publish=false should create a draft")
	}
}

func TestNewPostDuplicateSlug(t *testing.T) {
	store := newFakeStore()
	store.fail = fanray.ErrDuplicateSlug
	svc, _ := newTestService(store)

	resp := post(t, svc, callBody("metaWeblog.newPost",
		str("1"), str("ann"), str("secret"), contentStruct, boolv(true)))
	resp.requireFault(t, CodeDuplicateSlug)
}

func TestInternalErrorIsHidden(t *testing.T) {
	store := newFakeStore()
	store.fail = errors.New("disk on fire: /var/lib/blog.db")
	svc, _ := newTestService(store)

	resp := post(t, svc, callBody("metaWeblog.getCategories", str("1"), str("ann"), str("secret")))
	f := resp.requireFault(t, CodeInternal)
	if strings.Contains(f.Message, "disk") {
		t.Errorf("internal detail leaked: %q", f.Message)
	}
}

func TestDeletePostBloggerSignature(t *testing.T) {
	store := newFakeStore()
	store.posts[7] = fanray.Post{ID: 7, Slug: "x", Date: "2020-01-01"}
	svc, _ := newTestService(store)

	// blogger.deletePost(appKey, postid, username, password, publish)
	resp := post(t, svc, callBody("blogger.deletePost",
		str("ignored"), str("7"), str("ann"), str("secret"), boolv(false)))
	v := resp.requireSuccess(t)
	if b, _ := v.AsBool(); !b {
		t.Error("deletePost should return true")
	}
	if len(store.deletes) != 1 || store.deletes[0] != 7 {
		t.Errorf("deletes = %v", store.deletes)
	}
}

func TestGetPost(t *testing.T) {
	store := newFakeStore()
	store.posts[42] = fanray.Post{
		ID: 42, Slug: "hello-world", Title: "Hello", Date: "2018-05-01",
		Category: "releases", Tags: []string{"go"}, Content: "<p>x</p>", Published: true,
	}
	svc, _ := newTestService(store)

	resp := post(t, svc, callBody("metaWeblog.getPost", str("42"), str("ann"), str("secret")))
	v := resp.requireSuccess(t)
	members, ok := v.AsStruct()
	if !ok {
		t.Fatal("getPost should return a struct")
	}
	if id, _ := members["postid"].AsString(); id != "42" {
		t.Errorf("postid = %q", id)
	}
	if link, _ := members["link"].AsString(); link != "http://example.com/2018/05/01/hello-world" {
		t.Errorf("link = %q", link)
	}
	if created, ok := members["dateCreated"].AsTime(); !ok || !created.Equal(time.Date(2018, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dateCreated = %v, %v", created, ok)
	}
}

func TestGetRecentPosts(t *testing.T) {
	store := newFakeStore()
	store.posts[1] = fanray.Post{ID: 1, Slug: "a", Date: "2020-01-01"}
	store.posts[2] = fanray.Post{ID: 2, Slug: "b", Date: "2020-01-02"}
	svc, _ := newTestService(store)

	resp := post(t, svc, callBody("metaWeblog.getRecentPosts", str("1"), str("ann"), str("secret"), intv(10)))
	v := resp.requireSuccess(t)
	posts, ok := v.AsArray()
	if !ok || len(posts) != 2 {
		t.Fatalf("posts = %v, %v", posts, ok)
	}

	bad := post(t, svc, callBody("metaWeblog.getRecentPosts", str("1"), str("ann"), str("secret"), str("zero")))
	bad.requireFault(t, CodeInvalidParams)
}

func TestGetCategories(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	resp := post(t, svc, callBody("metaWeblog.getCategories", str("1"), str("ann"), str("secret")))
	v := resp.requireSuccess(t)
	cats, ok := v.AsArray()
	if !ok || len(cats) != 1 {
		t.Fatalf("cats = %v, %v", cats, ok)
	}
	members, _ := cats[0].AsStruct()
	if title, _ := members["title"].AsString(); title != "Releases" {
		t.Errorf("title = %q", title)
	}
	if desc, _ := members["description"].AsString(); desc != "Releases" {
		t.Errorf("description = %q (older clients read it as the name)", desc)
	}
}

func TestGetUsersBlogs(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	// blogger.getUsersBlogs(appKey, username, password)
	resp := post(t, svc, callBody("blogger.getUsersBlogs", str("ignored"), str("ann"), str("secret")))
	v := resp.requireSuccess(t)
	blogs, ok := v.AsArray()
	if !ok || len(blogs) != 1 {
		t.Fatalf("blogs = %v, %v", blogs, ok)
	}
	members, _ := blogs[0].AsStruct()
	if id, _ := members["blogid"].AsString(); id != "1" {
		t.Errorf("blogid = %q", id)
	}
	if url, _ := members["url"].AsString(); url != "http://example.com" {
		t.Errorf("url = %q", url)
	}
}

func TestNewMediaObject(t *testing.T) {
	store := newFakeStore()
	svc, media := newTestService(store)

	obj := `<struct>
<member><name>name</name><value><string>shot.png</string></value></member>
<member><name>type</name><value><string>image/png</string></value></member>
<member><name>bits</name><value><base64>aGVsbG8=</base64></value></member>
</struct>`
	resp := post(t, svc, callBody("metaWeblog.newMediaObject", str("1"), str("ann"), str("secret"), obj))
	v := resp.requireSuccess(t)
	members, ok := v.AsStruct()
	if !ok {
		t.Fatal("newMediaObject should return a struct")
	}
	url, _ := members["url"].AsString()
	if !strings.HasSuffix(url, "shot.png") {
		t.Errorf("url = %q", url)
	}
	if len(media.saved) != 1 || media.saved[0] != "shot.png" {
		t.Errorf("saved = %v", media.saved)
	}

	missingBits := `<struct><member><name>name</name><value><string>x.png</string></value></member></struct>`
	bad := post(t, svc, callBody("metaWeblog.newMediaObject", str("1"), str("ann"), str("secret"), missingBits))
	bad.requireFault(t, CodeInvalidParams)
}

func TestOnChangeRunsAfterMutations(t *testing.T) {
	store := newFakeStore()
	store.posts[1] = fanray.Post{ID: 1, Slug: "a", Date: "2020-01-01"}
	changes := 0
	svc := NewService(ServiceConfig{
		Store:    store,
		Creds:    fakeCreds{},
		BlogID:   "1",
		SiteURL:  "http://example.com",
		OnChange: func() { changes++ },
	})

	post(t, svc, callBody("metaWeblog.newPost", str("1"), str("ann"), str("secret"), contentStruct, boolv(true))).requireSuccess(t)
	post(t, svc, callBody("blogger.deletePost", str("k"), str("1"), str("ann"), str("secret"), boolv(false))).requireSuccess(t)
	post(t, svc, callBody("metaWeblog.getRecentPosts", str("1"), str("ann"), str("secret"), intv(5))).requireSuccess(t)

	if changes != 2 {
		t.Errorf("OnChange ran %d times, want 2 (reads must not invalidate)", changes)
	}
}

func TestLimiterThrottlesFailedAuth(t *testing.T) {
	store := newFakeStore()
	limiter := fanray.NewLoginLimiter(2, time.Minute)
	svc := NewService(ServiceConfig{
		Store:   store,
		Creds:   fakeCreds{},
		Limiter: limiter,
		BlogID:  "1",
		SiteURL: "http://example.com",
	})

	// Two failures exhaust the budget for this IP.
	for i := 0; i < 2; i++ {
		post(t, svc, callBody("metaWeblog.getCategories", str("1"), str("ann"), str("wrong"))).requireFault(t, CodeInvalidCredentials)
	}
	// Now even correct credentials are rejected until the window passes.
	post(t, svc, callBody("metaWeblog.getCategories", str("1"), str("ann"), str("secret"))).requireFault(t, CodeInvalidCredentials)
	if store.calls() != 0 {
		t.Error("store touched while throttled")
	}
}
