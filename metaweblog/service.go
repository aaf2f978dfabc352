package metaweblog

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sss-software/fanray"
)

// ContentStore is the slice of the content service the RPC handlers need.
type ContentStore interface {
	GetPostByID(id int64) (fanray.Post, error)
	CreatePost(p fanray.Post) (int64, error)
	UpdatePost(p fanray.Post) error
	DeletePost(id int64) error
	ListRecentPosts(n int) ([]fanray.Post, error)
	ListCategories() ([]fanray.Category, error)
}

// MediaSaver stores an upload and returns its absolute URL.
type MediaSaver interface {
	Save(name, contentType string, data []byte) (string, error)
}

// ServiceConfig wires the collaborators a Service dispatches against.
type ServiceConfig struct {
	Store   ContentStore
	Creds   fanray.CredentialVerifier
	Media   MediaSaver
	Limiter *fanray.LoginLimiter // optional: throttles failed authentications per IP

	BlogID   string
	BlogName string
	SiteURL  string

	// OnChange runs after every successful content mutation (cache invalidation).
	OnChange func()
}

// Service is the single-endpoint RPC dispatcher: it parses the envelope,
// authenticates the embedded credentials, validates argument shape, and
// invokes the handler registered for the method name.
type Service struct {
	cfg   ServiceConfig
	table map[string]methodSpec
}

// handlerFunc translates validated RPC arguments into content-service calls.
// Returned errors become faults; anything that is not already a *Fault or a
// known domain error maps to a generic internal fault.
type handlerFunc func(s *Service, args []Value) (Value, error)

// methodSpec describes one registered method: its minimum argument count, the
// position of the username argument (the password follows it), and the handler.
type methodSpec struct {
	minArgs int
	userIdx int
	fn      handlerFunc
}

// NewService builds a Service with the full legacy method table. Methods are
// registered under both their prefixed and bare names; adding a method is a
// table insertion.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{cfg: cfg, table: make(map[string]methodSpec)}

	register := func(spec methodSpec, names ...string) {
		for _, name := range names {
			s.table[name] = spec
		}
	}

	// metaWeblog methods: blogid/postid, username, password lead the args.
	register(methodSpec{minArgs: 5, userIdx: 1, fn: handleNewPost}, "metaWeblog.newPost", "newPost")
	register(methodSpec{minArgs: 5, userIdx: 1, fn: handleEditPost}, "metaWeblog.editPost", "editPost")
	register(methodSpec{minArgs: 3, userIdx: 1, fn: handleGetPost}, "metaWeblog.getPost", "getPost")
	register(methodSpec{minArgs: 4, userIdx: 1, fn: handleGetRecentPosts}, "metaWeblog.getRecentPosts", "getRecentPosts")
	register(methodSpec{minArgs: 3, userIdx: 1, fn: handleGetCategories}, "metaWeblog.getCategories", "getCategories")
	register(methodSpec{minArgs: 4, userIdx: 1, fn: handleNewMediaObject}, "metaWeblog.newMediaObject", "newMediaObject")

	// blogger methods carry an appKey first, shifting the credentials.
	register(methodSpec{minArgs: 4, userIdx: 2, fn: handleDeletePost}, "blogger.deletePost", "deletePost")
	register(methodSpec{minArgs: 3, userIdx: 1, fn: handleGetUsersBlogs}, "blogger.getUsersBlogs", "metaWeblog.getUsersBlogs", "getUsersBlogs")

	return s
}

// Register mounts the service on its single endpoint.
func (s *Service) Register(e *echo.Echo) {
	e.POST("/olw", s.Handle)
}

const maxBodySize = 16 << 20 // media uploads arrive base64-encoded in the envelope

// Handle serves one RPC call. Every outcome, including malformed input, is a
// well-formed methodResponse; nothing here propagates as an HTTP error.
func (s *Service) Handle(c echo.Context) error {
	method, args, err := ParseCall(io.LimitReader(c.Request().Body, maxBodySize))
	if err != nil {
		var f *Fault
		if !errors.As(err, &f) {
			f = &Fault{Code: CodeParseError, Message: "parse error"}
		}
		return s.respondFault(c, f)
	}

	spec, ok := s.table[method]
	if !ok {
		return s.respondFault(c, &Fault{Code: CodeUnsupportedMethod, Message: "unsupported method: " + method})
	}
	if len(args) < spec.minArgs {
		return s.respondFault(c, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: wrong argument count"})
	}

	username, okU := args[spec.userIdx].AsString()
	password, okP := args[spec.userIdx+1].AsString()
	if !okU || !okP {
		return s.respondFault(c, &Fault{Code: CodeInvalidParams, Message: "malformed arguments: credentials must be strings"})
	}
	if f := s.authenticate(c.RealIP(), username, password); f != nil {
		return s.respondFault(c, f)
	}

	result, err := spec.fn(s, args)
	if err != nil {
		return s.respondFault(c, s.toFault(c, err))
	}
	return s.respond(c, result)
}

// authenticate is the auth gate: it validates the embedded credentials before
// any handler runs. The fault message is identical for an unknown username
// and a wrong password.
func (s *Service) authenticate(ip, username, password string) *Fault {
	invalid := &Fault{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	if s.cfg.Limiter != nil && s.cfg.Limiter.Blocked(ip) {
		return invalid
	}
	if !s.cfg.Creds.Verify(username, password) {
		if s.cfg.Limiter != nil {
			s.cfg.Limiter.Record(ip)
		}
		return invalid
	}
	return nil
}

// toFault maps handler failures onto the stable fault taxonomy. Unexpected
// errors are logged and hidden behind a generic internal fault.
func (s *Service) toFault(c echo.Context, err error) *Fault {
	var f *Fault
	switch {
	case errors.As(err, &f):
		return f
	case errors.Is(err, fanray.ErrNotFound):
		return &Fault{Code: CodeNotFound, Message: "post not found"}
	case errors.Is(err, fanray.ErrDuplicateSlug):
		return &Fault{Code: CodeDuplicateSlug, Message: "a published post with this slug and date already exists"}
	}
	c.Logger().Errorf("metaweblog: internal error: %v", err)
	return &Fault{Code: CodeInternal, Message: "internal error"}
}

func (s *Service) respond(c echo.Context, v Value) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return WriteResponse(c.Response(), v)
}

// respondFault writes the fault envelope with HTTP 200: XML-RPC carries
// failure inside the envelope, and legacy clients treat non-200 as transport
// breakage.
func (s *Service) respondFault(c echo.Context, f *Fault) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return WriteFault(c.Response(), f)
}

func (s *Service) changed() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange()
	}
}
