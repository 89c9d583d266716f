// Package gotruetest provides a fake auth API for tests. Responses are stubbed
// per method and path, and every incoming request is recorded.
package gotruetest

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/ErlanBelekov/gotrue-go/internal/requestid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Request is a recorded request as the server received it.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     string

	// RequestID is the X-Request-ID the client sent, or one the server assigned.
	RequestID string
}

type response struct {
	status int
	body   string
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	stubs    map[string]response
	requests []Request
}

type Option func(*serverOptions)

type serverOptions struct {
	logger *slog.Logger
}

// WithLogger logs every request the server handles.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// NewServer starts a server that is closed when t finishes.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	o := serverOptions{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{stubs: make(map[string]response)}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(sloggin.New(o.logger))
	r.NoRoute(s.handle)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Stub makes the server answer method target with status and body. target is
// a path, optionally with a query string that must then match exactly
// ("/token?grant_type=password"). An empty body sends no entity.
func (s *Server) Stub(method, target string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs[method+" "+target] = response{status: status, body: body}
}

// Requests returns the recorded requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request, false if none arrived.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	method, path, query := c.Request.Method, c.Request.URL.Path, c.Request.URL.RawQuery

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:   method,
		Path:     path,
		RawQuery: query,
		Header:   c.Request.Header.Clone(),
		Body:     string(body),

		RequestID: requestid.FromContext(c.Request.Context()),
	})
	resp, ok := s.stubs[method+" "+path+"?"+query]
	if !ok {
		resp, ok = s.stubs[method+" "+path]
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"msg": "no stub for " + method + " " + path})
		return
	}
	if resp.body == "" {
		// Commit the header now, or gin's NoRoute fallback writes its own
		// "404 page not found" entity.
		c.Status(resp.status)
		c.Writer.WriteHeaderNow()
		return
	}
	c.Data(resp.status, "application/json", []byte(resp.body))
}

// requestID keeps the caller's X-Request-ID, or assigns one, and echoes it
// in the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestid.Header)
		if id == "" {
			id = requestid.New()
		}

		ctx := requestid.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestid.Header, id)
		c.Next()
	}
}
