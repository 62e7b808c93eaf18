// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apitest runs an in-memory stand-in for the assistant backend on
// gin, for tests of the API client, the synchronizer and the CLI.
//
// The fake keeps conversations, shares and projects in maps, answers text
// messages with "echo: <text>", image requests with a fixed URL, and web
// searches with a single source. Tests can seed data, inject failures and
// inspect recorded requests.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// Server is the fake backend.
type Server struct {
	URL string

	srv *httptest.Server

	mu       sync.Mutex
	token    string
	reject   int
	failures map[string]failure
	omitID   bool
	seq      int
	chats    map[string]*Chat
	shares   map[string]string
	projects map[string]*Project
	requests []Request
}

// Chat is a stored conversation.
type Chat struct {
	ID        string
	UserID    string
	ProjectID string
	Title     string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Turns     []Turn
}

// Turn is one stored exchange.
type Turn struct {
	User        string
	Assistant   string
	ContentType string
	Documents   []string
	CreatedAt   time.Time
}

// Project is a stored project.
type Project struct {
	ID           string
	UserID       string
	Name         string
	Goal         string
	Instructions string
	CreatedAt    time.Time
	Documents    []Document
}

// Document is a stored project document.
type Document struct {
	ID   string
	Name string
	Size int64
	Type string
}

// Request is what the fake saw of one call.
type Request struct {
	Route       string
	Path        string
	RequestID   string
	Token       string
	ContentType string
	Query       map[string]string
	Form        map[string]string
	Files       []string
	JSON        map[string]any
}

type failure struct {
	status  int
	message string
	count   int
}

// New starts the fake. It accepts any non-empty bearer token until
// RequireToken is called, and shuts down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		failures: make(map[string]failure),
		chats:    make(map[string]*Chat),
		shares:   make(map[string]string),
		projects: make(map[string]*Project),
	}
	s.srv = httptest.NewServer(s.router())
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

// Close stops the server early.
func (s *Server) Close() {
	s.srv.Close()
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.record)

	r.GET("/share/:id", s.inject, s.getShared)

	authed := r.Group("/", s.authenticate, s.inject)
	authed.GET("/login", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	authed.POST("/generate-response", s.generate)
	authed.POST("/api/bing-grounding", s.search)
	authed.GET("/api/chats", s.listChats)
	authed.DELETE("/api/chats", s.clearChats)
	authed.GET("/api/chats/:id", s.getChat)
	authed.PUT("/api/chats/:id", s.renameChat)
	authed.DELETE("/api/chats/:id", s.deleteChat)
	authed.POST("/api/chats/:id/share", s.shareChat)
	authed.GET("/api/projects", s.listProjects)
	authed.POST("/api/projects", s.createProject)
	authed.GET("/api/projects/:id", s.getProject)
	authed.PATCH("/api/projects/:id", s.updateProject)
	authed.POST("/api/projects/:id/documents", s.uploadDocument)
	authed.POST("/api/projects/:id/conversation", s.projectGenerate)
	return r
}

// =============================================================================
// TEST CONTROLS
// =============================================================================

// RequireToken makes the fake accept only token.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// RejectNext answers the next n authenticated calls with 401.
func (s *Server) RejectNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = n
}

// Fail answers the next count calls of route ("POST /generate-response")
// with status and {"error": message}.
func (s *Server) Fail(route string, status int, message string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message, count: count}
}

// OmitConversationID makes generate replies leave out conversation_id.
func (s *Server) OmitConversationID(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitID = omit
}

// SeedChat stores a conversation for userID and returns its id.
func (s *Server) SeedChat(userID, title string, turns ...Turn) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat := s.newChatLocked(userID, "gpt-4o", "")
	chat.Title = title
	chat.Turns = append(chat.Turns, turns...)
	return chat.ID
}

// SeedProject stores a project for userID and returns its id.
func (s *Server) SeedProject(userID, name, goal string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &Project{ID: s.nextIDLocked("proj"), UserID: userID, Name: name, Goal: goal, CreatedAt: time.Now()}
	s.projects[p.ID] = p
	return p.ID
}

// Chat returns a copy of the stored conversation.
func (s *Server) Chat(id string) (Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return Chat{}, false
	}
	cp := *c
	cp.Turns = append([]Turn(nil), c.Turns...)
	return cp, true
}

// ChatCount returns the number of stored conversations.
func (s *Server) ChatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

// Project returns a copy of the stored project.
func (s *Server) Project(id string) (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return Project{}, false
	}
	cp := *p
	cp.Documents = append([]Document(nil), p.Documents...)
	return cp, true
}

// Requests returns every recorded call of route, in order. An empty route
// returns all calls.
func (s *Server) Requests(route string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if route == "" || r.Route == route {
			out = append(out, r)
		}
	}
	return out
}

// Calls counts recorded calls of route.
func (s *Server) Calls(route string) int {
	return len(s.Requests(route))
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func routeKey(c *gin.Context) string {
	return c.Request.Method + " " + c.FullPath()
}

// record captures the request before handlers consume the body.
func (s *Server) record(c *gin.Context) {
	req := Request{
		Route:       routeKey(c),
		Path:        c.Request.URL.Path,
		RequestID:   c.GetHeader("X-Request-ID"),
		Token:       strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "),
		ContentType: c.ContentType(),
		Query:       map[string]string{},
	}
	for k := range c.Request.URL.Query() {
		req.Query[k] = c.Query(k)
	}
	switch {
	case strings.HasPrefix(req.ContentType, "multipart/"):
		if form, err := c.MultipartForm(); err == nil {
			req.Form = map[string]string{}
			for k, v := range form.Value {
				req.Form[k] = v[0]
			}
			for _, files := range form.File {
				for _, f := range files {
					req.Files = append(req.Files, f.Filename)
				}
			}
			sort.Strings(req.Files)
		}
	case req.ContentType == "application/json":
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err == nil {
			req.JSON = body
			c.Set("json", body)
		}
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	c.Next()
}

func (s *Server) authenticate(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	s.mu.Lock()
	reject := s.reject > 0 || token == "" || (s.token != "" && token != s.token)
	if s.reject > 0 {
		s.reject--
	}
	s.mu.Unlock()
	if reject {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	c.Next()
}

func (s *Server) inject(c *gin.Context) {
	key := routeKey(c)
	s.mu.Lock()
	f, ok := s.failures[key]
	if ok {
		f.count--
		if f.count <= 0 {
			delete(s.failures, key)
		} else {
			s.failures[key] = f
		}
	}
	s.mu.Unlock()
	if ok {
		c.AbortWithStatusJSON(f.status, gin.H{"error": f.message})
		return
	}
	c.Next()
}

// =============================================================================
// HELPERS
// =============================================================================

// body returns the JSON body captured by record, or the multipart form
// values.
func body(c *gin.Context) map[string]any {
	if v, ok := c.Get("json"); ok {
		return v.(map[string]any)
	}
	out := map[string]any{}
	if form, err := c.MultipartForm(); err == nil {
		for k, v := range form.Value {
			out[k] = v[0]
		}
	}
	return out
}

func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (s *Server) nextIDLocked(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *Server) newChatLocked(userID, model, projectID string) *Chat {
	now := time.Now()
	chat := &Chat{
		ID:        s.nextIDLocked("chat"),
		UserID:    userID,
		ProjectID: projectID,
		Title:     "New Chat",
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.chats[chat.ID] = chat
	return chat
}

func uploadedNames(c *gin.Context, field string) []string {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	var names []string
	for _, f := range form.File[field] {
		names = append(names, f.Filename)
	}
	return names
}

func chatJSON(c *Chat) gin.H {
	return gin.H{
		"_id":            c.ID,
		"title":          c.Title,
		"created_at":     c.CreatedAt.Format("2006-01-02T15:04:05.000000"),
		"updated_at":     c.UpdatedAt.Format("2006-01-02T15:04:05.000000"),
		"model_name":     c.Model,
		"message_count":  len(c.Turns),
		"document_names": documentNames(c),
	}
}

func documentNames(c *Chat) []string {
	names := []string{}
	for _, t := range c.Turns {
		names = append(names, t.Documents...)
	}
	return names
}

func recordsJSON(c *Chat) []gin.H {
	out := make([]gin.H, 0, len(c.Turns))
	for i, t := range c.Turns {
		rec := gin.H{
			"order":        i,
			"created_at":   t.CreatedAt.Format("2006-01-02T15:04:05.000000"),
			"content_type": t.ContentType,
		}
		if t.User != "" {
			rec["user_role"] = t.User
		}
		if t.Assistant != "" {
			rec["assistant_role"] = t.Assistant
		}
		if len(t.Documents) > 0 {
			rec["document_names"] = t.Documents
		}
		out = append(out, rec)
	}
	return out
}
