// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package apitest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ImageURL is the reply to every image generation request.
const ImageURL = "https://images.example.test/generated.png"

// =============================================================================
// GENERATION
// =============================================================================

func (s *Server) generate(c *gin.Context) {
	s.answer(c, "")
}

func (s *Server) projectGenerate(c *gin.Context) {
	s.mu.Lock()
	_, ok := s.projects[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	s.answer(c, c.Param("id"))
}

func (s *Server) answer(c *gin.Context, projectID string) {
	in := body(c)
	text := str(in, "input_text")
	image := str(in, "generate_image") == "true"
	docs := uploadedNames(c, "documents[]")
	if text == "" && len(docs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "input_text is required"})
		return
	}

	s.mu.Lock()
	chat, ok := s.chats[str(in, "conversation_id")]
	if !ok {
		chat = s.newChatLocked(str(in, "user_id"), str(in, "model_name"), projectID)
		chat.Title = titleFrom(text)
	}
	turn := Turn{User: text, Documents: docs, CreatedAt: time.Now()}
	reply := gin.H{"response_type": "text", "model_used": str(in, "model_name")}
	if image {
		turn.Assistant = ImageURL
		turn.ContentType = "image"
		reply["response_type"] = "image"
		reply["image_url"] = ImageURL
		reply["response"] = ""
	} else {
		turn.Assistant = "echo: " + text
		turn.ContentType = "text"
		reply["response"] = turn.Assistant
	}
	if len(docs) > 0 {
		reply["document_names"] = docs
	}
	chat.Turns = append(chat.Turns, turn)
	chat.UpdatedAt = turn.CreatedAt
	if !s.omitID {
		reply["conversation_id"] = chat.ID
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, reply)
}

func (s *Server) search(c *gin.Context) {
	in := body(c)
	query := str(in, "query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
		return
	}
	if model := str(in, "model"); model != "gpt-4o" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "web search requires gpt-4o"})
		return
	}

	s.mu.Lock()
	chat, ok := s.chats[str(in, "conversation_id")]
	if !ok {
		chat = s.newChatLocked(str(in, "user_id"), "gpt-4o", "")
		chat.Title = titleFrom(query)
	}
	answer := "search: " + query + " [1]"
	chat.Turns = append(chat.Turns, Turn{User: query, Assistant: answer, ContentType: "text", CreatedAt: time.Now()})
	chat.UpdatedAt = time.Now()
	id := chat.ID
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": id,
		"response":        answer,
		"sources": gin.H{
			"0": gin.H{"title": "Result for " + query, "url": "https://example.test/result", "snippet": "snippet"},
		},
	})
}

func titleFrom(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "New Chat"
	}
	if r := []rune(text); len(r) > 50 {
		return string(r[:50])
	}
	return text
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func (s *Server) listChats(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 30
	}
	user := c.Query("user_id")

	s.mu.Lock()
	var chats []*Chat
	for _, chat := range s.chats {
		if user == "" || chat.UserID == "" || chat.UserID == user {
			chats = append(chats, chat)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		if chats[i].UpdatedAt.Equal(chats[j].UpdatedAt) {
			return chats[i].ID > chats[j].ID
		}
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	total := len(chats)
	items := []gin.H{}
	for i := (page - 1) * limit; i < total && i < page*limit; i++ {
		items = append(items, chatJSON(chats[i]))
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"chats": items,
		"total": total,
		"page":  page,
		"limit": limit,
		"pages": (total + limit - 1) / limit,
	})
}

func (s *Server) getChat(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found or access denied"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chatJSON(chat), "messages": recordsJSON(chat)})
}

func (s *Server) renameChat(c *gin.Context) {
	title := str(body(c), "title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields to update"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
		return
	}
	chat.Title = title
	chat.UpdatedAt = time.Now()
	c.JSON(http.StatusOK, gin.H{"success": true, "chat_id": chat.ID})
}

func (s *Server) deleteChat(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	chat, ok := s.chats[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found or access denied"})
		return
	}
	delete(s.chats, id)
	for share, target := range s.shares {
		if target == id {
			delete(s.shares, share)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chat_id": id, "conversations_deleted": len(chat.Turns)})
}

func (s *Server) clearChats(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.chats)
	s.chats = make(map[string]*Chat)
	s.shares = make(map[string]string)
	c.JSON(http.StatusOK, gin.H{"success": true, "chats_deleted": n})
}

func (s *Server) shareChat(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if _, ok := s.chats[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
		return
	}
	shareID := ""
	for share, target := range s.shares {
		if target == id {
			shareID = share
		}
	}
	message := "Chat already shared"
	if shareID == "" {
		shareID = s.nextIDLocked("share")
		s.shares[shareID] = id
		message = "Chat shared successfully"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"share_id":  shareID,
		"share_url": s.URL + "/share/" + shareID,
		"message":   message,
	})
}

func (s *Server) getShared(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[s.shares[c.Param("id")]]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shared chat not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"title":          chat.Title,
		"created_at":     chat.CreatedAt.Format("2006-01-02T15:04:05.000000"),
		"shared_at":      time.Now().Format("2006-01-02T15:04:05.000000"),
		"model_name":     chat.Model,
		"document_names": documentNames(chat),
		"message_count":  len(chat.Turns),
		"messages":       recordsJSON(chat),
	})
}

// =============================================================================
// PROJECTS
// =============================================================================

func projectJSON(p *Project) gin.H {
	return gin.H{
		"_id":          p.ID,
		"name":         p.Name,
		"goal":         p.Goal,
		"instructions": p.Instructions,
		"created_at":   p.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) listProjects(c *gin.Context) {
	user := c.Query("user_id")
	s.mu.Lock()
	var list []*Project
	for _, p := range s.projects {
		if user == "" || p.UserID == user {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	items := []gin.H{}
	for _, p := range list {
		items = append(items, projectJSON(p))
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"projects": items})
}

func (s *Server) createProject(c *gin.Context) {
	in := body(c)
	if str(in, "name") == "" || str(in, "goal") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and goal are required"})
		return
	}
	s.mu.Lock()
	p := &Project{
		ID:           s.nextIDLocked("proj"),
		UserID:       str(in, "user_id"),
		Name:         str(in, "name"),
		Goal:         str(in, "goal"),
		Instructions: str(in, "instructions"),
		CreatedAt:    time.Now(),
	}
	s.projects[p.ID] = p
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true, "project": gin.H{
		"id":         p.ID,
		"name":       p.Name,
		"goal":       p.Goal,
		"created_at": p.CreatedAt.Format(time.RFC3339),
	}})
}

func (s *Server) getProject(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	docs := []gin.H{}
	for _, d := range p.Documents {
		docs = append(docs, gin.H{
			"_id":        d.ID,
			"name":       d.Name,
			"size_mb":    float64(d.Size) / (1 << 20),
			"type":       d.Type,
			"created_at": time.Now().Format(time.RFC3339),
		})
	}
	out := gin.H{"project": projectJSON(p), "documents": docs, "messages": []gin.H{}}
	var latest *Chat
	convs := []gin.H{}
	for _, chat := range s.chats {
		if chat.ProjectID != p.ID {
			continue
		}
		convs = append(convs, chatJSON(chat))
		if latest == nil || chat.UpdatedAt.After(latest.UpdatedAt) {
			latest = chat
		}
	}
	out["conversations"] = convs
	if latest != nil {
		chat := chatJSON(latest)
		chat["id"] = latest.ID
		chat["project_id"] = p.ID
		out["chat"] = chat
		msgs := make([]gin.H, 0, len(latest.Turns))
		for _, t := range latest.Turns {
			msgs = append(msgs, gin.H{"user_message": t.User, "assistant_message": t.Assistant, "created_at": t.CreatedAt.Format(time.RFC3339)})
		}
		out["messages"] = msgs
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) updateProject(c *gin.Context) {
	in := body(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	p.Instructions = str(in, "instructions")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) uploadDocument(c *gin.Context) {
	file, err := c.FormFile("document")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No document provided"})
		return
	}
	name := c.PostForm("document_name")
	if name == "" {
		name = file.Filename
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	doc := Document{ID: s.nextIDLocked("doc"), Name: name, Size: file.Size, Type: file.Header.Get("Content-Type")}
	p.Documents = append(p.Documents, doc)
	c.JSON(http.StatusOK, gin.H{"success": true, "document": gin.H{
		"id":         doc.ID,
		"name":       doc.Name,
		"size_mb":    float64(doc.Size) / (1 << 20),
		"type":       doc.Type,
		"created_at": time.Now().Format(time.RFC3339),
	}})
}
