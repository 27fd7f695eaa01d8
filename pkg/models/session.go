package models

import (
	"strings"
	"time"
)

// Session is the full persisted record of one assistant conversation.
// The session file on disk is the sole source of truth; whichever component
// holds a Session in memory owns it exclusively until it is written back.
type Session struct {
	ID            string     `json:"id" yaml:"id"`
	Version       string     `json:"version" yaml:"version"`
	Created       time.Time  `json:"created" yaml:"created"`
	LastModified  time.Time  `json:"last_modified" yaml:"last_modified"`
	Model         string     `json:"model" yaml:"model"`
	Provider      string     `json:"provider" yaml:"provider"`
	WorkspaceRoot string     `json:"workspace_root" yaml:"workspace_root"`
	TokenCount    TokenCount `json:"token_count" yaml:"token_count"`
	Messages      []Message  `json:"messages" yaml:"messages"`
	ContextFiles  []string   `json:"context_files,omitempty" yaml:"context_files,omitempty"`
	FilesAccessed []string   `json:"files_accessed,omitempty" yaml:"files_accessed,omitempty"`
	Tags          []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Title         string     `json:"title,omitempty" yaml:"title,omitempty"`
	Notes         string     `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Message is a single user or assistant turn within a session.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// TokenCount tracks token usage for a session.
type TokenCount struct {
	Total  int `json:"total" yaml:"total"`
	Input  int `json:"input" yaml:"input"`
	Output int `json:"output" yaml:"output"`
}

// SessionMetadata is the catalog summary of a Session, derived from the full
// record at write time. It is never independently authoritative.
type SessionMetadata struct {
	ID            string     `json:"id" yaml:"id"`
	Created       time.Time  `json:"created" yaml:"created"`
	LastModified  time.Time  `json:"last_modified" yaml:"last_modified"`
	Model         string     `json:"model" yaml:"model"`
	Provider      string     `json:"provider" yaml:"provider"`
	TokenCount    TokenCount `json:"token_count" yaml:"token_count"`
	Title         string     `json:"title,omitempty" yaml:"title,omitempty"`
	WorkspaceRoot string     `json:"workspace_root" yaml:"workspace_root"`
	MessageCount  int        `json:"message_count" yaml:"message_count"`
	LastMessage   string     `json:"last_message,omitempty" yaml:"last_message,omitempty"`
	ContextFiles  []string   `json:"context_files,omitempty" yaml:"context_files,omitempty"`
	Tags          []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Preview       string     `json:"preview,omitempty" yaml:"preview,omitempty"`
}

// SessionIndex is the master catalog mapping session IDs to their metadata.
// An entry for an ID should exist exactly when a valid session file for that
// ID exists on disk; the validator repairs transient divergence.
type SessionIndex struct {
	Version     string                     `json:"version" yaml:"version"`
	LastUpdated time.Time                  `json:"last_updated" yaml:"last_updated"`
	Sessions    map[string]SessionMetadata `json:"sessions" yaml:"sessions"`
}

// previewLimit bounds the length of derived preview and last-message snippets.
const previewLimit = 100

// Metadata projects the catalog summary from a full session record.
func (s *Session) Metadata() SessionMetadata {
	md := SessionMetadata{
		ID:            s.ID,
		Created:       s.Created,
		LastModified:  s.LastModified,
		Model:         s.Model,
		Provider:      s.Provider,
		TokenCount:    s.TokenCount,
		Title:         s.Title,
		WorkspaceRoot: s.WorkspaceRoot,
		MessageCount:  len(s.Messages),
		ContextFiles:  s.ContextFiles,
		Tags:          s.Tags,
	}
	if n := len(s.Messages); n > 0 {
		md.LastMessage = truncate(s.Messages[n-1].Content, previewLimit)
	}
	for _, m := range s.Messages {
		if m.Role == "user" {
			md.Preview = truncate(m.Content, previewLimit)
			break
		}
	}
	return md
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
