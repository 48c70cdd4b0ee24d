package model

import (
	"encoding/json"
	"strings"
)

const (
	ActionAnalyze = "analyze"
	ActionChat    = "chat"
)

// Envelope is the body of every POST /api/gemini call. Payload is decoded
// once Action is known.
type Envelope struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// FileData carries an uploaded document. Data is standard base64.
type FileData struct {
	Name     string `json:"name"`
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type AnalyzePayload struct {
	Text string    `json:"text,omitempty"`
	File *FileData `json:"file,omitempty"`
}

// HasInput reports whether the payload carries non-blank text or a file.
func (p AnalyzePayload) HasInput() bool {
	return strings.TrimSpace(p.Text) != "" || p.File != nil
}

type ChatType string

const (
	ChatTypeAnalyzer ChatType = "analyzer"
	ChatTypeAdvisor  ChatType = "advisor"
	ChatTypeHub      ChatType = "hub"
)

func (t ChatType) Valid() bool {
	switch t {
	case ChatTypeAnalyzer, ChatTypeAdvisor, ChatTypeHub:
		return true
	}
	return false
}

// Wire roles. The browser client historically sends "model" for assistant
// turns; "assistant" is accepted as a synonym.
const (
	RoleUser      = "user"
	RoleModel     = "model"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// IsAssistant reports whether the message was authored by the model.
func (m ChatMessage) IsAssistant() bool {
	r := strings.ToLower(strings.TrimSpace(m.Role))
	return r == RoleModel || r == RoleAssistant
}

type ChatPayload struct {
	History  []ChatMessage `json:"history"`
	Context  string        `json:"context"`
	ChatType ChatType      `json:"chatType"`
}
