// Package app is the presentation-side model of the demystifier: three chat
// surfaces, the document analysis workspace and the small amount of global
// UI state. Views subscribe to immutable snapshots and never touch state
// directly.
package app

import (
	"context"

	"demystifier-backend/internal/model"
)

// API is the part of client.Client the workspace depends on.
type API interface {
	StreamChat(ctx context.Context, history []model.ChatMessage, groundingContext string, chatType model.ChatType, onFragment func(string)) error
	AnalyzeDocument(ctx context.Context, text string, file *model.FileData) (*model.AnalysisResult, error)
}
