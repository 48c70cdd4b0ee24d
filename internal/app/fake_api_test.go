package app

import (
	"context"
	"sync"

	"demystifier-backend/internal/model"
)

type streamCall struct {
	History  []model.ChatMessage
	Context  string
	ChatType model.ChatType
}

// fakeAPI replays fragments and records what it was asked.
type fakeAPI struct {
	mu sync.Mutex

	fragments []string
	streamErr error
	// block, when set, holds StreamChat open until it is closed.
	block chan struct{}

	result     *model.AnalysisResult
	analyzeErr error

	streamCalls  []streamCall
	analyzeCalls int
}

func (f *fakeAPI) StreamChat(ctx context.Context, history []model.ChatMessage, groundingContext string, chatType model.ChatType, onFragment func(string)) error {
	f.mu.Lock()
	f.streamCalls = append(f.streamCalls, streamCall{History: history, Context: groundingContext, ChatType: chatType})
	fragments, streamErr, block := f.fragments, f.streamErr, f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	for _, frag := range fragments {
		onFragment(frag)
	}
	return streamErr
}

func (f *fakeAPI) AnalyzeDocument(ctx context.Context, text string, file *model.FileData) (*model.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeCalls++
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return f.result, nil
}

func (f *fakeAPI) calls() []streamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]streamCall(nil), f.streamCalls...)
}
