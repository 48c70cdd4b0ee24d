package handler

import (
	"context"
	"errors"
	"sync"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var errUpstream = errors.New("upstream unavailable")

// fakeChatModel stands in for the upstream model.
type fakeChatModel struct {
	mu    sync.Mutex
	calls int

	reply     string
	chunks    []string
	streamErr error
	err       error
}

func (f *fakeChatModel) called() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	reader, writer := schema.Pipe[*schema.Message](len(f.chunks) + 1)
	go func() {
		defer writer.Close()
		for _, c := range f.chunks {
			if writer.Send(schema.AssistantMessage(c, nil), nil) {
				return
			}
		}
		if f.streamErr != nil {
			writer.Send(nil, f.streamErr)
		}
	}()
	return reader, nil
}
