package service

import (
	"context"
	"errors"
	"sync"

	"demystifier-backend/internal/llm"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeChatModel replays canned output and records the last call.
type fakeChatModel struct {
	mu sync.Mutex

	reply     string
	chunks    []string
	streamErr error // sent after chunks
	err       error

	gotMessages []*schema.Message
	gotOptions  *einoModel.Options
	gotImpl     *llm.Options
}

func (f *fakeChatModel) record(messages []*schema.Message, opts []einoModel.Option) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotMessages = messages
	f.gotOptions = einoModel.GetCommonOptions(&einoModel.Options{}, opts...)
	f.gotImpl = einoModel.GetImplSpecificOptions(&llm.Options{}, opts...)
}

func (f *fakeChatModel) messages() []*schema.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotMessages
}

func (f *fakeChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	f.record(messages, opts)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	f.record(messages, opts)
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

var errUpstream = errors.New("upstream unavailable")
