package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"demystifier-backend/internal/config"
	"demystifier-backend/internal/llm"
	"demystifier-backend/internal/model"
	"demystifier-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

const (
	keyHistory = "message_histories"
	keyContext = "context"
)

// chatInput is what a chat graph consumes.
type chatInput struct {
	History []*schema.Message
	Context string
}

// ChatService streams assistant replies for the three chat types. Each type
// has its own compiled graph: input -> system template -> chat model.
type ChatService struct {
	runners    map[model.ChatType]compose.Runnable[*chatInput, *schema.Message]
	maxHistory int
}

func NewChatService(ctx context.Context, cm einoModel.BaseChatModel, prompts Prompts, chatCfg config.ChatConfig) (*ChatService, error) {
	s := &ChatService{
		runners:    make(map[model.ChatType]compose.Runnable[*chatInput, *schema.Message], len(prompts.Chat)),
		maxHistory: chatCfg.MaxHistoryMessages,
	}

	for chatType, instruction := range prompts.Chat {
		runner, err := composeChatGraph(ctx, cm, instruction)
		if err != nil {
			return nil, fmt.Errorf("compose %s chat: %w", chatType, err)
		}
		s.runners[chatType] = runner
	}
	return s, nil
}

func newChatPrompt(instruction string) prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(instruction),
		schema.MessagesPlaceholder(keyHistory, false),
	)
}

func composeChatGraph(ctx context.Context, cm einoModel.BaseChatModel, instruction string) (compose.Runnable[*chatInput, *schema.Message], error) {
	g := compose.NewGraph[*chatInput, *schema.Message]()

	toMap := compose.InvokableLambda(func(ctx context.Context, input *chatInput) (map[string]any, error) {
		return map[string]any{
			keyHistory: input.History,
			keyContext: input.Context,
		}, nil
	})

	if err := g.AddLambdaNode("InputToMap", toMap); err != nil {
		return nil, err
	}
	if err := g.AddChatTemplateNode("ChatTemplate", newChatPrompt(instruction)); err != nil {
		return nil, err
	}
	if err := g.AddChatModelNode("ChatModel", cm); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, "InputToMap"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("InputToMap", "ChatTemplate"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("ChatTemplate", "ChatModel"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("ChatModel", compose.END); err != nil {
		return nil, err
	}

	return g.Compile(ctx)
}

// StreamChat starts a reply for payload. Non-empty text fragments arrive on
// the first channel in order; it is closed when the reply ends. The error
// channel then yields at most one error and is closed. Cancelling ctx stops
// the upstream call.
func (s *ChatService) StreamChat(ctx context.Context, payload model.ChatPayload) (<-chan string, <-chan error) {
	respChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(errChan)
		defer close(respChan)

		runner, input, err := s.prepare(payload)
		if err != nil {
			errChan <- err
			return
		}

		stream, err := runner.Stream(ctx, input, compose.WithChatModelOption(llm.WithThinkingDisabled()))
		if err != nil {
			errChan <- fmt.Errorf("start chat stream: %w", err)
			return
		}
		defer stream.Close()

		for {
			msg, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errChan <- fmt.Errorf("chat stream: %w", err)
				return
			}
			if msg == nil || msg.Content == "" {
				continue
			}

			select {
			case respChan <- msg.Content:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
	}()

	return respChan, errChan
}

func (s *ChatService) prepare(payload model.ChatPayload) (compose.Runnable[*chatInput, *schema.Message], *chatInput, error) {
	runner, ok := s.runners[payload.ChatType]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidChatType, payload.ChatType)
	}

	history := s.convertHistory(payload.History)
	if len(history) == 0 {
		return nil, nil, ErrEmptyHistory
	}

	// Only the analyzer is grounded in a document.
	groundingContext := ""
	if payload.ChatType == model.ChatTypeAnalyzer {
		groundingContext = payload.Context
	}

	logger.Debugf("Chat %s: %d history messages, %d context bytes", payload.ChatType, len(history), len(groundingContext))
	return runner, &chatInput{History: history, Context: groundingContext}, nil
}

// convertHistory drops blank turns and keeps the most recent maxHistory
// messages when a limit is configured.
func (s *ChatService) convertHistory(history []model.ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.IsAssistant() {
			out = append(out, schema.AssistantMessage(m.Content, nil))
		} else {
			out = append(out, schema.UserMessage(m.Content))
		}
	}

	if s.maxHistory > 0 && len(out) > s.maxHistory {
		out = out[len(out)-s.maxHistory:]
	}
	return out
}
