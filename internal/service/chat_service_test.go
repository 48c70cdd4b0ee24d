package service

import (
	"context"
	"strings"
	"testing"

	"demystifier-backend/internal/config"
	"demystifier-backend/internal/model"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChatService(t *testing.T, fake *fakeChatModel, maxHistory int) *ChatService {
	t.Helper()
	prompts := NewPrompts(config.PromptConfig{
		Analyzer: "Explain the document.\n---\n{context}\n---",
	})
	s, err := NewChatService(context.Background(), fake, prompts, config.ChatConfig{MaxHistoryMessages: maxHistory})
	require.NoError(t, err)
	return s
}

func drain(respChan <-chan string, errChan <-chan error) ([]string, error) {
	var got []string
	for s := range respChan {
		got = append(got, s)
	}
	return got, <-errChan
}

func TestStreamChat_ForwardsNonEmptyFragmentsInOrder(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"As an AI", "", " assistant", "..."}}
	s := newTestChatService(t, fake, 0)

	got, err := drain(s.StreamChat(context.Background(), model.ChatPayload{
		History:  []model.ChatMessage{{Role: "user", Content: "What is a lien?"}},
		ChatType: model.ChatTypeAdvisor,
	}))

	require.NoError(t, err)
	assert.Equal(t, []string{"As an AI", " assistant", "..."}, got)
}

func TestStreamChat_BuildsPromptPerChatType(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"ok"}}
	s := newTestChatService(t, fake, 0)

	history := []model.ChatMessage{
		{Role: "model", Content: "Hello!"},
		{Role: "user", Content: "Explain clause 4."},
	}

	_, err := drain(s.StreamChat(context.Background(), model.ChatPayload{
		History:  history,
		Context:  "Summary of a lease.",
		ChatType: model.ChatTypeAnalyzer,
	}))
	require.NoError(t, err)

	msgs := fake.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Summary of a lease.")
	assert.Equal(t, schema.Assistant, msgs[1].Role)
	assert.Equal(t, schema.User, msgs[2].Role)
	assert.True(t, fake.gotImpl.DisableThinking)

	_, err = drain(s.StreamChat(context.Background(), model.ChatPayload{
		History:  history,
		Context:  "ignored outside the analyzer",
		ChatType: model.ChatTypeHub,
	}))
	require.NoError(t, err)
	msgs = fake.messages()
	assert.True(t, strings.HasPrefix(msgs[0].Content, "You are an AI assistant for a government document portal."))
	assert.NotContains(t, msgs[0].Content, "ignored outside the analyzer")
}

func TestStreamChat_Rejects(t *testing.T) {
	s := newTestChatService(t, &fakeChatModel{}, 0)

	tests := []struct {
		name    string
		payload model.ChatPayload
		wantErr error
	}{
		{"unknown chat type", model.ChatPayload{History: []model.ChatMessage{{Role: "user", Content: "hi"}}, ChatType: "lawyer"}, ErrInvalidChatType},
		{"empty history", model.ChatPayload{ChatType: model.ChatTypeAdvisor}, ErrEmptyHistory},
		{"blank history", model.ChatPayload{History: []model.ChatMessage{{Role: "user", Content: "  "}}, ChatType: model.ChatTypeAdvisor}, ErrEmptyHistory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := drain(s.StreamChat(context.Background(), tt.payload))
			assert.Empty(t, got)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStreamChat_UpstreamErrors(t *testing.T) {
	t.Run("before first fragment", func(t *testing.T) {
		s := newTestChatService(t, &fakeChatModel{err: errUpstream}, 0)
		got, err := drain(s.StreamChat(context.Background(), model.ChatPayload{
			History:  []model.ChatMessage{{Role: "user", Content: "hi"}},
			ChatType: model.ChatTypeAdvisor,
		}))
		assert.Empty(t, got)
		require.Error(t, err)
		assert.Contains(t, err.Error(), errUpstream.Error())
	})

	t.Run("mid stream", func(t *testing.T) {
		s := newTestChatService(t, &fakeChatModel{chunks: []string{"partial"}, streamErr: errUpstream}, 0)
		got, err := drain(s.StreamChat(context.Background(), model.ChatPayload{
			History:  []model.ChatMessage{{Role: "user", Content: "hi"}},
			ChatType: model.ChatTypeAdvisor,
		}))
		assert.Equal(t, []string{"partial"}, got)
		require.Error(t, err)
		assert.Contains(t, err.Error(), errUpstream.Error())
	})
}

func TestStreamChat_CancelStopsDelivery(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"a", "b", "c", "d"}}
	s := newTestChatService(t, fake, 0)

	ctx, cancel := context.WithCancel(context.Background())
	respChan, errChan := s.StreamChat(ctx, model.ChatPayload{
		History:  []model.ChatMessage{{Role: "user", Content: "hi"}},
		ChatType: model.ChatTypeAdvisor,
	})

	first := <-respChan
	assert.Equal(t, "a", first)
	cancel()

	rest := 0
	for range respChan {
		rest++
	}
	<-errChan
	assert.LessOrEqual(t, rest, 3)
}

func TestConvertHistory_KeepsMostRecent(t *testing.T) {
	s := &ChatService{maxHistory: 2}
	out := s.convertHistory([]model.ChatMessage{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: ""},
		{Role: "user", Content: "three"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "two", out[0].Content)
	assert.Equal(t, schema.Assistant, out[0].Role)
	assert.Equal(t, "three", out[1].Content)
}
