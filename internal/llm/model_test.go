package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"demystifier-backend/internal/config"
	"demystifier-backend/internal/model"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatModel(t *testing.T) {
	cfg := &config.Config{}

	cfg.Model.Provider = "mock"
	m, err := NewChatModel(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &mockChatModel{}, m)

	cfg.Model.Provider = "gemini"
	cfg.Gemini = config.GeminiConfig{APIKey: "k", BaseURL: "http://localhost", Model: "gemini-2.5-flash"}
	m, err = NewChatModel(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &geminiChatModel{}, m)

	cfg.Model.Provider = "palm"
	_, err = NewChatModel(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestMockChatModel_StreamReassembles(t *testing.T) {
	m := newMockChatModel()
	stream, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer stream.Close()

	var sb strings.Builder
	n := 0
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(msg.Content)
		n++
	}
	assert.Equal(t, mockReply, sb.String())
	assert.Greater(t, n, 1)
}

func TestMockChatModel_GenerateAnalysis(t *testing.T) {
	m := newMockChatModel()
	out, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("doc")}, WithJSONResponse(model.AnalysisSchema()))
	require.NoError(t, err)

	result, err := model.ParseAnalysisResult([]byte(out.Content))
	require.NoError(t, err)
	assert.NotEmpty(t, result.Summary)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", maskKey(""))
	assert.Equal(t, "AIza****", maskKey("AIzaSyExample"))
}
