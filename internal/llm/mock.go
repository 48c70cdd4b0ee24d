package llm

import (
	"context"
	"encoding/json"

	"demystifier-backend/internal/model"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const mockReply = "This is a simulated reply from the mock provider, useful for checking the typing effect end to end. Configure a real model provider to get real answers. ✓"

// mockChatModel answers without network access. Analysis calls (those with a
// response schema) get a fixed, valid AnalysisResult.
type mockChatModel struct {
	reply     string
	chunkSize int
}

func newMockChatModel() *mockChatModel {
	return &mockChatModel{reply: mockReply, chunkSize: 8}
}

func (m *mockChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	_, impl := resolveOptions(0, opts)
	if impl.ResponseSchema == nil {
		return schema.AssistantMessage(m.reply, nil), nil
	}

	data, err := json.Marshal(model.AnalysisResult{
		Summary: "This is a sample analysis from the mock provider. Your document was received but not read.",
		KeyTerms: []model.KeyTerm{
			{Term: "Mock provider", Definition: "A stand-in model used for local development."},
		},
		PotentialRisks: []string{"Heads-up: this analysis is not based on your document."},
	})
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(string(data), nil), nil
}

// Stream emits the reply in chunks of chunkSize runes.
func (m *mockChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	runes := []rune(m.reply)
	chunks := make([]*schema.Message, 0, len(runes)/m.chunkSize+1)
	for i := 0; i < len(runes); i += m.chunkSize {
		end := min(i+m.chunkSize, len(runes))
		chunks = append(chunks, schema.AssistantMessage(string(runes[i:end]), nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}
