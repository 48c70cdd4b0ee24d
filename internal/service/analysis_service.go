package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"demystifier-backend/internal/document"
	"demystifier-backend/internal/llm"
	"demystifier-backend/internal/model"
	"demystifier-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const analysisTemperature float32 = 0.2

type AnalysisService struct {
	chatModel   einoModel.BaseChatModel
	instruction string
	policy      document.Policy
}

func NewAnalysisService(cm einoModel.BaseChatModel, prompts Prompts, policy document.Policy) *AnalysisService {
	return &AnalysisService{
		chatModel:   cm,
		instruction: prompts.Analyze,
		policy:      policy,
	}
}

func (s *AnalysisService) Policy() document.Policy {
	return s.policy
}

// AnalyzeDocument asks the model for a summary, key terms and risks of the
// supplied text or file. A file takes precedence over text.
func (s *AnalysisService) AnalyzeDocument(ctx context.Context, payload model.AnalyzePayload) (*model.AnalysisResult, error) {
	if !payload.HasInput() {
		return nil, ErrInvalidInput
	}

	msg, err := s.buildMessage(payload)
	if err != nil {
		return nil, err
	}

	out, err := s.chatModel.Generate(ctx, []*schema.Message{msg},
		einoModel.WithTemperature(analysisTemperature),
		llm.WithJSONResponse(model.AnalysisSchema()),
	)
	if err != nil {
		return nil, fmt.Errorf("generate analysis: %w", err)
	}

	result, err := model.ParseAnalysisResult([]byte(out.Content))
	if err != nil {
		logger.Warnf("Analysis response rejected (%d bytes): %v", len(out.Content), err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return result, nil
}

func (s *AnalysisService) buildMessage(payload model.AnalyzePayload) (*schema.Message, error) {
	if payload.File == nil {
		return schema.UserMessage(s.withDocumentText(payload.Text)), nil
	}

	data, mimeType, err := s.policy.Decode(payload.File)
	if err != nil {
		return nil, errors.Join(ErrInvalidFile, err)
	}

	// Text uploads are inlined so providers without file input can read them.
	if document.IsText(mimeType) {
		return schema.UserMessage(s.withDocumentText(string(data))), nil
	}

	return &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{
				Type: schema.ChatMessagePartTypeFileURL,
				FileURL: &schema.ChatMessageFileURL{
					URL:      llm.DataURI(mimeType, payload.File.Data),
					MIMEType: mimeType,
					Name:     payload.File.Name,
				},
			},
			{Type: schema.ChatMessagePartTypeText, Text: s.instruction},
		},
	}, nil
}

func (s *AnalysisService) withDocumentText(text string) string {
	var sb strings.Builder
	sb.WriteString(s.instruction)
	sb.WriteString("\n\nDocument Text:\n---\n")
	sb.WriteString(text)
	sb.WriteString("\n---")
	return sb.String()
}
