package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"demystifier-backend/internal/config"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// geminiChatModel talks to the Gemini REST API directly so that inline
// documents, response schemas and thinking budgets are available.
type geminiChatModel struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float32
}

func newGeminiChatModel(cfg config.GeminiConfig, client *http.Client) *geminiChatModel {
	return &geminiChatModel{
		client:      client,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	Thought    bool              `json:"thought,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSchema struct {
	Type        string                   `json:"type"`
	Description string                   `json:"description,omitempty"`
	Properties  map[string]*geminiSchema `json:"properties,omitempty"`
	Items       *geminiSchema            `json:"items,omitempty"`
	Required    []string                 `json:"required,omitempty"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiGenerationConfig struct {
	Temperature      *float32              `json:"temperature,omitempty"`
	MaxOutputTokens  *int                  `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string                `json:"responseMimeType,omitempty"`
	ResponseSchema   *geminiSchema         `json:"responseSchema,omitempty"`
	ThinkingConfig   *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *geminiAPIError `json:"error,omitempty"`
}

// text joins the visible text of the first candidate.
func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		if !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func (r *geminiResponse) err() error {
	if r.Error != nil {
		return fmt.Errorf("gemini: %s (%s)", r.Error.Message, r.Error.Status)
	}
	if len(r.Candidates) == 0 && r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("gemini: prompt blocked: %s", r.PromptFeedback.BlockReason)
	}
	return nil
}

func (m *geminiChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	resp, err := m.do(ctx, "generateContent", messages, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	if err := out.err(); err != nil {
		return nil, err
	}

	return &schema.Message{Role: schema.Assistant, Content: out.text()}, nil
}

func (m *geminiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	resp, err := m.do(ctx, "streamGenerateContent?alt=sse", messages, opts)
	if err != nil {
		return nil, err
	}

	reader, writer := schema.Pipe[*schema.Message](16)
	go func() {
		defer writer.Close()
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "" {
				continue
			}

			var chunk geminiResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				writer.Send(nil, fmt.Errorf("gemini: decode stream chunk: %w", err))
				return
			}
			if err := chunk.err(); err != nil {
				writer.Send(nil, err)
				return
			}
			text := chunk.text()
			if text == "" {
				continue
			}
			if closed := writer.Send(&schema.Message{Role: schema.Assistant, Content: text}, nil); closed {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			writer.Send(nil, fmt.Errorf("gemini: read stream: %w", err))
		}
	}()

	return reader, nil
}

func (m *geminiChatModel) do(ctx context.Context, method string, messages []*schema.Message, opts []einoModel.Option) (*http.Response, error) {
	common, impl := resolveOptions(m.temperature, opts)

	body, err := m.buildRequest(messages, common, impl)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gemini: encode request: %w", err)
	}

	model := m.model
	if common.Model != nil && *common.Model != "" {
		model = *common.Model
	}
	url := fmt.Sprintf("%s/models/%s:%s", m.baseURL, model, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	var out geminiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &out) == nil && out.Error != nil {
		return fmt.Errorf("gemini: status %d: %s", resp.StatusCode, out.Error.Message)
	}
	return fmt.Errorf("gemini: status %d", resp.StatusCode)
}

func (m *geminiChatModel) buildRequest(messages []*schema.Message, common *einoModel.Options, impl *Options) (*geminiRequest, error) {
	req := &geminiRequest{}

	var system []string
	for _, msg := range messages {
		if msg.Role == schema.System {
			system = append(system, msg.Content)
			continue
		}

		role := "user"
		if msg.Role == schema.Assistant {
			role = "model"
			if msg.Content == "" && len(msg.MultiContent) == 0 {
				continue
			}
		}

		parts, err := geminiParts(msg)
		if err != nil {
			return nil, err
		}
		req.Contents = append(req.Contents, geminiContent{Role: role, Parts: parts})
	}
	if len(req.Contents) == 0 {
		return nil, errors.New("gemini: no messages to send")
	}
	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}
	}

	gen := &geminiGenerationConfig{
		Temperature:     common.Temperature,
		MaxOutputTokens: common.MaxTokens,
	}
	if impl.ResponseSchema != nil {
		gen.ResponseMimeType = "application/json"
		gen.ResponseSchema = toGeminiSchema(impl.ResponseSchema)
	}
	if impl.DisableThinking {
		gen.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: 0}
	}
	req.GenerationConfig = gen

	return req, nil
}

func geminiParts(msg *schema.Message) ([]geminiPart, error) {
	if len(msg.MultiContent) == 0 {
		return []geminiPart{{Text: msg.Content}}, nil
	}

	parts := make([]geminiPart, 0, len(msg.MultiContent))
	for _, p := range msg.MultiContent {
		switch p.Type {
		case schema.ChatMessagePartTypeText:
			parts = append(parts, geminiPart{Text: p.Text})
		case schema.ChatMessagePartTypeFileURL:
			if p.FileURL == nil {
				continue
			}
			mimeType, data, err := parseDataURI(p.FileURL.URL)
			if err != nil {
				return nil, fmt.Errorf("gemini: %w", err)
			}
			if p.FileURL.MIMEType != "" {
				mimeType = p.FileURL.MIMEType
			}
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: mimeType, Data: data}})
		case schema.ChatMessagePartTypeImageURL:
			if p.ImageURL == nil {
				continue
			}
			mimeType, data, err := parseDataURI(p.ImageURL.URL)
			if err != nil {
				return nil, fmt.Errorf("gemini: %w", err)
			}
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: mimeType, Data: data}})
		default:
			return nil, fmt.Errorf("gemini: unsupported message part %q", p.Type)
		}
	}
	return parts, nil
}

// toGeminiSchema converts a JSON schema into the OpenAPI subset Gemini
// accepts, which spells types in upper case.
func toGeminiSchema(def *jsonschema.Definition) *geminiSchema {
	if def == nil {
		return nil
	}
	out := &geminiSchema{
		Type:        strings.ToUpper(string(def.Type)),
		Description: def.Description,
		Required:    def.Required,
		Items:       toGeminiSchema(def.Items),
	}
	if len(def.Properties) > 0 {
		out.Properties = make(map[string]*geminiSchema, len(def.Properties))
		for name, prop := range def.Properties {
			prop := prop
			out.Properties[name] = toGeminiSchema(&prop)
		}
	}
	return out
}
