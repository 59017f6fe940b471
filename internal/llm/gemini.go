package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// ErrNoContent is returned when a response carries no candidate text part.
var ErrNoContent = errors.New("response has no content")

type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the public endpoint, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration

	Temperature   *float32
	GoogleSearch  bool
	ThinkingLevel string
}

// GeminiChatModel adapts the genai client to eino's chat model interface.
type GeminiChatModel struct {
	client *genai.Client
	conf   GeminiConfig
}

type geminiOptions struct {
	GoogleSearch  bool
	ThinkingLevel string
}

// WithGoogleSearch toggles search grounding for one call.
func WithGoogleSearch(enabled bool) model.Option {
	return model.WrapImplSpecificOptFn(func(o *geminiOptions) {
		o.GoogleSearch = enabled
	})
}

// WithThinkingLevel sets "low", "high" or "" (provider default) for one call.
func WithThinkingLevel(level string) model.Option {
	return model.WrapImplSpecificOptFn(func(o *geminiOptions) {
		o.ThinkingLevel = level
	})
}

func NewGeminiChatModel(ctx context.Context, conf *GeminiConfig) (*GeminiChatModel, error) {
	if conf == nil || conf.Model == "" {
		return nil, errors.New("gemini: model is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     conf.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: conf.HTTPClient,
	}
	if conf.BaseURL != "" {
		cc.HTTPOptions.BaseURL = conf.BaseURL
	}
	if conf.Timeout > 0 {
		timeout := conf.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiChatModel{client: client, conf: *conf}, nil
}

func (m *GeminiChatModel) GetType() string {
	return "Gemini"
}

func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	common := model.GetCommonOptions(&model.Options{
		Temperature: m.conf.Temperature,
		Model:       &m.conf.Model,
	}, opts...)
	specific := model.GetImplSpecificOptions(&geminiOptions{
		GoogleSearch:  m.conf.GoogleSearch,
		ThinkingLevel: m.conf.ThinkingLevel,
	}, opts...)

	contents, system := toContents(input)
	gc := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       common.Temperature,
	}
	if specific.GoogleSearch {
		gc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if level := thinkingLevel(specific.ThinkingLevel); level != "" {
		gc.ThinkingConfig = &genai.ThinkingConfig{ThinkingLevel: level}
	}

	resp, err := m.client.Models.GenerateContent(ctx, *common.Model, contents, gc)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	text, err := firstText(resp)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

// Stream has no incremental mode; it yields the full Generate result as a
// single chunk.
func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *GeminiChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) > 0 {
		return errors.New("gemini: function tools are not supported")
	}
	return nil
}

func toContents(input []*schema.Message) ([]*genai.Content, *genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(system) == 0 {
		return contents, nil
	}
	return contents, genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
}

func thinkingLevel(level string) genai.ThinkingLevel {
	switch strings.ToLower(level) {
	case "low":
		return genai.ThinkingLevelLow
	case "high":
		return genai.ThinkingLevelHigh
	default:
		return ""
	}
}

// firstText returns the first part of the first candidate.
func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrNoContent)
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 || c.Content.Parts[0] == nil {
		return "", fmt.Errorf("%w: no parts", ErrNoContent)
	}
	return c.Content.Parts[0].Text, nil
}
