package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"move-quote-be/internal/pkg/logger"
	"move-quote-be/pkg/intake/items"

	"github.com/bytedance/sonic"
	"google.golang.org/genai"
)

var ErrVisionNotConfigured = errors.New("vision extractor: GOOGLE_GEMINI_API_KEY not set")

const visionPrompt = `你是一个搬家物品识别专家。请分析这张图片，识别出所有需要搬运的家具、家电和物品。

对于每个识别出的物品，请提供：
- name: 英文名称
- localized_name: 日语名称（如：ダンボール、冷蔵庫、ベッド）
- category: 必须是 "large_furniture"、"appliances"、"small_items" 之一
- count: 数量
- note: 尺寸或备注，可省略

只返回 JSON：{"items": [{"name": "Refrigerator", "localized_name": "冷蔵庫", "category": "appliances", "count": 1}]}

注意：
- 只识别需要搬运的物品（家具、家电、箱子、行李等）
- 忽略固定设施（门、窗、墙壁装饰等）
- 多个相同物品合并计数`

type geminiExtractor struct {
	client *genai.Client
	model  string
	logger logger.ILogger
}

// NewGeminiExtractor builds the vision extractor. Without an API key it
// returns an extractor that always fails with ErrVisionNotConfigured, so the
// upload endpoint answers 503 instead of the server refusing to start.
func NewGeminiExtractor(ctx context.Context, apiKey, model string, log logger.ILogger) (items.Extractor, error) {
	if apiKey == "" {
		return unconfiguredExtractor{}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &geminiExtractor{client: client, model: model, logger: log}, nil
}

func (e *geminiExtractor) Extract(ctx context.Context, image []byte, mimeType string) ([]items.Item, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(visionPrompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	temperature := float32(0.2)
	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	detected, err := parseRecognition(resp.Text())
	if err != nil {
		return nil, err
	}
	e.logger.Info("VISION", "Image recognized", map[string]interface{}{"items": len(detected), "bytes": len(image)})
	return detected, nil
}

type unconfiguredExtractor struct{}

func (unconfiguredExtractor) Extract(context.Context, []byte, string) ([]items.Item, error) {
	return nil, ErrVisionNotConfigured
}

// parseRecognition reads the model's JSON, tolerating a markdown fence.
// Unknown categories fall back to small items; nameless entries are dropped.
func parseRecognition(text string) ([]items.Item, error) {
	text = stripCodeFence(text)
	if text == "" {
		return nil, errors.New("empty recognition response")
	}

	var parsed struct {
		Items []items.Item `json:"items"`
	}
	if err := sonic.UnmarshalString(text, &parsed); err != nil {
		return nil, fmt.Errorf("decode recognition response: %w", err)
	}

	out := make([]items.Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			it.Name = strings.TrimSpace(it.LocalizedName)
		}
		if it.Name == "" {
			continue
		}
		if !it.Category.Valid() {
			it.Category = items.SmallItems
		}
		if it.Count < 1 {
			it.Count = 1
		}
		out = append(out, it)
	}
	return out, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
