package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"move-quote-be/internal/constant"
	"move-quote-be/internal/pkg/logger"
	"move-quote-be/pkg/intake/address"
	"move-quote-be/pkg/intake/engine"
	"move-quote-be/pkg/intake/field"
	"move-quote-be/pkg/intake/items"
	"move-quote-be/pkg/llm"

	"github.com/bytedance/sonic"
)

// historyWindow bounds how many past messages each model call sees.
const historyWindow = 8

type llmEngine struct {
	provider llm.LLMProvider
	logger   logger.ILogger
	now      func() time.Time
}

func NewConversationEngine(provider llm.LLMProvider, log logger.ILogger) engine.ConversationEngine {
	return &llmEngine{provider: provider, logger: log, now: time.Now}
}

func (e *llmEngine) Extract(ctx context.Context, turn engine.Turn) (engine.Extraction, error) {
	state, err := sonic.MarshalString(turn.Fields)
	if err != nil {
		return engine.Extraction{}, fmt.Errorf("encode fields: %w", err)
	}

	msgs := []llm.Message{{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(constant.ExtractionSystemPrompt, e.now().Format("2006-01-02")),
	}}
	msgs = append(msgs, historyMessages(turn.History)...)
	msgs = append(msgs, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("已收集信息：%s\n当前要收集的字段：%s\n\n用户消息：%s", state, turn.Next, turn.Content),
	})

	out, err := e.provider.Chat(ctx, msgs, llm.WithJSON(), llm.WithTemperature(0))
	if err != nil {
		return engine.Extraction{}, err
	}

	ext, dropped := parseExtraction(out)
	if dropped > 0 {
		e.logger.Warn("ENGINE", "Dropped unusable extracted values", map[string]interface{}{"dropped": dropped})
	}
	return ext, nil
}

func (e *llmEngine) Reply(ctx context.Context, req engine.ReplyRequest) (engine.Stream, error) {
	state, err := sonic.MarshalIndent(req.Fields, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}

	next, question := "无", "信息已收集完毕，请用户确认并提交报价"
	if req.Next != "" {
		next = string(req.Next)
		question = constant.FieldQuestions[next]
	}
	notices := "无"
	if len(req.Notices) > 0 {
		notices = "- " + strings.Join(req.Notices, "\n- ")
	}

	msgs := []llm.Message{{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(constant.ReplySystemPrompt, state, next, question, notices),
	}}
	msgs = append(msgs, historyMessages(req.Turn.History)...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Turn.Content})

	return e.provider.ChatStream(ctx, msgs, llm.WithTemperature(0.7))
}

func historyMessages(h []engine.HistoryMessage) []llm.Message {
	if len(h) > historyWindow {
		h = h[len(h)-historyWindow:]
	}
	out := make([]llm.Message, 0, len(h))
	for _, m := range h {
		role := llm.RoleUser
		if m.Role == engine.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

type rawExtraction struct {
	Intent  string `json:"intent"`
	Updates []struct {
		Key    string          `json:"key"`
		Status string          `json:"status"`
		Value  json.RawMessage `json:"value"`
	} `json:"updates"`
	Addresses map[string]string `json:"addresses"`
	Items     []items.Item      `json:"items"`
}

// parseExtraction turns model output into typed updates. Anything it cannot
// type is dropped and counted rather than failing the turn.
func parseExtraction(text string) (engine.Extraction, int) {
	var raw rawExtraction
	if err := sonic.UnmarshalString(stripCodeFence(text), &raw); err != nil {
		return engine.Extraction{}, 1
	}

	ext := engine.Extraction{Intent: raw.Intent}
	dropped := 0

	addAddress := func(r address.Role, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		if ext.Addresses == nil {
			ext.Addresses = make(map[address.Role]string, 2)
		}
		ext.Addresses[r] = text
	}
	for role, text := range raw.Addresses {
		r := address.Role(role)
		if !r.Valid() {
			dropped++
			continue
		}
		addAddress(r, text)
	}

	for _, u := range raw.Updates {
		key := field.Key(u.Key)
		status := field.Status(u.Status)
		if status == field.Baseline {
			status = field.InProgress
		}
		if !key.Valid() || !status.Valid() || status == field.NotCollected {
			dropped++
			continue
		}

		switch key {
		case field.FromAddress, field.ToAddress:
			var s string
			if sonic.Unmarshal(u.Value, &s) == nil && status == field.InProgress {
				role := address.From
				if key == field.ToAddress {
					role = address.To
				}
				addAddress(role, s)
			} else if status == field.Skipped {
				ext.Updates = append(ext.Updates, engine.Update{Key: key, Status: status})
			} else {
				dropped++
			}
			continue
		case field.Items:
			// items arrive through the items list
			continue
		}

		var value any
		if status == field.InProgress {
			v, err := decodeValue(key, u.Value)
			if err != nil {
				dropped++
				continue
			}
			value = v
		}
		ext.Updates = append(ext.Updates, engine.Update{Key: key, Status: status, Value: value})
	}

	for _, it := range raw.Items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			dropped++
			continue
		}
		if !it.Category.Valid() {
			it.Category = items.SmallItems
		}
		ext.Items = append(ext.Items, it)
	}
	return ext, dropped
}

func decodeValue(key field.Key, raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%s: missing value", key)
	}
	switch key {
	case field.PeopleCount:
		var n float64
		if err := sonic.Unmarshal(raw, &n); err != nil {
			var s string
			if err := sonic.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			if n, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
				return nil, err
			}
		}
		if n < 1 {
			return nil, fmt.Errorf("people_count %v out of range", n)
		}
		return int(n), nil

	case field.FromBuildingType, field.FromRoomType, field.PackingService:
		var s string
		if err := sonic.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if s = strings.TrimSpace(s); s == "" {
			return nil, fmt.Errorf("%s: empty value", key)
		}
		return s, nil

	case field.MoveDate:
		var d field.DateValue
		if err := sonic.Unmarshal(raw, &d); err != nil {
			var s string
			if err := sonic.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			d.Value = s
		}
		if d.Month < 0 || d.Month > 12 || d.Day < 0 || d.Day > 31 {
			return nil, fmt.Errorf("move_date out of range")
		}
		return d, nil

	case field.FromFloorElevator, field.ToFloorElevator:
		var v field.FloorElevatorValue
		if err := sonic.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if v.Floor == nil && v.HasElevator == nil {
			return nil, fmt.Errorf("%s: empty value", key)
		}
		return v, nil

	case field.SpecialNotes:
		var notes []string
		if err := sonic.Unmarshal(raw, &notes); err != nil {
			var s string
			if err := sonic.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			notes = []string{s}
		}
		return notes, nil
	}
	return nil, fmt.Errorf("%s: no decoder", key)
}
