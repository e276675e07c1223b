package service

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"realty_chat/internal/domain"
)

const actionSearchProperties = "search_properties"

type outputKind int

const (
	outputText outputKind = iota
	outputSearch
	outputHandoff
)

type responderOutput struct {
	kind     outputKind
	text     string
	criteria domain.SearchCriteria
	// malformed - ответ похож на JSON-инструкцию, но разобрать его не удалось
	malformed bool
}

type searchInstruction struct {
	Action   string `json:"action"`
	Criteria *struct {
		Query   string          `json:"query"`
		MinArea flexNumber      `json:"minArea"`
		MaxArea flexNumber      `json:"maxArea"`
		Rooms   json.RawMessage `json:"rooms"`
	} `json:"criteria"`
}

// flexNumber принимает число, числовую строку или null
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = flexNumber(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = flexNumber(v)
	return nil
}

// parseResponderOutput разбирает сырой ответ ассистента: поисковая инструкция,
// маркер передачи оператору или обычный текст
func parseResponderOutput(raw, handoffToken string) responderOutput {
	text := strings.TrimSpace(raw)

	if criteria, ok, looksLikeJSON := parseSearchInstruction(text); ok {
		return responderOutput{kind: outputSearch, text: text, criteria: criteria}
	} else if looksLikeJSON && !strings.Contains(text, handoffToken) {
		return responderOutput{kind: outputText, text: text, malformed: true}
	}

	if handoffToken != "" && strings.Contains(text, handoffToken) {
		return responderOutput{kind: outputHandoff, text: strings.TrimSpace(strings.ReplaceAll(text, handoffToken, ""))}
	}

	return responderOutput{kind: outputText, text: text}
}

func parseSearchInstruction(text string) (domain.SearchCriteria, bool, bool) {
	body := stripCodeFence(text)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return domain.SearchCriteria{}, false, false
	}
	looksLikeJSON := start == 0 || strings.HasPrefix(strings.TrimSpace(text), "```")

	var instr searchInstruction
	if err := json.Unmarshal([]byte(body[start:end+1]), &instr); err != nil {
		return domain.SearchCriteria{}, false, looksLikeJSON
	}
	if instr.Action != actionSearchProperties {
		return domain.SearchCriteria{}, false, looksLikeJSON
	}

	criteria := domain.SearchCriteria{}
	if instr.Criteria != nil {
		criteria.Query = strings.TrimSpace(instr.Criteria.Query)
		criteria.MinArea = positive(float64(instr.Criteria.MinArea))
		criteria.MaxArea = positive(float64(instr.Criteria.MaxArea))
		criteria.Rooms = parseRooms(instr.Criteria.Rooms)
	}

	return criteria, true, true
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if nl := strings.Index(body, "\n"); nl >= 0 {
		// первая строка - язык блока (json)
		body = body[nl+1:]
	}
	body = strings.TrimSpace(body)
	return strings.TrimSpace(strings.TrimSuffix(body, "```"))
}

// parseRooms: строка, число или null
func parseRooms(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil
		}
		s = strconv.FormatFloat(n, 'f', -1, 64)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func positive(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
