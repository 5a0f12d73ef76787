package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const icebreakerCount = 3

type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-1.5-flash")
	model.SetTemperature(0.8)

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// GenerateIcebreakers asks the model for opening lines for a random chat
// between two strangers with the given interests.
func (c *GeminiClient) GenerateIcebreakers(ctx context.Context, myInterests, partnerInterests []string) ([]string, error) {
	prompt := fmt.Sprintf(`
		Two strangers were just paired in a timed random chat.
		Person A interests: %v
		Person B interests: %v

		Task: Write %d short, friendly opening lines Person A could send first.
		Prefer shared interests, otherwise ask about one of Person B's.
		Language: Russian.
		Output: JSON array of strings only.
	`, myInterests, partnerInterests, icebreakerCount)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generate icebreakers: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return ParseIcebreakers(sb.String())
}

// ParseIcebreakers extracts lines from a model answer. It accepts a JSON
// array, optionally wrapped in a markdown code fence, and falls back to one
// line per non-empty row.
func ParseIcebreakers(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var lines []string
	if err := json.Unmarshal([]byte(text), &lines); err != nil {
		lines = lines[:0]
		for _, line := range strings.Split(text, "\n") {
			line = strings.Trim(strings.TrimSpace(line), `",`)
			line = strings.TrimLeft(line, "-*0123456789. ")
			if line != "" && line != "[" && line != "]" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			return nil, fmt.Errorf("failed to parse icebreakers: %w", err)
		}
	}

	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) > icebreakerCount {
		out = out[:icebreakerCount]
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no icebreakers in answer")
	}
	return out, nil
}

// Fallback returns canned openers, picking one about a shared interest when
// there is one.
func Fallback(myInterests, partnerInterests []string) []string {
	out := make([]string, 0, icebreakerCount)
	if shared := firstShared(myInterests, partnerInterests); shared != "" {
		out = append(out, fmt.Sprintf("Вижу, ты тоже увлекаешься: %s. Как к этому пришёл?", shared))
	} else if len(partnerInterests) > 0 {
		out = append(out, fmt.Sprintf("Расскажи, что тебя зацепило в %s?", partnerInterests[0]))
	}
	for _, line := range []string{
		"Привет! Как проходит твой день?",
		"Если бы можно было прямо сейчас оказаться в любом городе, какой бы выбрал?",
		"Что интересного ты узнал на этой неделе?",
	} {
		if len(out) == icebreakerCount {
			break
		}
		out = append(out, line)
	}
	return out
}

func firstShared(a, b []string) string {
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[strings.ToLower(strings.TrimSpace(s))] = true
	}
	for _, s := range b {
		if seen[strings.ToLower(strings.TrimSpace(s))] {
			return s
		}
	}
	return ""
}
