package analyzer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

const digestSystemPrompt = `You are a content analyst. Given the source content of a web page, extract:
- a clear and concise title that best represents the main topic
- 5-7 relevant keywords that best represent the main topics and themes
- a brief summary in 2-3 sentences that captures the main points and key takeaways
- 3-5 relevant hashtags appropriate for social media sharing, including the # symbol

Base everything strictly on the provided content.`

const digestSchema = `{
  "name": "content_digest",
  "description": "Structured digest of a web page",
  "schema": {
    "type": "object",
    "properties": {
      "title": {
        "type": "string",
        "description": "Concise title representing the main topic"
      },
      "keywords": {
        "type": "array",
        "items": {"type": "string"},
        "description": "5-7 keywords representing the main topics and themes"
      },
      "summary": {
        "type": "string",
        "description": "2-3 sentence summary of the main points"
      },
      "hashtags": {
        "type": "array",
        "items": {"type": "string"},
        "description": "3-5 hashtags including the # symbol"
      }
    },
    "required": ["title", "keywords", "summary", "hashtags"],
    "additionalProperties": false
  }
}`

// Digest is the structured output of the analysis agent.
type Digest struct {
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
	Summary  string   `json:"summary"`
	Hashtags []string `json:"hashtags"`
}

// Agent wraps the Anthropic structured-output call that turns page content
// into a Digest.
type Agent struct {
	apiKey   string
	settings *Settings
}

func NewAgent(apiKey string, settings *Settings) *Agent {
	return &Agent{apiKey: apiKey, settings: settings}
}

func (a *Agent) Digest(content string) (*Digest, error) {
	userPrompt := fmt.Sprintf("Source content:\n%s", a.limitContent(content))

	requestSettings := types.RequestSettings{
		Model:       a.settings.Model,
		MaxTokens:   a.settings.MaxTokens,
		Temperature: a.settings.Temperature,
	}

	response, err := anthropic.PromptWithSettings(digestSystemPrompt, userPrompt, digestSchema, a.apiKey, requestSettings)
	if err != nil {
		return nil, fmt.Errorf("agent prompt failed: %w", err)
	}
	if len(response.Content) == 0 {
		return nil, fmt.Errorf("no content in agent response")
	}

	var digest Digest
	if err := json.Unmarshal([]byte(response.Content[0].Text), &digest); err != nil {
		return nil, fmt.Errorf("failed to parse structured response: %w", err)
	}

	digest.Hashtags = normalizeHashtags(digest.Hashtags)

	slog.Debug("Content analyzed",
		"title", digest.Title,
		"keywords", len(digest.Keywords),
		"hashtags", len(digest.Hashtags))

	return &digest, nil
}

// limitContent caps the prompt content to the configured token budget,
// using the rough 4 chars per token approximation.
func (a *Agent) limitContent(content string) string {
	maxChars := a.settings.ContentMaxTokens * 4
	if maxChars <= 0 || len(content) <= maxChars {
		return content
	}
	return content[:maxChars] + "..."
}

func normalizeHashtags(hashtags []string) []string {
	normalized := make([]string, 0, len(hashtags))
	for _, tag := range hashtags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		normalized = append(normalized, tag)
	}
	return normalized
}
