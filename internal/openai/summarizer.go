package openai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// maxInput caps the summary bytes sent to the model.
const maxInput = 4000

// Summarizer condenses company descriptions into a few markdown bullets.
type Summarizer struct {
	cli   oa.Client
	model string
}

func NewSummarizer(apiKey, model string, opts ...option.RequestOption) *Summarizer {
	if model == "" {
		model = DefaultModel
	}
	client := oa.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Summarizer{cli: client, model: model}
}

// Digest returns 3-5 markdown bullets describing what the company does.
func (s *Summarizer) Digest(ctx context.Context, company, summary string) (string, error) {
	text := sanitize(summary)
	if text == "" {
		return "", errors.New("no business summary to digest")
	}
	resp, err := s.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(s.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage("You are a concise equity research assistant. Reply with 3 to 5 markdown bullets describing what the company does, its main segments and where it earns money. No investment advice, no links."),
			oa.UserMessage(fmt.Sprintf("Company: %s\n\nBusiness summary:\n%s", company, text)),
		},
		MaxTokens: oa.Int(400),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var (
	reMarkdownImg = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`) // ![alt](url)
	reURL         = regexp.MustCompile(`https?://\S+`)
	reSpaces      = regexp.MustCompile(`\s+`)
)

// sanitize strips links and images and caps the length sent to the model.
func sanitize(text string) string {
	text = reMarkdownImg.ReplaceAllString(text, "")
	text = reURL.ReplaceAllString(text, "")
	text = strings.TrimSpace(reSpaces.ReplaceAllString(text, " "))
	if len(text) > maxInput {
		cut := maxInput
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}
