// File: services/extractor/gemini.go
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"goodfoods/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const extractionPrompt = `You are the slot extractor for a restaurant reservation agent.
Read the conversation and the latest user message, then answer with ONLY a JSON object:
{"intent": one of "search","check_availability","book","modify","cancel","affirm","other",
 "slots": {"restaurant_id": "...", "date": "YYYY-MM-DD", "time": "HH:MM", "party_size": "...",
           "customer_name": "...", "phone": "...", "email": "...", "special_requests": "...",
           "reservation_id": "..."}}
Only include a slot when the user literally stated its value. Never invent, guess, or
use placeholder values. "affirm" means the user is agreeing to a recap of the booking.`

// GeminiExtractor extracts intents and slots with a Gemini model.
type GeminiExtractor struct {
	model *genai.GenerativeModel
}

// NewGeminiExtractor creates a Gemini-backed extractor.
func NewGeminiExtractor(apiKey string) *GeminiExtractor {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		panic(fmt.Sprintf("failed to create Gemini client: %v", err))
	}

	model := client.GenerativeModel("models/gemini-1.5-pro")
	model.ResponseMIMEType = "application/json"
	return &GeminiExtractor{model: model}
}

func (g *GeminiExtractor) Extract(ctx context.Context, utterance string, turns []models.Turn) (models.Extraction, error) {
	var sb strings.Builder
	sb.WriteString(extractionPrompt)
	sb.WriteString("\n\nConversation so far:\n")
	for _, t := range recentTurns(turns, 12) {
		fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Text)
	}
	fmt.Fprintf(&sb, "\nLatest user message: %s\n", utterance)

	resp, err := g.model.GenerateContent(ctx, genai.Text(sb.String()))
	if err != nil {
		return models.Extraction{}, fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return models.Extraction{}, fmt.Errorf("gemini returned no candidates")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			out.WriteString(string(textPart))
		}
	}
	return parseExtraction(out.String())
}

// parseExtraction decodes the model's JSON defensively. Anything that does
// not parse cleanly degrades to intent "other" with no slots rather than
// erroring the turn.
func parseExtraction(raw string) (models.Extraction, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var dto struct {
		Intent string            `json:"intent"`
		Slots  map[string]string `json:"slots"`
	}
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return models.Extraction{Intent: models.IntentOther}, nil
	}

	ext := models.Extraction{
		Intent: models.IntentOther,
		Slots:  make(map[models.SlotName]string, len(dto.Slots)),
	}
	switch models.Intent(dto.Intent) {
	case models.IntentSearch, models.IntentCheckAvailability, models.IntentBook,
		models.IntentModify, models.IntentCancel, models.IntentAffirm:
		ext.Intent = models.Intent(dto.Intent)
	}
	for k, v := range dto.Slots {
		if v = strings.TrimSpace(v); v != "" {
			ext.Slots[models.SlotName(k)] = v
		}
	}
	return ext, nil
}

func recentTurns(turns []models.Turn, n int) []models.Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
