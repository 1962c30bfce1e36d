package extractor

import (
	"context"
	"regexp"
	"strings"

	"goodfoods/models"
)

// KeywordExtractor is the local fallback used when no Gemini API key is
// configured. Keyword matching for intent, fixed patterns for the slots a
// regex can find reliably.
type KeywordExtractor struct{}

// NewKeywordExtractor creates the local fallback extractor.
func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{}
}

var (
	datePattern  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	timePattern  = regexp.MustCompile(`\b(\d{1,2}:\d{2})\b`)
	partyPattern = regexp.MustCompile(`(?i)\b(?:for|party of|table for)\s+(\d{1,2})\b`)
	phonePattern = regexp.MustCompile(`\b(\+?\d[\d\-\s]{8,14}\d)\b`)
	emailPattern = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.]+\b`)
	codePattern  = regexp.MustCompile(`\b(GF-[A-Z0-9]+-\d+)\b`)
	restPattern  = regexp.MustCompile(`\b(rest_\d+)\b`)
)

func (e *KeywordExtractor) Extract(ctx context.Context, utterance string, turns []models.Turn) (models.Extraction, error) {
	lower := strings.ToLower(utterance)

	var intent models.Intent
	switch {
	case isAffirmation(lower):
		intent = models.IntentAffirm
	case strings.Contains(lower, "cancel"):
		intent = models.IntentCancel
	case strings.Contains(lower, "change") || strings.Contains(lower, "modify") || strings.Contains(lower, "reschedule"):
		intent = models.IntentModify
	case strings.Contains(lower, "available") || strings.Contains(lower, "availability") || strings.Contains(lower, "free table"):
		intent = models.IntentCheckAvailability
	case strings.Contains(lower, "book") || strings.Contains(lower, "reserve") || strings.Contains(lower, "reservation"):
		intent = models.IntentBook
	case strings.Contains(lower, "find") || strings.Contains(lower, "search") || strings.Contains(lower, "recommend") || strings.Contains(lower, "suggest"):
		intent = models.IntentSearch
	default:
		intent = models.IntentOther
	}

	slots := make(map[models.SlotName]string)
	if m := datePattern.FindString(utterance); m != "" {
		slots[models.SlotDate] = m
	}
	if m := timePattern.FindString(utterance); m != "" {
		slots[models.SlotTime] = m
	}
	if m := partyPattern.FindStringSubmatch(utterance); m != nil {
		slots[models.SlotPartySize] = m[1]
	}
	if m := emailPattern.FindString(utterance); m != "" {
		slots[models.SlotEmail] = m
	}
	for _, m := range phonePattern.FindAllString(utterance, -1) {
		m = strings.TrimSpace(m)
		// The digit-and-dash pattern also matches ISO dates; skip those.
		if datePattern.MatchString(m) || m == slots[models.SlotEmail] {
			continue
		}
		slots[models.SlotPhone] = m
		break
	}
	if m := codePattern.FindString(strings.ToUpper(utterance)); m != "" {
		slots[models.SlotReservationID] = m
	}
	if m := restPattern.FindString(lower); m != "" {
		slots[models.SlotRestaurantID] = m
	}

	return models.Extraction{Intent: intent, Slots: slots}, nil
}

func isAffirmation(lower string) bool {
	for _, w := range []string{"yes", "yep", "correct", "confirm", "that's right", "looks good", "go ahead"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
