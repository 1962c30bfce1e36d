package extractor

import (
	"context"

	"goodfoods/models"
)

// Extractor turns a free-form utterance into a raw intent and candidate
// slot values. Implementations are untrusted oracles: their output must
// pass the dialogue normalizer before any field becomes usable, so a
// fabricating model cannot bypass validation.
type Extractor interface {
	Extract(ctx context.Context, utterance string, turns []models.Turn) (models.Extraction, error)
}
