package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayush/skillpath/backend/internal/models"
)

// encodeSteps and decodeSteps are the only places the serialized form of
// steps exists; nothing outside the relational backends sees it.
func encodeSteps(steps []models.Step) (string, error) {
	b, err := json.Marshal(models.CopySteps(steps))
	if err != nil {
		return "", fmt.Errorf("encode steps: %w", err)
	}
	return string(b), nil
}

func decodeSteps(s string) ([]models.Step, error) {
	var steps []models.Step
	if err := json.Unmarshal([]byte(s), &steps); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	return models.CopySteps(steps), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t.UTC(), nil
}
