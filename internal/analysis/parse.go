package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedResponse indicates the LLM output did not match the fixed
// response format. Handlers map it to 502 (vendor produced garbage).
var ErrMalformedResponse = errors.New("malformed llm response")

// fencedBlock matches the first fenced code block, with or without a
// language tag, capturing its body.
var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")

// extractPayload pulls the JSON payload out of the LLM's text output.
// Models are instructed to respond with a single fenced block; bare JSON
// is accepted as a fallback.
func extractPayload(raw string) (string, error) {
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return trimmed, nil
	}
	return "", fmt.Errorf("%w: no fenced JSON block found", ErrMalformedResponse)
}

// ParseSummary extracts the repository analysis summary from the LLM output
// and returns it as validated raw JSON, ready for a JSONB column.
func ParseSummary(raw string) (json.RawMessage, error) {
	payload, err := extractPayload(raw)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return nil, fmt.Errorf("%w: summary is not a JSON object: %v", ErrMalformedResponse, err)
	}
	return json.RawMessage(payload), nil
}

// ProposedChange is one file change parsed from the LLM output.
type ProposedChange struct {
	Path          string `json:"path"`
	Content       string `json:"content"`
	CommitMessage string `json:"commit_message"`
}

// ParseFileChanges extracts the proposed file changes from the LLM output.
// Every change must carry a path and content; a missing commit message falls
// back to a generated one.
func ParseFileChanges(raw string) ([]ProposedChange, error) {
	payload, err := extractPayload(raw)
	if err != nil {
		return nil, err
	}

	var changes []ProposedChange
	if err := json.Unmarshal([]byte(payload), &changes); err != nil {
		return nil, fmt.Errorf("%w: changes are not a JSON array: %v", ErrMalformedResponse, err)
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: empty change list", ErrMalformedResponse)
	}

	for i := range changes {
		changes[i].Path = strings.TrimPrefix(strings.TrimSpace(changes[i].Path), "/")
		if changes[i].Path == "" {
			return nil, fmt.Errorf("%w: change %d has no path", ErrMalformedResponse, i)
		}
		if changes[i].Content == "" {
			return nil, fmt.Errorf("%w: change for %s has no content", ErrMalformedResponse, changes[i].Path)
		}
		if strings.TrimSpace(changes[i].CommitMessage) == "" {
			changes[i].CommitMessage = fmt.Sprintf("Update %s", changes[i].Path)
		}
	}
	return changes, nil
}
