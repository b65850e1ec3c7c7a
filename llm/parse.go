package llm

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/m4xw311/meowcli/session"
)

// actionRe finds the JSON action blob inside a model reply. Models wrap the
// object in prose or code fences often enough that matching from the first
// brace to the last is the reliable extraction.
var actionRe = regexp.MustCompile(`(?s)\{.*\}`)

type action struct {
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`
}

// ParseResponse classifies a raw model reply. A reply with no JSON object
// is final text for the user. A reply with a well-formed action becomes a
// tool request with a fresh call id. Anything in between is an
// InvalidResponseError, which the agent loop answers with a corrective
// reformulation request.
func ParseResponse(raw string) (*ModelResponse, error) {
	blob := actionRe.FindString(raw)
	if blob == "" {
		return &ModelResponse{Raw: raw, FinalText: raw}, nil
	}

	var act action
	if err := json.Unmarshal([]byte(blob), &act); err != nil {
		return nil, &InvalidResponseError{
			Raw:    raw,
			Reason: fmt.Sprintf("reply contains a JSON object that does not parse: %v", err),
		}
	}
	if act.Tool == "" {
		return nil, &InvalidResponseError{
			Raw:    raw,
			Reason: "JSON object has no 'tool' field",
		}
	}
	if act.Args == nil {
		act.Args = map[string]interface{}{}
	}

	return &ModelResponse{
		Raw: raw,
		ToolRequest: &session.ToolCall{
			ID:   uuid.NewString(),
			Name: act.Tool,
			Args: act.Args,
		},
	}, nil
}
