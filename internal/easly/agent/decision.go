package agent

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Decision is the parsed reply to a decision prompt. It is one of UseTool,
// Answer or Fallback.
type Decision interface {
	decision()
}

// UseTool asks the loop to run a tool.
type UseTool struct {
	Tool             string
	Args             map[string]any
	Reason           string
	NeedsAnotherTool bool
	// FinalAnswer is used when the loop stops after this tool.
	FinalAnswer string
}

// Answer ends the loop. Text may be empty, in which case a synthesis call
// produces the reply.
type Answer struct {
	Text   string
	Reason string
}

// Fallback is a reply that could not be parsed. It ends the loop like an
// Answer without text.
type Fallback struct {
	Raw string
	Err error
}

func (UseTool) decision()  {}
func (Answer) decision()   {}
func (Fallback) decision() {}

// ErrNoJSON means the model reply contained no JSON object.
var ErrNoJSON = errors.New("agent: decision is not JSON")

var fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

type rawDecision struct {
	UseTool          bool           `json:"useTool"`
	ToolName         string         `json:"toolName"`
	Args             map[string]any `json:"args"`
	Reason           string         `json:"reason"`
	NeedsAnotherTool bool           `json:"needsAnotherTool"`
	FinalAnswer      string         `json:"finalAnswer"`
}

// ParseDecision parses a model reply. The reply is either a bare JSON object
// or contains one inside a fenced code block.
func ParseDecision(text string) Decision {
	raw, err := extract(text)
	if err != nil {
		return Fallback{Raw: text, Err: err}
	}
	name := strings.TrimSpace(raw.ToolName)
	if !raw.UseTool || name == "" || strings.EqualFold(name, "none") {
		return Answer{Text: strings.TrimSpace(raw.FinalAnswer), Reason: raw.Reason}
	}
	args := raw.Args
	if args == nil {
		args = map[string]any{}
	}
	return UseTool{
		Tool:             name,
		Args:             args,
		Reason:           raw.Reason,
		NeedsAnotherTool: raw.NeedsAnotherTool,
		FinalAnswer:      strings.TrimSpace(raw.FinalAnswer),
	}
}

func extract(text string) (rawDecision, error) {
	var d rawDecision
	text = strings.TrimSpace(text)
	if text == "" {
		return d, ErrNoJSON
	}
	err := json.Unmarshal([]byte(text), &d)
	if err == nil {
		return d, nil
	}
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		if err = json.Unmarshal([]byte(m[1]), &d); err == nil {
			return d, nil
		}
	}
	return rawDecision{}, errors.Join(ErrNoJSON, err)
}
