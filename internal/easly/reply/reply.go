// Package reply defines the answer produced for one assistant turn before
// it is rendered as an HTTP response.
package reply

import "github.com/shopeasly/easly/internal/easly/actions"

// Awaiting tells the client what the next turn is expected to contain.
type Awaiting string

const (
	AwaitingNone         Awaiting = ""
	AwaitingChoice       Awaiting = "choice"
	AwaitingConfirmation Awaiting = "confirmation"
)

// Option is a selectable answer to a pending choice. Send is the text the
// client should post back when the option is picked.
type Option struct {
	Label string `json:"label"`
	Send  string `json:"send"`
}

// Reply is the outcome of a rule or a resolver step.
//
// When Execute is set the caller runs Action through the executor and uses
// the result message as Text, followed by Note on success. An Action with
// Execute unset is a proposal that the operator still has to confirm.
type Reply struct {
	Text     string          `json:"text"`
	Data     any             `json:"data,omitempty"`
	Action   *actions.Action `json:"action,omitempty"`
	Execute  bool            `json:"-"`
	Note     string          `json:"-"`
	Executed bool            `json:"executed"`
	Awaiting Awaiting        `json:"awaiting,omitempty"`
	Options  []Option        `json:"options,omitempty"`
}

// Text returns a plain informational reply.
func Text(s string) Reply { return Reply{Text: s} }

// Run returns a reply that executes a. note is appended to the executor's
// message when the action succeeds.
func Run(a actions.Action, note string) Reply {
	return Reply{Action: &a, Execute: true, Note: note}
}

// Propose returns a reply that describes a without running it.
func Propose(text string, a actions.Action) Reply {
	return Reply{Text: text, Action: &a, Awaiting: AwaitingConfirmation}
}

// Choose returns a reply asking the operator to pick one of options.
func Choose(text string, options []Option) Reply {
	return Reply{Text: text, Awaiting: AwaitingChoice, Options: options}
}

// Pending reports whether the reply leaves the conversation waiting on the
// operator.
func (r Reply) Pending() bool { return r.Awaiting != AwaitingNone }
