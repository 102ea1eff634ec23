// internal/discord/action.go
package discord

import (
	"fmt"
	"strings"
)

// ActionKind identifies what a component or modal interaction asks for.
type ActionKind string

const (
	ActionJoin       ActionKind = "join"
	ActionLeave      ActionKind = "leave"
	ActionFinalize   ActionKind = "finalize"
	ActionAdd        ActionKind = "add"
	ActionRemove     ActionKind = "remove"
	ActionShuffle    ActionKind = "shuffle"
	ActionSplit      ActionKind = "split"
	ActionPing       ActionKind = "ping"
	ActionEnd        ActionKind = "end"
	ActionConfirmEnd ActionKind = "confirmEnd"
	ActionCancelEnd  ActionKind = "cancelEnd"
	ActionModM2      ActionKind = "mod_m2"
	ActionModM3      ActionKind = "mod_m3"

	ActionAddModal    ActionKind = "addPlayerModal"
	ActionRemoveModal ActionKind = "removePlayerModal"
)

var knownKinds = map[ActionKind]bool{
	ActionJoin:        true,
	ActionLeave:       true,
	ActionFinalize:    true,
	ActionAdd:         true,
	ActionRemove:      true,
	ActionShuffle:     true,
	ActionSplit:       true,
	ActionPing:        true,
	ActionEnd:         true,
	ActionConfirmEnd:  true,
	ActionCancelEnd:   true,
	ActionModM2:       true,
	ActionModM3:       true,
	ActionAddModal:    true,
	ActionRemoveModal: true,
}

// Action is the typed form of a component custom id: a kind, the target farm
// and an optional argument. The mod-choice buttons use Arg to carry the
// player key when the tag is being declared for a manually-added player
// rather than for the clicking user.
type Action struct {
	Kind   ActionKind
	FarmID string
	Arg    string
}

// CustomID encodes the action for a Discord component.
func (a Action) CustomID() string {
	if a.Arg != "" {
		return fmt.Sprintf("%s:%s:%s", a.Kind, a.FarmID, a.Arg)
	}
	return fmt.Sprintf("%s:%s", a.Kind, a.FarmID)
}

// ParseAction decodes a component custom id back into its tagged form.
func ParseAction(customID string) (Action, error) {
	parts := strings.SplitN(customID, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Action{}, fmt.Errorf("malformed custom id %q", customID)
	}
	kind := ActionKind(parts[0])
	if !knownKinds[kind] {
		return Action{}, fmt.Errorf("unknown action kind %q", parts[0])
	}
	a := Action{Kind: kind, FarmID: parts[1]}
	if len(parts) == 3 {
		a.Arg = parts[2]
	}
	return a, nil
}
