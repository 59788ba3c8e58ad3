// Package mutate defines live mutations of running scores.
package mutate

import (
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/dudk/nfplayer/param"
	"github.com/dudk/nfplayer/score"
)

// Name identifies mutation kind.
type Name string

// Mutation kinds.
const (
	// PushCommands appends commands to the param.
	PushCommands Name = "PUSH_COMMANDS"
	// ClearCommands removes all commands of the param.
	ClearCommands Name = "CLEAR_COMMANDS"
)

// ErrUnknownMutation is returned for mutation with unknown name.
var ErrUnknownMutation = errors.New("unknown mutation")

// Commands is a mutation of node's param automation. Empty GraphID means
// all graphs.
type Commands struct {
	Name      Name            `json:"name"`
	GraphID   string          `json:"graphId,omitempty"`
	NodeID    string          `json:"nodeId"`
	ParamName string          `json:"paramName"`
	Commands  []score.Command `json:"commands,omitempty"`
}

// Push returns a mutation which appends commands to the param.
func Push(graphID, nodeID, paramName string, cmds ...score.Command) Commands {
	return Commands{
		Name:      PushCommands,
		GraphID:   graphID,
		NodeID:    nodeID,
		ParamName: paramName,
		Commands:  cmds,
	}
}

// Clear returns a mutation which removes all commands of the param.
func Clear(graphID, nodeID, paramName string) Commands {
	return Commands{
		Name:      ClearCommands,
		GraphID:   graphID,
		NodeID:    nodeID,
		ParamName: paramName,
	}
}

// Validate checks if mutation kind is known.
func (m Commands) Validate() error {
	switch m.Name {
	case PushCommands, ClearCommands:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMutation, m.Name)
	}
}

// Apply returns commands list after mutation.
func (m Commands) Apply(cmds []score.Command) []score.Command {
	switch m.Name {
	case PushCommands:
		return append(cmds, m.Commands...)
	default:
		return []score.Command{}
	}
}

// Effect is a mutation scheduled for application. All node instances
// sharing the same node data apply an effect once.
type Effect struct {
	Commands
	key string
}

// NewEffect returns a new uniquely keyed effect.
func NewEffect(m Commands) *Effect {
	return &Effect{
		Commands: m,
		key:      xid.New().String(),
	}
}

// Key returns unique key of the effect.
func (e *Effect) Key() string {
	return e.key
}

// Update applies effect to node's commands stored in directed score and
// replays the resulting list on the param. Nil param only updates commands.
func (e *Effect) Update(d *score.Directed, n *score.Node, p *param.Param) error {
	if err := e.Validate(); err != nil {
		return err
	}
	cmds := d.UpdateCommands(n, e.ParamName, e.key, e.Apply)
	if p == nil {
		return nil
	}
	return p.Reset(cmds)
}
