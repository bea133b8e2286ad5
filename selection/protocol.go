package selection

import (
	"bytes"
	"encoding/json"

	"github.com/teranos/graphex/errors"
)

// Messages exchanged with the embedded visual surface.
//
// Outbound (workspace to surface):
//
//	selectNode   {nodeId: id|null}  highlight id, or clear the highlight
//	focusNode    {nodeId: id}       bring id into view
//
// Inbound (surface to workspace):
//
//	nodeSelected {nodeId: id}       the user picked a node inside the surface

// MsgType identifies the message kind.
type MsgType string

const (
	MsgSelectNode   MsgType = "selectNode"
	MsgFocusNode    MsgType = "focusNode"
	MsgNodeSelected MsgType = "nodeSelected"
)

// Msg is the envelope of every surface message. NodeID is nil for a cleared
// selection.
type Msg struct {
	Type   MsgType `json:"type"`
	NodeID *string `json:"nodeId"`
}

// SelectNode builds a selectNode message; an empty id clears.
func SelectNode(id string) Msg {
	if id == "" {
		return Msg{Type: MsgSelectNode}
	}
	return Msg{Type: MsgSelectNode, NodeID: &id}
}

// FocusNode builds a focusNode message.
func FocusNode(id string) Msg {
	return Msg{Type: MsgFocusNode, NodeID: &id}
}

// NodeSelected builds a nodeSelected message.
func NodeSelected(id string) Msg {
	return Msg{Type: MsgNodeSelected, NodeID: &id}
}

// ID returns the node id, or "" when absent.
func (m Msg) ID() string {
	if m.NodeID == nil {
		return ""
	}
	return *m.NodeID
}

// UnmarshalJSON accepts nodeId as a string or a number; numbers keep their
// literal text.
func (m *Msg) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type   MsgType         `json:"type"`
		NodeID json.RawMessage `json:"nodeId"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return errors.Wrap(errors.ErrProtocol, err.Error())
	}
	*m = Msg{Type: wire.Type}

	raw := bytes.TrimSpace(wire.NodeID)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return errors.Wrap(errors.ErrProtocol, err.Error())
		}
		m.NodeID = &s
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		s := string(raw)
		m.NodeID = &s
	default:
		return errors.Wrapf(errors.ErrProtocol, "nodeId must be a string or number, got %s", raw)
	}
	return nil
}

// Channel delivers messages to one mounted surface. Channels are compared by
// identity: a message is only trusted if it came from the channel that is
// currently mounted.
type Channel interface {
	Send(msg Msg) error
}

// Surface resolves the currently mounted channel, nil when nothing is mounted.
type Surface interface {
	Current() Channel
}
