package graph

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/teranos/graphex/errors"
)

// PreferredKeys are shown first when a node is summarized.
var PreferredKeys = []string{"label", "name", "type", "status", "group"}

// Node is an entity of the loaded graph. Identity is the string form of the
// input id; every other key is kept as a display attribute in input order.
type Node struct {
	ID    string
	Attrs []Attr

	rawID json.RawMessage
}

// Attr is one display attribute of a node.
type Attr struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Edge connects two nodes. Source and Target are empty when the endpoint was
// neither an identifier nor an object carrying one.
type Edge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// NewNode builds a node from Go values. Attribute values are JSON encoded;
// unencodable values are dropped.
func NewNode(id string, attrs ...Attr) Node {
	n := Node{ID: id}
	for _, a := range attrs {
		if a.Key == "id" || len(a.Value) == 0 {
			continue
		}
		n.Attrs = append(n.Attrs, a)
	}
	return n
}

// A builds an attribute from a Go value.
func A(key string, value interface{}) Attr {
	raw, err := json.Marshal(value)
	if err != nil {
		return Attr{Key: key}
	}
	return Attr{Key: key, Value: raw}
}

// Get returns the attribute named key.
func (n Node) Get(key string) (Attr, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a, true
		}
	}
	return Attr{}, false
}

// Label returns the node's label attribute as text, or "".
func (n Node) Label() string {
	a, ok := n.Get("label")
	if !ok || a.IsNull() {
		return ""
	}
	return a.Text()
}

// IsNull reports whether the attribute value is JSON null or absent.
func (a Attr) IsNull() bool {
	v := bytes.TrimSpace(a.Value)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

// Text renders the value for display: strings unquoted, everything else as
// compact JSON.
func (a Attr) Text() string {
	v := bytes.TrimSpace(a.Value)
	if len(v) > 0 && v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}

// UnmarshalJSON decodes a node object keeping attribute key order.
func (n *Node) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "node")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Newf("node must be an object, got %s", firstToken(data))
	}

	*n = Node{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "node key")
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "node attribute %q", key)
		}

		if key == "id" {
			n.rawID = raw
			n.ID = identifier(raw)
			continue
		}
		n.Attrs = append(n.Attrs, Attr{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return errors.Wrap(err, "node end")
	}
	return nil
}

// MarshalJSON encodes the node with id first and attributes in input order.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	id := n.rawID
	if len(id) == 0 {
		id, _ = json.Marshal(n.ID)
	}
	buf.WriteString(`"id":`)
	buf.Write(id)

	for _, a := range n.Attrs {
		key, _ := json.Marshal(a.Key)
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		if len(a.Value) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(a.Value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an edge whose endpoints are identifiers or {id}
// objects.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.Newf("edge must be an object, got %s", firstToken(data))
	}
	if fields == nil {
		return errors.New("edge must be an object, got null")
	}
	*e = Edge{
		ID:     identifier(fields["id"]),
		Source: endpoint(fields["source"]),
		Target: endpoint(fields["target"]),
	}
	return nil
}

// identifier returns the string form of a JSON scalar: strings unquoted and
// numbers in shortest decimal form, so 1, 1.0 and 1e0 are the same id. Null
// and absent values yield "".
func identifier(raw json.RawMessage) string {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	if v[0] == '-' || (v[0] >= '0' && v[0] <= '9') {
		return canonicalNumber(string(v))
	}
	return string(v)
}

// canonicalNumber formats a finite JSON number without exponent or trailing
// zeros. Anything unparseable keeps its literal text.
func canonicalNumber(lit string) string {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return lit
	}
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// isObject reports whether raw holds a JSON object.
func isObject(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	return len(v) > 0 && v[0] == '{'
}

func endpoint(raw json.RawMessage) string {
	v := bytes.TrimSpace(raw)
	if len(v) > 0 && v[0] == '{' {
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(v, &obj); err != nil {
			return ""
		}
		return identifier(obj.ID)
	}
	if len(v) > 0 && v[0] == '[' {
		return ""
	}
	return identifier(v)
}

func firstToken(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 16 {
		s = s[:16] + "..."
	}
	if s == "" {
		return "empty value"
	}
	return s
}
