package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/teranos/graphex/errors"
	"github.com/teranos/graphex/graph"
	grapherror "github.com/teranos/graphex/graph/error"
	"github.com/teranos/graphex/internal/util"
	"github.com/teranos/graphex/logger"
)

// Load protocol messages.
const (
	MsgInvalidLoadShape = "Invalid graph response shape; expected { ok, graph_id, graph: {nodes, edges} }."
	MsgMissingGraphID   = "Missing graph_id in load response."
	MsgNetworkFailure   = "Network request failed."
	MsgRequestFailed    = "Request failed."
)

// LoadMeta is the optional metadata of a load reply.
type LoadMeta struct {
	NodeCount *int
	EdgeCount *int
	Filename  string
}

// LoadResult is a successful upload.
type LoadResult struct {
	GraphID string
	Graph   *graph.Graph
	Meta    LoadMeta
}

// Reply is the outcome of a JSON command: search, filter, reset or console.
// Message is always set and suitable for the console. Graph is set only when
// the reply carried a well-formed graph.
type Reply struct {
	OK      bool
	Status  int
	Message string
	Graph   *graph.Graph
}

// Load uploads a graph file. Errors are *grapherror.GraphError whose UI
// message describes the failure.
func (c *Client) Load(ctx context.Context, filename string, data []byte) (*LoadResult, error) {
	resp, err := c.postFile(ctx, c.ep.Load, filename, data)
	if err != nil {
		return nil, transportError(err, MsgNetworkFailure)
	}

	payload := decodeObject(resp.body)

	if !resp.ok() {
		msg := stringField(payload, "error")
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.status)
		}
		return nil, grapherror.Newf(grapherror.CategoryTransport, msg, "load: HTTP %d", resp.status).
			WithSubcategory(grapherror.SubcategoryTransportStatus).
			WithContext("status", resp.status)
	}

	var okFlag bool
	if payload == nil || json.Unmarshal(payload["ok"], &okFlag) != nil || !okFlag || !graph.Validate(payload["graph"]) {
		return nil, protocolError(grapherror.SubcategoryProtocolShape, MsgInvalidLoadShape)
	}

	graphID := stringField(payload, "graph_id")
	if graphID == "" {
		return nil, protocolError(grapherror.SubcategoryProtocolMissingGraphID, MsgMissingGraphID)
	}

	g, err := graph.Normalize(payload["graph"])
	if err != nil {
		return nil, grapherror.New(grapherror.CategoryProtocol, errors.Mark(err, errors.ErrProtocol), MsgInvalidLoadShape).
			WithSubcategory(grapherror.SubcategoryProtocolShape)
	}

	return &LoadResult{GraphID: graphID, Graph: g, Meta: decodeMeta(payload["meta"])}, nil
}

// Search runs a server-side search of graphID.
func (c *Client) Search(ctx context.Context, graphID, query string) (*Reply, error) {
	return c.command(ctx, c.ep.Search, map[string]interface{}{
		"graph_id": graphID,
		"query":    query,
	})
}

// Filter runs a server-side attribute filter of graphID.
func (c *Client) Filter(ctx context.Context, graphID, attribute, operator, value string) (*Reply, error) {
	return c.command(ctx, c.ep.Filter, map[string]interface{}{
		"graph_id":  graphID,
		"attribute": attribute,
		"operator":  operator,
		"value":     value,
	})
}

// Reset asks the backend to restore graphID to its loaded state.
func (c *Client) Reset(ctx context.Context, graphID string) (*Reply, error) {
	return c.command(ctx, c.ep.Reset, map[string]interface{}{
		"graph_id": graphID,
	})
}

// Execute runs a console command. An empty graphID is sent as null.
func (c *Client) Execute(ctx context.Context, graphID, command string) (*Reply, error) {
	var id interface{}
	if graphID != "" {
		id = graphID
	}
	return c.command(ctx, c.ep.Console, map[string]interface{}{
		"graph_id": id,
		"command":  command,
	})
}

// command posts a JSON body. The Reply is always returned; the error is set
// when the reply is not a success and carries the same message.
func (c *Client) command(ctx context.Context, path string, body map[string]interface{}) (*Reply, error) {
	resp, err := c.postJSON(ctx, path, body)
	if err != nil {
		return &Reply{Message: MsgRequestFailed}, transportError(err, MsgRequestFailed)
	}

	payload := decodeObject(resp.body)
	reply := &Reply{
		OK:      resp.ok(),
		Status:  resp.status,
		Message: normalizeMessage(resp.status, payload),
	}

	if !reply.OK {
		return reply, grapherror.Newf(grapherror.CategoryTransport, reply.Message, "%s: HTTP %d", path, resp.status).
			WithSubcategory(grapherror.SubcategoryTransportStatus).
			WithContext("status", resp.status)
	}

	if raw, ok := payload["graph"]; ok && !isNull(raw) {
		g, err := graph.Normalize(raw)
		if err != nil {
			c.log.Debugw("reply graph ignored", logger.FieldEndpoint, path, logger.FieldError, err)
		} else {
			reply.Graph = g
		}
	}
	return reply, nil
}

// normalizeMessage picks the message field, then the error field, then a
// status line.
func normalizeMessage(status int, payload map[string]json.RawMessage) string {
	if msg := stringField(payload, "message"); msg != "" {
		return msg
	}
	if msg := stringField(payload, "error"); msg != "" {
		return msg
	}
	if status > 0 {
		return fmt.Sprintf("Request failed (HTTP %d).", status)
	}
	return MsgRequestFailed
}

func protocolError(sub, msg string) *grapherror.GraphError {
	return grapherror.New(grapherror.CategoryProtocol, errors.Wrap(errors.ErrProtocol, msg), msg).
		WithSubcategory(sub)
}

// decodeObject returns the top-level fields of a JSON object body, nil if the
// body is not one.
func decodeObject(body []byte) map[string]json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil
	}
	return obj
}

// stringField returns a trimmed string field, "" when absent or not a string.
func stringField(obj map[string]json.RawMessage, key string) string {
	var s string
	if err := json.Unmarshal(obj[key], &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func decodeMeta(raw json.RawMessage) LoadMeta {
	var wire struct {
		NodeCount *float64 `json:"node_count"`
		EdgeCount *float64 `json:"edge_count"`
		Filename  *string  `json:"filename"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return LoadMeta{}
	}
	return LoadMeta{
		NodeCount: count(wire.NodeCount),
		EdgeCount: count(wire.EdgeCount),
		Filename:  util.Deref(wire.Filename, ""),
	}
}

func count(f *float64) *int {
	if f == nil || math.IsInf(*f, 0) || math.IsNaN(*f) {
		return nil
	}
	return util.Ptr(int(*f))
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
