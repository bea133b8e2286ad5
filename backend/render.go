package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/teranos/graphex/errors"
	grapherror "github.com/teranos/graphex/graph/error"
)

// Render fetches the visualizer document for graphID. A failure's UI message
// is the trimmed, whitespace-collapsed response body, or the HTTP status when
// the body is empty.
func (c *Client) Render(ctx context.Context, visualizer string, directed bool, graphID string) (string, error) {
	q := url.Values{}
	q.Set("visualizer_id", visualizer)
	q.Set("directed", boolParam(directed))
	q.Set("graph_id", graphID)

	req, err := http.NewRequest(http.MethodGet, c.resolve(c.ep.Render, q), nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", transportError(err, MsgNetworkFailure)
	}

	doc := string(resp.body)
	if !resp.ok() {
		msg := strings.Join(strings.Fields(doc), " ")
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.status)
		}
		return "", grapherror.Newf(grapherror.CategoryTransport, msg, "render: HTTP %d", resp.status).
			WithSubcategory(grapherror.SubcategoryTransportStatus).
			WithContext("status", resp.status)
	}
	return doc, nil
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
