package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/graphex/errors"
	grapherror "github.com/teranos/graphex/graph/error"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "ftp://example.com"})
	require.Error(t, err)

	c, err := New(Options{BaseURL: "http://localhost:8000/platform"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/platform/api/graph/load/", c.resolve(DefaultLoadPath, nil))
}

func TestLoad_Success(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultLoadPath, r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "graphex/"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "g.json", hdr.Filename)
		assert.Equal(t, `{"nodes":[]}`, string(data))

		writeJSON(w, http.StatusOK, `{
			"ok": true,
			"graph_id": "abc",
			"graph": {"nodes": [{"id": "n1"}], "edges": []},
			"meta": {"node_count": 1, "edge_count": 0, "filename": "g.json"}
		}`)
	}))

	res, err := c.Load(context.Background(), "g.json", []byte(`{"nodes":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", res.GraphID)
	assert.True(t, res.Graph.Has("n1"))
	require.NotNil(t, res.Meta.NodeCount)
	assert.Equal(t, 1, *res.Meta.NodeCount)
	assert.Equal(t, 0, *res.Meta.EdgeCount)
	assert.Equal(t, "g.json", res.Meta.Filename)
}

func TestLoad_ToleratesNonObjectEntries(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{
			"ok": true,
			"graph_id": "abc",
			"graph": {"nodes": [{"id": "a"}, "b"], "edges": [null, {"source": "a", "target": "b"}]}
		}`)
	}))

	res, err := c.Load(context.Background(), "g.json", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Graph.NodeIDs())
	assert.Equal(t, 2, res.Graph.EdgeCount())
}

func TestCommand_GraphWithNonObjectEntriesKept(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"message":"ok","graph":{"nodes":[{"id":1.0},7],"edges":["x"]}}`)
	}))

	reply, err := c.Search(context.Background(), "g1", "x")
	require.NoError(t, err)
	require.NotNil(t, reply.Graph)
	assert.True(t, reply.Graph.Has("1"))
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		category grapherror.Category
		message  string
	}{
		{"error field", http.StatusBadRequest, `{"error":"Unsupported file type"}`, grapherror.CategoryTransport, "Unsupported file type"},
		{"status only", http.StatusInternalServerError, `oops`, grapherror.CategoryTransport, "HTTP 500"},
		{"ok false", http.StatusOK, `{"ok":false,"graph_id":"x","graph":{"nodes":[],"edges":[]}}`, grapherror.CategoryProtocol, MsgInvalidLoadShape},
		{"bad graph", http.StatusOK, `{"ok":true,"graph_id":"x","graph":{"nodes":{}}}`, grapherror.CategoryProtocol, MsgInvalidLoadShape},
		{"not json", http.StatusOK, `<html>`, grapherror.CategoryProtocol, MsgInvalidLoadShape},
		{"missing graph id", http.StatusOK, `{"ok":true,"graph":{"nodes":[],"edges":[]}}`, grapherror.CategoryProtocol, MsgMissingGraphID},
		{"numeric graph id", http.StatusOK, `{"ok":true,"graph_id":5,"graph":{"nodes":[],"edges":[]}}`, grapherror.CategoryProtocol, MsgMissingGraphID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))

			res, err := c.Load(context.Background(), "g.json", []byte("x"))
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, grapherror.IsCategory(err, tt.category))
			assert.Equal(t, tt.message, grapherror.Message(err))
		})
	}
}

func TestLoad_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	srv.Close()

	_, err = c.Load(context.Background(), "g.json", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTransport))
	assert.Equal(t, MsgNetworkFailure, grapherror.Message(err))
}

func TestCommand_MessageNormalization(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		ok      bool
		message string
	}{
		{"message wins", http.StatusOK, `{"message":" Found 2 nodes ","error":"ignored"}`, true, "Found 2 nodes"},
		{"error next", http.StatusBadRequest, `{"error":"unknown operator"}`, false, "unknown operator"},
		{"blank fields fall through", http.StatusNotFound, `{"message":"  ","error":3}`, false, "Request failed (HTTP 404)."},
		{"non json", http.StatusOK, `done`, true, "Request failed (HTTP 200)."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))

			reply, err := c.Search(context.Background(), "g1", "router")
			require.NotNil(t, reply)
			assert.Equal(t, tt.ok, reply.OK)
			assert.Equal(t, tt.message, reply.Message)
			assert.Equal(t, tt.ok, err == nil)
		})
	}
}

func TestCommand_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	srv.Close()

	reply, err := c.Execute(context.Background(), "", "help")
	require.Error(t, err)
	assert.False(t, reply.OK)
	assert.Equal(t, "Request failed.", reply.Message)
}

func TestCommand_Bodies(t *testing.T) {
	var got []map[string]interface{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["_path"] = r.URL.Path
		got = append(got, body)
		writeJSON(w, http.StatusOK, `{"message":"ok","graph":{"nodes":[{"id":"a"}],"edges":[]}}`)
	}))
	ctx := context.Background()

	reply, err := c.Filter(ctx, "g1", "type", "==", "server")
	require.NoError(t, err)
	assert.True(t, reply.Graph.Has("a"))

	_, err = c.Reset(ctx, "g1")
	require.NoError(t, err)
	_, err = c.Execute(ctx, "", "stats")
	require.NoError(t, err)
	_, err = c.Search(ctx, "g1", "db")
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Equal(t, map[string]interface{}{
		"_path": DefaultFilterPath, "graph_id": "g1", "attribute": "type", "operator": "==", "value": "server",
	}, got[0])
	assert.Equal(t, map[string]interface{}{"_path": DefaultResetPath, "graph_id": "g1"}, got[1])
	assert.Equal(t, map[string]interface{}{"_path": DefaultConsolePath, "graph_id": nil, "command": "stats"}, got[2])
	assert.Equal(t, map[string]interface{}{"_path": DefaultSearchPath, "graph_id": "g1", "query": "db"}, got[3])
}

func TestCommand_InvalidGraphIgnored(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"message":"ok","graph":{"nodes":[]}}`)
	}))

	reply, err := c.Search(context.Background(), "g1", "x")
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.Nil(t, reply.Graph)
}

func TestRender(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultRenderPath, r.URL.Path)
		assert.Equal(t, "text/html", r.Header.Get("Accept"))
		q := r.URL.Query()
		if q.Get("visualizer_id") == "broken" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "  plugin\n\n crashed\t ")
			return
		}
		if q.Get("visualizer_id") == "silent" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, "<html>"+q.Get("visualizer_id")+" "+q.Get("directed")+" "+q.Get("graph_id")+"</html>")
	}))
	ctx := context.Background()

	doc, err := c.Render(ctx, "simple", true, "g1")
	require.NoError(t, err)
	assert.Equal(t, "<html>simple 1 g1</html>", doc)

	doc, err = c.Render(ctx, "block", false, "g1")
	require.NoError(t, err)
	assert.Equal(t, "<html>block 0 g1</html>", doc)

	_, err = c.Render(ctx, "broken", true, "g1")
	assert.Equal(t, "plugin crashed", grapherror.Message(err))

	_, err = c.Render(ctx, "silent", true, "g1")
	assert.Equal(t, "HTTP 500", grapherror.Message(err))
}

func TestRateLimiterHonorsContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	}))
	c.limiter.SetLimit(0.001)
	c.limiter.SetBurst(1)

	_, err := c.Search(context.Background(), "g", "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	reply, err := c.Search(ctx, "g", "b")
	require.Error(t, err)
	assert.Equal(t, MsgRequestFailed, reply.Message)
}
