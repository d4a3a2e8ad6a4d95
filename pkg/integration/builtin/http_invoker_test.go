package builtin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/flow-engine/pkg/core/integration"
)

func invoke(t *testing.T, inputs, creds map[string]any) (*integration.InvocationResult, error) {
	t.Helper()
	return NewHTTPInvoker(nil).Invoke(context.Background(), &integration.InvocationRequest{
		OperationID: "http",
		Inputs:      inputs,
		Credentials: creds,
	})
}

func TestHTTPInvoker_JSONObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "42", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"示例","count":3}`))
	}))
	defer server.Close()

	result, err := invoke(t, map[string]any{
		"url":   server.URL,
		"query": map[string]any{"limit": 42},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "示例", result.Outputs["name"])
	assert.Equal(t, float64(3), result.Outputs["count"])
}

func TestHTTPInvoker_JSONArrayWrapsItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"2"},{"id":"1"}]`))
	}))
	defer server.Close()

	result, err := invoke(t, map[string]any{"url": server.URL}, nil)
	require.NoError(t, err)

	items, err := result.ItemList()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "2", items[0]["id"])
}

func TestHTTPInvoker_PostJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "标题", payload["title"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	result, err := invoke(t, map[string]any{
		"url":    server.URL,
		"method": "POST",
		"body":   map[string]any{"title": "标题"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, result.Outputs["ok"])
}

func TestHTTPInvoker_CredentialHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "tenant-1", r.Header.Get("X-Tenant"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := invoke(t, map[string]any{"url": server.URL}, map[string]any{
		"authorization": "Bearer secret-token",
		"headers":       map[string]any{"X-Tenant": "tenant-1"},
	})
	require.NoError(t, err)
}

func TestHTTPInvoker_ErrorStatusCarriesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"上游不可用"}`))
	}))
	defer server.Close()

	_, err := invoke(t, map[string]any{"url": server.URL}, nil)
	require.Error(t, err)

	var invErr *integration.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, invErr.Message, "502")
	assert.Contains(t, invErr.Response, "上游不可用")
}

func TestHTTPInvoker_HTMLSelectors(t *testing.T) {
	page := `<html><body>
		<h1 class="title"> 页面标题 </h1>
		<a id="home" href="/home">首页</a>
		<ul class="feed">
			<li class="entry" data-id="9"><span class="name">条目九</span><a href="/e/9">打开</a></li>
			<li class="entry" data-id="8"><span class="name">条目八</span><a href="/e/8">打开</a></li>
		</ul>
	</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	result, err := invoke(t, map[string]any{
		"url":   server.URL,
		"parse": "html",
		"selectors": map[string]any{
			"title":     "h1.title",
			"home_link": "a#home@href",
		},
		"items_selector": "ul.feed li.entry",
		"item_fields": map[string]any{
			"id":   ".@data-id",
			"name": "span.name",
			"link": "a@href",
		},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "页面标题", result.Outputs["title"])
	assert.Equal(t, "/home", result.Outputs["home_link"])

	items, err := result.ItemList()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "9", items[0]["id"])
	assert.Equal(t, "条目九", items[0]["name"])
	assert.Equal(t, "/e/9", items[0]["link"])
}

func TestHTTPInvoker_MissingURL(t *testing.T) {
	_, err := invoke(t, map[string]any{}, nil)
	assert.Error(t, err)
}
