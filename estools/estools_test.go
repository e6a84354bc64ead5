package estools_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/estools"
	"github.com/effective-security/esagent/invoker"
	"github.com/effective-security/esagent/toolset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls    atomic.Int64
	lastName string
	lastArgs map[string]any
	payload  json.RawMessage
	err      error
}

func (c *fakeClient) ListTools(ctx context.Context) ([]toolset.Descriptor, error) {
	return nil, nil
}

func (c *fakeClient) CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	c.calls.Add(1)
	c.lastName = name
	c.lastArgs = args
	return c.payload, c.err
}

func (c *fakeClient) Close() error { return nil }

func newInvoker(client *fakeClient, names ...string) *invoker.Invoker {
	var list []toolset.Descriptor
	for _, n := range names {
		list = append(list, toolset.Descriptor{Name: n})
	}
	return invoker.New(client, toolset.NewRegistry(list))
}

func Test_Search(t *testing.T) {
	client := &fakeClient{
		payload: json.RawMessage(`{"hits":{"total":{"value":2},"hits":[{"_source":{"name":"a"}},{"_source":{"name":"b"}}]}}`),
	}
	search := estools.NewSearch(newInvoker(client, estools.SearchToolName))

	res, err := search.Call(context.Background(), &estools.SearchRequest{
		Index: "galleries",
		Query: map[string]any{"match": map[string]any{"borough": "Manhattan"}},
	})
	require.NoError(t, err)
	require.True(t, res.Success())
	assert.Equal(t, estools.SearchToolName, client.lastName)
	assert.Equal(t, "galleries", client.lastArgs["index"])
	// default size applied
	assert.EqualValues(t, estools.DefaultSearchSize, client.lastArgs["size"])

	assert.EqualValues(t, 2, estools.TotalHits(res.Payload))
	sources := estools.HitSources(res.Payload)
	require.Len(t, sources, 2)
	assert.JSONEq(t, `{"name":"a"}`, string(sources[0]))
}

func Test_Search_EmptyIndex(t *testing.T) {
	client := &fakeClient{}
	search := estools.NewSearch(newInvoker(client, estools.SearchToolName))

	_, err := search.Call(context.Background(), &estools.SearchRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty index")
	assert.EqualValues(t, 0, client.calls.Load())
}

func Test_ESQL_BlockedByPolicy(t *testing.T) {
	client := &fakeClient{}
	// default policy filters out esql, so the registry never contains it
	descriptors := toolset.Filter([]toolset.Descriptor{
		{Name: estools.SearchToolName},
		{Name: estools.ESQLToolName},
	}, toolset.DefaultPolicy())
	inv := invoker.New(client, toolset.NewRegistry(descriptors))

	esql := estools.NewESQL(inv)
	_, err := esql.Call(context.Background(), &estools.ESQLRequest{Query: "FROM idx"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, invoker.ErrPolicy))
	assert.EqualValues(t, 0, client.calls.Load())
}

func Test_ESQL_EmptyQuery(t *testing.T) {
	client := &fakeClient{}
	esql := estools.NewESQL(newInvoker(client, estools.ESQLToolName))

	_, err := esql.Call(context.Background(), &estools.ESQLRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty query")
}

func Test_ListIndices(t *testing.T) {
	client := &fakeClient{
		payload: json.RawMessage(`[{"index":"galleries","health":"green"},{"index":"museums","health":"yellow"}]`),
	}
	list := estools.NewListIndices(newInvoker(client, estools.ListIndicesToolName))

	res, err := list.Call(context.Background(), &estools.ListIndicesRequest{Pattern: "*"})
	require.NoError(t, err)
	require.True(t, res.Success())
	assert.Equal(t, []string{"galleries", "museums"}, estools.IndexNames(res.Payload))
}

func Test_IndexNames_PlainList(t *testing.T) {
	payload := json.RawMessage(`["galleries","museums"]`)
	assert.Equal(t, []string{"galleries", "museums"}, estools.IndexNames(payload))
}

func Test_TotalHits_LegacyForm(t *testing.T) {
	assert.EqualValues(t, 7, estools.TotalHits(json.RawMessage(`{"hits":{"total":7}}`)))
	assert.EqualValues(t, 0, estools.TotalHits(json.RawMessage(`{}`)))
}

func Test_Descriptor(t *testing.T) {
	client := &fakeClient{}
	mappings := estools.NewGetMappings(newInvoker(client, estools.GetMappingsToolName))

	d, err := mappings.Descriptor()
	require.NoError(t, err)
	assert.Equal(t, estools.GetMappingsToolName, d.Name)
	assert.NotEmpty(t, d.Description)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(d.InputSchema, &schema))
	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "index")
}
