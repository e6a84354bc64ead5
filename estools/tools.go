package estools

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/invoker"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Tool names as registered by the Elasticsearch MCP server.
const (
	SearchToolName      = "search"
	ListIndicesToolName = "list_indices"
	GetMappingsToolName = "get_mappings"
	GetShardsToolName   = "get_shards"
	ESQLToolName        = "esql"
)

// DefaultSearchSize is applied when a search request does not set one.
const DefaultSearchSize = 10

// SearchRequest is the input of the search tool.
type SearchRequest struct {
	Index string `json:"index" jsonschema:"title=Index,description=The index or index pattern to search."`
	Query any    `json:"query,omitempty" jsonschema:"title=Query,description=The Elasticsearch Query DSL body."`
	Size  int    `json:"size,omitempty" jsonschema:"title=Size,description=The maximum number of hits to return."`
}

// ListIndicesRequest is the input of the list_indices tool.
type ListIndicesRequest struct {
	Pattern string `json:"index_pattern,omitempty" jsonschema:"title=Pattern,description=The index pattern to match."`
}

// GetMappingsRequest is the input of the get_mappings tool.
type GetMappingsRequest struct {
	Index string `json:"index" jsonschema:"title=Index,description=The index to get mappings for."`
}

// GetShardsRequest is the input of the get_shards tool.
type GetShardsRequest struct {
	Index string `json:"index,omitempty" jsonschema:"title=Index,description=The index to get shard information for."`
}

// ESQLRequest is the input of the esql tool.
// The tool is excluded by the default policy, calls fail unless the
// policy is configured to allow it.
type ESQLRequest struct {
	Query string `json:"query" jsonschema:"title=Query,description=The ES|QL query to execute."`
}

// NewSearch returns the search tool. An unset size falls back to
// DefaultSearchSize.
func NewSearch(inv *invoker.Invoker) *Tool[SearchRequest] {
	t := newTool[SearchRequest](inv, SearchToolName,
		"Search an Elasticsearch index using the Query DSL.")
	t.normalize = func(data []byte) ([]byte, error) {
		if gjson.GetBytes(data, "index").String() == "" {
			return nil, errors.New("invalid request: empty index")
		}
		if gjson.GetBytes(data, "size").Int() <= 0 {
			var err error
			data, err = sjson.SetBytes(data, "size", DefaultSearchSize)
			if err != nil {
				return nil, errors.Wrap(err, "failed to set size")
			}
		}
		return data, nil
	}
	return t
}

// NewListIndices returns the list_indices tool.
func NewListIndices(inv *invoker.Invoker) *Tool[ListIndicesRequest] {
	return newTool[ListIndicesRequest](inv, ListIndicesToolName,
		"List the Elasticsearch indices matching a pattern.")
}

// NewGetMappings returns the get_mappings tool.
func NewGetMappings(inv *invoker.Invoker) *Tool[GetMappingsRequest] {
	t := newTool[GetMappingsRequest](inv, GetMappingsToolName,
		"Get the field mappings of an Elasticsearch index.")
	t.normalize = func(data []byte) ([]byte, error) {
		if gjson.GetBytes(data, "index").String() == "" {
			return nil, errors.New("invalid request: empty index")
		}
		return data, nil
	}
	return t
}

// NewGetShards returns the get_shards tool.
func NewGetShards(inv *invoker.Invoker) *Tool[GetShardsRequest] {
	return newTool[GetShardsRequest](inv, GetShardsToolName,
		"Get the shard allocation of Elasticsearch indices.")
}

// NewESQL returns the esql tool.
func NewESQL(inv *invoker.Invoker) *Tool[ESQLRequest] {
	t := newTool[ESQLRequest](inv, ESQLToolName,
		"Execute an ES|QL query.")
	t.normalize = func(data []byte) ([]byte, error) {
		if gjson.GetBytes(data, "query").String() == "" {
			return nil, errors.New("invalid request: empty query")
		}
		return data, nil
	}
	return t
}
