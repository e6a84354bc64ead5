// Package estools provides typed wrappers over the Elasticsearch tools
// exposed by the MCP server. Each wrapper validates and normalizes its
// request before handing it to the invoker, which enforces the tool policy.
package estools

import (
	"context"
	"encoding/json"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/invoker"
	"github.com/effective-security/esagent/toolset"
	"github.com/invopop/jsonschema"
)

// Tool is a typed wrapper over one MCP tool.
type Tool[I any] struct {
	name        string
	description string
	inv         *invoker.Invoker

	// normalize adjusts the marshaled arguments before dispatch.
	normalize func([]byte) ([]byte, error)
}

func newTool[I any](inv *invoker.Invoker, name, description string) *Tool[I] {
	return &Tool[I]{
		name:        name,
		description: description,
		inv:         inv,
	}
}

// Name returns the tool name as registered on the MCP server.
func (t *Tool[I]) Name() string {
	return t.name
}

// Description returns the tool description.
func (t *Tool[I]) Description() string {
	return t.description
}

// Parameters returns the JSON schema of the request type.
func (t *Tool[I]) Parameters() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	return r.Reflect(new(I))
}

// Descriptor renders the tool as a registry descriptor.
func (t *Tool[I]) Descriptor() (toolset.Descriptor, error) {
	schema, err := json.Marshal(t.Parameters())
	if err != nil {
		return toolset.Descriptor{}, errors.Wrap(err, "failed to marshal schema")
	}
	return toolset.Descriptor{
		Name:        t.name,
		Description: t.description,
		InputSchema: schema,
	}, nil
}

// Call dispatches the typed request through the invoker. Policy violations
// are returned as errors; remote failures come back as the Result.
func (t *Tool[I]) Call(ctx context.Context, req *I) (invoker.Result, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return invoker.Result{}, errors.Wrap(err, "failed to marshal request")
	}
	if t.normalize != nil {
		data, err = t.normalize(data)
		if err != nil {
			return invoker.Result{}, err
		}
	}

	args := map[string]any{}
	if err := ljson.Unmarshal(data, &args); err != nil {
		return invoker.Result{}, errors.Wrap(err, "failed to convert request")
	}
	return t.inv.Invoke(ctx, t.name, args)
}
