package toolset

import (
	"strings"
)

// DefaultExcludedTool is the single tool name excluded by the shipped
// default policy.
const DefaultExcludedTool = "esql"

// FilterPolicy is the exclusion policy applied to a discovered registry
// before tools are presented to the model. Exclusion always wins when a
// name appears in both sets: this is a safety control, not a convenience
// default.
type FilterPolicy struct {
	// Exclude lists tool names that must never be exposed.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	// Include, when non-empty, restricts the exposed set to these names.
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
}

// DefaultPolicy returns the shipped policy, excluding only DefaultExcludedTool.
func DefaultPolicy() FilterPolicy {
	return FilterPolicy{
		Exclude: []string{DefaultExcludedTool},
	}
}

// Allows reports whether the policy permits the tool name.
func (p FilterPolicy) Allows(name string) bool {
	if containsFold(p.Exclude, name) {
		return false
	}
	if len(p.Include) > 0 {
		return containsFold(p.Include, name)
	}
	return true
}

// Filter returns the descriptors permitted by the policy, preserving the
// relative order of the input. It does not mutate its inputs.
func Filter(list []Descriptor, policy FilterPolicy) []Descriptor {
	out := make([]Descriptor, 0, len(list))
	for _, d := range list {
		if policy.Allows(d.Name) {
			out = append(out, d)
		}
	}
	return out
}

func containsFold(list []string, name string) bool {
	for _, v := range list {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}
