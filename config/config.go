// Package config loads and validates the agent configuration.
package config

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/esagent/mediator"
	"github.com/effective-security/esagent/toolset"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// DefaultAPIVersion is the Azure OpenAI API version used when not set.
const DefaultAPIVersion = "2024-10-21"

// Config is the top-level agent configuration.
type Config struct {
	MCP   MCPConfig   `json:"mcp" yaml:"mcp"`
	Azure AzureConfig `json:"azure" yaml:"azure"`
	Agent AgentConfig `json:"agent" yaml:"agent"`
	Store StoreConfig `json:"store,omitempty" yaml:"store,omitempty"`
}

// MCPConfig describes the MCP server connection.
type MCPConfig struct {
	// ServerURL is the MCP endpoint, e.g. https://xxx.devtunnels.ms/mcp
	ServerURL string `json:"server_url" yaml:"server_url" validate:"required,url"`
	// DevTunnelAccessToken authenticates DevTunnel-hosted servers.
	DevTunnelAccessToken string `json:"devtunnel_access_token,omitempty" yaml:"devtunnel_access_token,omitempty"`
	// TimeoutSeconds bounds each tool call.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// AzureConfig describes the model deployment.
type AzureConfig struct {
	// ProjectEndpoint is the Azure AI project endpoint.
	ProjectEndpoint string `json:"project_endpoint" yaml:"project_endpoint" validate:"required,startswith=https://"`
	// ModelDeploymentName is the deployment to use, e.g. gpt-4o.
	ModelDeploymentName string `json:"model_deployment_name" yaml:"model_deployment_name" validate:"required"`
	// APIVersion of the Azure OpenAI API.
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	// Token is the bearer token or API key.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

// AgentConfig describes the agent behavior.
type AgentConfig struct {
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	// ExcludedTools are filtered out of the registry. When unset, the
	// default exclusion applies.
	ExcludedTools []string `json:"excluded_tools,omitempty" yaml:"excluded_tools,omitempty"`
	// IncludedTools restricts the registry to the listed tools.
	IncludedTools []string `json:"included_tools,omitempty" yaml:"included_tools,omitempty"`
	// MaxToolRounds bounds tool-call rounds per question.
	MaxToolRounds int `json:"max_tool_rounds,omitempty" yaml:"max_tool_rounds,omitempty"`
}

// StoreConfig describes the optional transcript store.
type StoreConfig struct {
	// RedisAddr enables the Redis-backed store, e.g. localhost:6379.
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

var validate = validator.New()

// Load reads the configuration from file, expanding environment
// variables, and validates it.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.WithMessage(err, "invalid configuration")
	}
	return nil
}

func (c *Config) withDefaults() {
	if c.Azure.APIVersion == "" {
		c.Azure.APIVersion = DefaultAPIVersion
	}
	if c.Agent.Name == "" {
		c.Agent.Name = "elasticsearch-mcp-agent"
	}
	if c.Agent.Instructions == "" {
		c.Agent.Instructions = mediator.DefaultInstructions
	}
	if c.Agent.ExcludedTools == nil {
		c.Agent.ExcludedTools = []string{toolset.DefaultExcludedTool}
	}
	if c.Agent.MaxToolRounds <= 0 {
		c.Agent.MaxToolRounds = mediator.DefaultMaxRounds
	}
}

// FilterPolicy returns the tool filter derived from the configuration.
func (c *Config) FilterPolicy() toolset.FilterPolicy {
	return toolset.FilterPolicy{
		Exclude: c.Agent.ExcludedTools,
		Include: c.Agent.IncludedTools,
	}
}
