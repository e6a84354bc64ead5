package mediator

// DefaultMaxRounds bounds the number of tool-call rounds per run.
const DefaultMaxRounds = 5

// DefaultInstructions is the system prompt shipped with the agent.
const DefaultInstructions = "You are a helpful agent that can search and analyze data using Elasticsearch. " +
	"You have access to an MCP (Model Context Protocol) server that provides " +
	"Elasticsearch search capabilities. Use the search tools to help users find " +
	"and analyze data effectively."

// Option is a function that can be used to modify the Mediator Config.
type Option func(*Config)

// Config holds the per-mediator settings.
type Config struct {
	// Name of the agent, used in logs and metrics.
	Name string
	// Instructions is the system prompt.
	Instructions string
	// MaxRounds is the maximum number of tool-call rounds per run.
	MaxRounds int
	// CallbackHandler receives loop events.
	CallbackHandler Callback
}

// NewConfig returns the Config with defaults applied.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Name:         "elasticsearch-mcp-agent",
		Instructions: DefaultInstructions,
		MaxRounds:    DefaultMaxRounds,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithName sets the agent name.
func WithName(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.Name = name
		}
	}
}

// WithInstructions sets the system prompt.
func WithInstructions(instructions string) Option {
	return func(c *Config) {
		if instructions != "" {
			c.Instructions = instructions
		}
	}
}

// WithMaxRounds sets the tool-call round limit.
func WithMaxRounds(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxRounds = n
		}
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(cb Callback) Option {
	return func(c *Config) {
		c.CallbackHandler = cb
	}
}
