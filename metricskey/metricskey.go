package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	StatsModelCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_model_calls_succeeded",
		Help:         "stats_model_calls_succeeded provides total model calls succeeded",
		RequiredTags: []string{"agent", "model"},
	}

	StatsModelCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_model_calls_failed",
		Help:         "stats_model_calls_failed provides total model calls failed",
		RequiredTags: []string{"agent", "model"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	// StatsToolCallsRejected counts policy rejections: attempts to call a
	// filtered-out or unknown tool. These are contract violations, kept
	// separate from genuine remote failures.
	StatsToolCallsRejected = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_rejected",
		Help:         "stats_tool_calls_rejected provides total tool calls rejected by policy",
		RequiredTags: []string{"tool"},
	}

	StatsSessionsOpened = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_sessions_opened",
		Help:         "stats_sessions_opened provides total sessions opened",
		RequiredTags: []string{"agent"},
	}

	StatsSessionsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_sessions_failed",
		Help:         "stats_sessions_failed provides total sessions ended with failure",
		RequiredTags: []string{"agent"},
	}

	StatsRoundLimitExceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_round_limit_exceeded",
		Help:         "stats_round_limit_exceeded provides total sessions hitting the round limit",
		RequiredTags: []string{"agent"},
	}
)

// Perf
var (
	PerfModelCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_model_call",
		Help:         "perf_model_call provides duration of model call",
		RequiredTags: []string{"agent", "model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfSessionRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_session_run",
		Help:         "perf_session_run provides duration of one conversation run",
		RequiredTags: []string{"agent"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfModelCall,
	&PerfSessionRun,
	&PerfToolCall,
	&StatsModelCallsFailed,
	&StatsModelCallsSucceeded,
	&StatsRoundLimitExceeded,
	&StatsSessionsFailed,
	&StatsSessionsOpened,
	&StatsToolCallsFailed,
	&StatsToolCallsRejected,
	&StatsToolCallsSucceeded,
}
