// Package metrics exposes prometheus counters for session and tool
// activity. Counters register on the default registry; the chat command
// serves them over HTTP when --metrics-addr is set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsTotal counts chat sessions started.
	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "touchline_sessions_total",
		Help: "Number of chat sessions started.",
	})

	// HandoffsTotal counts agent-to-agent hand-offs across all sessions.
	HandoffsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "touchline_handoffs_total",
		Help: "Number of agent-to-agent hand-offs.",
	})

	// ToolCallsTotal counts tool executions by tool name and status.
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "touchline_tool_calls_total",
		Help: "Number of tool executions.",
	}, []string{"tool", "status"})

	// ResolutionsTotal counts fixture resolutions by outcome.
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "touchline_resolutions_total",
		Help: "Number of fixture resolution attempts by outcome.",
	}, []string{"outcome"})
)
