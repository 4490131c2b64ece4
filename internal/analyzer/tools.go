package analyzer

import (
	"math"
	"strings"

	"github.com/samber/lo"

	"github.com/vburojevic/ccw/internal/domain"
)

// ToolCalls extracts every MCP tool invocation from the transcript, in turn
// order. A fragment qualifies only when its kind marks a serialized tool
// invocation and its source type is the MCP protocol. When nameFilter is
// non-empty, calls are kept when the filter is a substring of either the
// tool name or the tool id.
func (a *Analyzer) ToolCalls(t *domain.Transcript, nameFilter string) []domain.ToolCall {
	if t == nil {
		return nil
	}

	var calls []domain.ToolCall
	for i := range t.Requests {
		turn := &t.Requests[i]
		for _, fragment := range turn.Response {
			if fragment.Kind != domain.FragmentKindToolInvocation {
				continue
			}
			if fragment.Source == nil || fragment.Source.Type != domain.SourceTypeMCP {
				continue
			}
			calls = append(calls, toolCallFromFragment(turn, fragment))
		}
	}

	if nameFilter == "" {
		return calls
	}
	return lo.Filter(calls, func(call domain.ToolCall, _ int) bool {
		return strings.Contains(call.ToolName, nameFilter) || strings.Contains(call.ToolID, nameFilter)
	})
}

func toolCallFromFragment(turn *domain.Turn, fragment domain.Fragment) domain.ToolCall {
	call := domain.ToolCall{
		ToolID:    fragment.ToolID,
		ToolName:  fragment.ToolName,
		RequestID: turn.RequestID,
		Timestamp: turn.Timestamp,
		Source:    fragment.Source,
	}
	// Either identifier may stand in for the other.
	if call.ToolID == "" {
		call.ToolID = fragment.ToolName
	}
	if call.ToolName == "" {
		call.ToolName = fragment.ToolID
	}
	if call.ToolID == "" {
		call.ToolID = "unknown"
		call.ToolName = "unknown"
	}
	if fragment.ResultDetails != nil {
		call.Input = fragment.ResultDetails.Input
		call.Output = fragment.ResultDetails.Output
		call.IsError = fragment.ResultDetails.IsError
	}
	// Raw input is the fallback when no structured input was recorded.
	if len(call.Input) == 0 && fragment.ToolSpecificData != nil {
		call.Input = fragment.ToolSpecificData.RawInput
	}
	return call
}

// SuccessfulToolCalls returns the non-erroring calls of one tool.
func (a *Analyzer) SuccessfulToolCalls(t *domain.Transcript, name string) []domain.ToolCall {
	return lo.Filter(a.ToolCalls(t, name), func(call domain.ToolCall, _ int) bool {
		return !call.IsError
	})
}

// ErrorToolCalls returns the erroring calls of one tool.
func (a *Analyzer) ErrorToolCalls(t *domain.Transcript, name string) []domain.ToolCall {
	return lo.Filter(a.ToolCalls(t, name), func(call domain.ToolCall, _ int) bool {
		return call.IsError
	})
}

// ToolNames returns the distinct tools invoked in the transcript, in first
// occurrence order.
func (a *Analyzer) ToolNames(t *domain.Transcript) []string {
	return lo.Uniq(lo.Map(a.ToolCalls(t, ""), func(call domain.ToolCall, _ int) string {
		return call.Key()
	}))
}

// MonitorTool aggregates the calls matching one tool name filter.
func (a *Analyzer) MonitorTool(t *domain.Transcript, name string) domain.ToolMonitoring {
	return monitoring(name, a.ToolCalls(t, name))
}

// MonitoringSummary aggregates every tool in the transcript, grouped by
// exact name/id key, plus the overall totals.
func (a *Analyzer) MonitoringSummary(t *domain.Transcript) domain.MonitoringSummary {
	calls := a.ToolCalls(t, "")

	var tools []domain.ToolMonitoring
	grouped := make(map[string][]domain.ToolCall)
	for _, call := range calls {
		key := call.Key()
		if _, seen := grouped[key]; !seen {
			tools = append(tools, domain.ToolMonitoring{ToolName: key})
		}
		grouped[key] = append(grouped[key], call)
	}
	for i := range tools {
		tools[i] = monitoring(tools[i].ToolName, grouped[tools[i].ToolName])
	}

	successful := lo.CountBy(calls, func(call domain.ToolCall) bool { return !call.IsError })
	return domain.MonitoringSummary{
		TotalTools:         len(tools),
		TotalCalls:         len(calls),
		OverallSuccessRate: successRate(successful, len(calls)),
		Tools:              tools,
	}
}

func monitoring(name string, calls []domain.ToolCall) domain.ToolMonitoring {
	successful := lo.CountBy(calls, func(call domain.ToolCall) bool { return !call.IsError })
	return domain.ToolMonitoring{
		ToolName:        name,
		TotalCalls:      len(calls),
		SuccessfulCalls: successful,
		ErrorCalls:      len(calls) - successful,
		SuccessRate:     successRate(successful, len(calls)),
		Calls:           calls,
	}
}

// successRate is successful/total as a percentage rounded to two decimals,
// zero when there were no calls.
func successRate(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	rate := float64(successful) / float64(total) * 100
	return math.Round(rate*100) / 100
}
