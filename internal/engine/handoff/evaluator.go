// Package handoff scores whether a conversation with the current agent
// looks ready to hand off to the next phase. This weighted policy feeds
// session-level readiness reporting; the response generator keeps its
// own simpler turn-count rule for the actual transition, and the two
// may disagree by design.
package handoff

import (
	"fmt"
	"strings"

	"consultify/internal/engine/conversation"
)

const (
	minAgentMessages = 2
	minUserMessages  = 2
	// Average user message length, in characters, taken as an
	// engagement proxy.
	engagementLengthThreshold = 40

	readyThreshold = 0.7
)

var closurePhrases = []string{
	"perfecto", "genial", "listo", "siguiente", "avancemos", "continuemos",
	"perfect", "great", "ready", "next",
}

// Report is the evaluator's verdict for one agent/session pair.
type Report struct {
	IsReady    bool    `json:"is_ready"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Evaluate applies the additive heuristic over the message log:
// +0.5 for sustained two-way exchange, +0.3 for a positive-closure
// phrase in the last three messages, +0.2 for engaged (long) user
// messages. With no user messages at all the confidence is zero.
func Evaluate(messages []conversation.ChatMessage, agent conversation.Agent) Report {
	agentCount := 0
	userCount := 0
	userChars := 0
	for _, m := range messages {
		switch {
		case m.Origin == conversation.OriginAgent && m.AgentID == agent.ID:
			agentCount++
		case m.Origin == conversation.OriginUser:
			userCount++
			userChars += len(m.Content)
		}
	}

	if userCount == 0 {
		return Report{
			Confidence: 0,
			Reason:     fmt.Sprintf("%s has not heard from the user yet", agent.Name),
		}
	}

	confidence := 0.0
	if agentCount >= minAgentMessages && userCount >= minUserMessages {
		confidence += 0.5
	}
	closure := hasRecentClosure(messages)
	if closure {
		confidence += 0.3
	}
	engaged := userChars/userCount > engagementLengthThreshold
	if engaged {
		confidence += 0.2
	}

	report := Report{
		IsReady:    confidence > readyThreshold,
		Confidence: confidence,
	}
	switch {
	case agentCount < minAgentMessages:
		report.Reason = fmt.Sprintf("%s needs more conversation turns before handing off", agent.Name)
	case !closure:
		report.Reason = "waiting for a positive signal from the user"
	case report.IsReady:
		report.Reason = fmt.Sprintf("phase %d conversation looks complete", agent.Phase)
	default:
		report.Reason = "conversation is still developing"
	}
	return report
}

func hasRecentClosure(messages []conversation.ChatMessage) bool {
	start := len(messages) - 3
	if start < 0 {
		start = 0
	}
	for _, m := range messages[start:] {
		lower := strings.ToLower(m.Content)
		for _, phrase := range closurePhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
	}
	return false
}
