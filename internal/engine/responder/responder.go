// Package responder selects or synthesizes the agent reply for one
// user utterance, decides whether the session should hand off to the
// next agent, and requests deliverable file generation on transitions.
package responder

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strings"

	"consultify/internal/engine/analysis"
	"consultify/internal/engine/catalog"
	"consultify/internal/engine/conversation"
	"consultify/internal/engine/filegen"
)

// ErrEmptyMessage rejects zero-length or whitespace-only input before
// it reaches the heuristics.
var ErrEmptyMessage = errors.New("responder: message is empty")

// Turns an agent must have taken before an agreement can trigger the
// handoff. Distinct from the handoff package's weighted policy.
const transitionTurnThreshold = 3

// Kind labels which template category produced the response. Template
// selection is random, so tests assert on Kind rather than exact text.
type Kind string

const (
	KindGreeting   Kind = "greeting"
	KindQuestion   Kind = "question"
	KindHelp       Kind = "help"
	KindTransition Kind = "transition"
)

// Generator is an alternate response source, typically a real language
// model. It only replaces the response text; transition and
// file-trigger decisions stay with the engine.
type Generator interface {
	Generate(ctx context.Context, agentID string, messages []conversation.ChatMessage) (string, error)
}

// Result carries the engine's full decision for one turn. The caller
// executes the side effects: appending messages, advancing the phase,
// and tracking the new file generations.
type Result struct {
	Text             string
	Kind             Kind
	ShouldTransition bool
	NextAgent        *conversation.Agent
	Files            []conversation.FileGeneration
	Analysis         analysis.Result
}

// Responder holds no session state; the injected random source is its
// only mutable member, so callers that share one Responder across
// goroutines must serialize Respond calls.
type Responder struct {
	cat *catalog.Catalog
	rnd *rand.Rand
	llm Generator
}

// Option configures a Responder.
type Option func(*Responder)

// WithGenerator delegates response text to an external model, falling
// back to templates when it fails.
func WithGenerator(g Generator) Option {
	return func(r *Responder) { r.llm = g }
}

// New builds a Responder. The random source is injected so tests can
// seed it for deterministic template selection.
func New(cat *catalog.Catalog, rnd *rand.Rand, opts ...Option) *Responder {
	r := &Responder{cat: cat, rnd: rnd}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond produces the agent's reply for one user message. It never
// mutates the session; side effects are described in the Result.
func (r *Responder) Respond(ctx context.Context, agent conversation.Agent, userText string, sess *conversation.Session) (Result, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return Result{}, ErrEmptyMessage
	}
	bank, err := r.cat.Bank(agent.ID)
	if err != nil {
		return Result{}, err
	}

	// First contact: greet, no analysis needed.
	if !sess.HasAgentSpoken(agent.ID) {
		res := Result{Text: r.pick(bank.Greetings), Kind: KindGreeting}
		return r.finish(ctx, agent, sess, userText, res), nil
	}

	an := analysis.Analyze(userText)
	res := Result{Analysis: an}

	switch {
	case an.Sentiment == analysis.SentimentConfused:
		res.Text = r.pick(bank.Help)
		res.Kind = KindHelp
	case sess.AgentTurns(agent.ID) >= transitionTurnThreshold && an.Intent == analysis.IntentAgreement:
		res.Text = r.pick(bank.Transitions)
		res.Kind = KindTransition
		res.ShouldTransition = true
		if next, ok := r.cat.Sequence().Next(agent); ok {
			res.NextAgent = &next
		}
		res.Files = filegen.Plan(agent, r.cat.Triggers(agent.ID), sess.AgentTurns(agent.ID))
	default:
		res.Text = r.pick(bank.Questions)
		res.Kind = KindQuestion
	}

	res.Text = r.embellish(res.Text, an)
	return r.finish(ctx, agent, sess, userText, res), nil
}

// embellish appends acknowledgement fragments for matched keyword
// categories and a flourish on positive sentiment. Purely additive; it
// never changes the transition decision.
func (r *Responder) embellish(text string, an analysis.Result) string {
	parts := []string{text}
	for _, category := range an.Categories {
		if fragments := r.cat.Acknowledgements(category); len(fragments) > 0 {
			parts = append(parts, r.pick(fragments))
		}
	}
	if an.Sentiment == analysis.SentimentPositive {
		if flourishes := r.cat.Flourishes(); len(flourishes) > 0 {
			parts = append(parts, r.pick(flourishes))
		}
	}
	return strings.Join(parts, " ")
}

// finish gives the optional external generator a chance to replace the
// response text. Decisions made above are already final.
func (r *Responder) finish(ctx context.Context, agent conversation.Agent, sess *conversation.Session, userText string, res Result) Result {
	if r.llm == nil {
		return res
	}
	history := append(append([]conversation.ChatMessage{}, sess.Messages...), conversation.ChatMessage{
		Content: userText,
		Origin:  conversation.OriginUser,
	})
	text, err := r.llm.Generate(ctx, agent.ID, history)
	if err != nil {
		log.Printf("responder: generator failed for agent %s, using template: %v", agent.ID, err)
		return res
	}
	if text = strings.TrimSpace(text); text != "" {
		res.Text = text
	}
	return res
}

func (r *Responder) pick(templates []string) string {
	if len(templates) == 0 {
		return ""
	}
	return templates[r.rnd.Intn(len(templates))]
}
