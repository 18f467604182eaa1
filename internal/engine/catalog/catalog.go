// Package catalog loads the static engine data: the agent sequence,
// per-agent response template banks, and per-agent file trigger
// manifests. The data ships embedded; a missing bank or manifest for a
// known agent is a deployment defect surfaced as ConfigurationError.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"consultify/internal/engine/conversation"

	"gopkg.in/yaml.v3"
)

//go:embed data/agents.yaml
var agentsYAML []byte

//go:embed data/templates.yaml
var templatesYAML []byte

//go:embed data/triggers.yaml
var triggersYAML []byte

// ConfigurationError names the agent whose static data is missing or
// malformed. It is fatal and never silently recovered.
type ConfigurationError struct {
	AgentID  string
	Resource string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("catalog: missing %s for agent %q", e.Resource, e.AgentID)
}

// TemplateBank holds the response templates for one agent, addressable
// by category.
type TemplateBank struct {
	Greetings   []string `yaml:"greetings"`
	Questions   []string `yaml:"questions"`
	Transitions []string `yaml:"transitions"`
	Help        []string `yaml:"help"`
}

// TriggerManifest maps one named trigger key to the files it produces.
type TriggerManifest struct {
	Key   string   `yaml:"key"`
	Files []string `yaml:"files"`
}

// Catalog is the loaded, immutable static data set.
type Catalog struct {
	sequence   conversation.Sequence
	banks      map[string]TemplateBank
	triggers   map[string][]TriggerManifest
	acks       map[string][]string
	flourishes []string
}

// Load parses the embedded data files and validates that every agent in
// the sequence has a complete template bank and at least one trigger
// manifest.
func Load() (*Catalog, error) {
	var agentsDoc struct {
		Agents []conversation.Agent `yaml:"agents"`
	}
	if err := yaml.Unmarshal(agentsYAML, &agentsDoc); err != nil {
		return nil, fmt.Errorf("catalog: parse agents: %w", err)
	}
	seq, err := conversation.NewSequence(agentsDoc.Agents)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	var templatesDoc struct {
		Banks            map[string]TemplateBank `yaml:"banks"`
		Acknowledgements map[string][]string     `yaml:"acknowledgements"`
		Flourishes       []string                `yaml:"flourishes"`
	}
	if err := yaml.Unmarshal(templatesYAML, &templatesDoc); err != nil {
		return nil, fmt.Errorf("catalog: parse templates: %w", err)
	}

	var triggersDoc struct {
		Triggers map[string][]TriggerManifest `yaml:"triggers"`
	}
	if err := yaml.Unmarshal(triggersYAML, &triggersDoc); err != nil {
		return nil, fmt.Errorf("catalog: parse triggers: %w", err)
	}

	c := &Catalog{
		sequence:   seq,
		banks:      templatesDoc.Banks,
		triggers:   triggersDoc.Triggers,
		acks:       templatesDoc.Acknowledgements,
		flourishes: templatesDoc.Flourishes,
	}
	for _, ag := range seq.Agents() {
		if err := c.validateAgent(ag.ID); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) validateAgent(agentID string) error {
	bank, ok := c.banks[agentID]
	if !ok {
		return &ConfigurationError{AgentID: agentID, Resource: "template bank"}
	}
	for resource, templates := range map[string][]string{
		"greeting templates":   bank.Greetings,
		"question templates":   bank.Questions,
		"transition templates": bank.Transitions,
		"help templates":       bank.Help,
	} {
		if len(templates) == 0 {
			return &ConfigurationError{AgentID: agentID, Resource: resource}
		}
	}
	if len(c.triggers[agentID]) == 0 {
		return &ConfigurationError{AgentID: agentID, Resource: "trigger manifest"}
	}
	return nil
}

// Sequence returns the fixed agent ordering.
func (c *Catalog) Sequence() conversation.Sequence { return c.sequence }

// Bank returns the template bank for an agent, or ConfigurationError if
// none exists.
func (c *Catalog) Bank(agentID string) (TemplateBank, error) {
	bank, ok := c.banks[strings.TrimSpace(agentID)]
	if !ok {
		return TemplateBank{}, &ConfigurationError{AgentID: agentID, Resource: "template bank"}
	}
	return bank, nil
}

// Triggers returns the ordered trigger manifests for an agent. Unknown
// agents get an empty list, not an error; file generation is simulated
// and intentionally permissive at runtime.
func (c *Catalog) Triggers(agentID string) []TriggerManifest {
	return c.triggers[strings.TrimSpace(agentID)]
}

// Acknowledgements returns the fragments for one keyword category.
func (c *Catalog) Acknowledgements(category string) []string {
	return c.acks[category]
}

// Flourishes returns the positive-sentiment closers.
func (c *Catalog) Flourishes() []string { return c.flourishes }
