package quest

import (
	"testing"
	"time"
)

func validConfig() DefinitionConfig {
	return DefinitionConfig{
		ID:   "intro_quest",
		Name: "A Word with the Elder",
		Objectives: []ObjectiveTemplate{
			{Kind: ObjectiveTalkToNpc, Target: "elder", Required: 1},
		},
		Rewards: map[string]int64{"gold": 50},
	}
}

func TestNewDefinition_Valid(t *testing.T) {
	def, err := NewDefinition(validConfig())
	if err != nil {
		t.Fatalf("NewDefinition: %v", err)
	}
	if def.ID() != "intro_quest" || def.ObjectiveCount() != 1 {
		t.Errorf("definition = (%q, %d objectives), want (intro_quest, 1)", def.ID(), def.ObjectiveCount())
	}
	if def.Rewards()["gold"] != 50 {
		t.Errorf("rewards = %v, want gold=50", def.Rewards())
	}
}

func TestNewDefinition_Immutable(t *testing.T) {
	cfg := validConfig()
	def, err := NewDefinition(cfg)
	if err != nil {
		t.Fatalf("NewDefinition: %v", err)
	}

	// Mutating the config or returned maps must not affect the definition.
	cfg.Objectives[0].Target = "imposter"
	if def.Objective(0).Target != "elder" {
		t.Error("definition shares objective slice with config")
	}
	def.Rewards()["gold"] = 9999
	if def.Rewards()["gold"] != 50 {
		t.Error("Rewards() exposes internal map")
	}
}

func TestNewDefinition_FailFast(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*DefinitionConfig)
	}{
		{"missing id", func(c *DefinitionConfig) { c.ID = "" }},
		{"missing name", func(c *DefinitionConfig) { c.Name = "" }},
		{"no objectives", func(c *DefinitionConfig) { c.Objectives = nil }},
		{"unknown objective kind", func(c *DefinitionConfig) { c.Objectives[0].Kind = ObjectiveKind(9) }},
		{"missing target", func(c *DefinitionConfig) { c.Objectives[0].Target = "" }},
		{"zero required", func(c *DefinitionConfig) { c.Objectives[0].Required = 0 }},
		{"negative time limit", func(c *DefinitionConfig) { c.TimeLimit = -time.Minute }},
		{"empty branch target", func(c *DefinitionConfig) { c.Branches = map[string]string{"help": ""} }},
		{"multi-count choice", func(c *DefinitionConfig) {
			c.Objectives = []ObjectiveTemplate{{Kind: ObjectiveMakeChoice, Target: "x", Required: 2}}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if _, err := NewDefinition(cfg); err == nil {
				t.Errorf("NewDefinition should reject config with %s", tc.name)
			}
		})
	}
}

func TestRegistry_RegisterAndSeal(t *testing.T) {
	r := NewRegistry()

	def, err := NewDefinition(validConfig())
	if err != nil {
		t.Fatalf("NewDefinition: %v", err)
	}
	if err := r.Register(def); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(def); err == nil {
		t.Error("duplicate Register should return error")
	}

	r.Seal()
	if got := r.Get("intro_quest"); got != def {
		t.Error("Get returned wrong definition")
	}
	if r.Get("nope") != nil {
		t.Error("Get for unknown id should return nil")
	}
	if ids := r.IDs(); len(ids) != 1 || ids[0] != "intro_quest" {
		t.Errorf("IDs() = %v, want [intro_quest]", ids)
	}

	other, _ := NewDefinition(DefinitionConfig{
		ID:   "late",
		Name: "Too Late",
		Objectives: []ObjectiveTemplate{
			{Kind: ObjectiveTalkToNpc, Target: "npc", Required: 1},
		},
	})
	if err := r.Register(other); err == nil {
		t.Error("Register after Seal should return error")
	}
}
