// Package loader reads YAML quest catalogs and compiles them into a sealed
// quest registry. Load is strict about structure (unknown objective kinds
// and malformed definitions fail the load) but forward-compatible about
// condition kinds: an unrecognized condition kind compiles to a custom
// condition, which the evaluator treats as unmet until a predicate is
// registered for it.
package loader

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvetoshkin/questline/internal/quest"
)

// rawCatalog mirrors the YAML catalog file.
type rawCatalog struct {
	Quests []rawQuest `yaml:"quests"`
}

type rawQuest struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description"`
	Giver         string            `yaml:"giver"`
	TimeLimit     string            `yaml:"time_limit"` // Go duration string, optional
	Repeatable    bool              `yaml:"repeatable"`
	Objectives    []rawObjective    `yaml:"objectives"`
	Prerequisites []rawCondition    `yaml:"prerequisites"`
	Rewards       map[string]int64  `yaml:"rewards"`
	Branches      map[string]string `yaml:"branches"`
}

type rawObjective struct {
	Kind     string `yaml:"kind"`
	Target   string `yaml:"target"`
	Required int32  `yaml:"required"` // defaults to 1
}

type rawCondition struct {
	Kind     string            `yaml:"kind"`
	MinLevel int32             `yaml:"min_level"`
	Quest    string            `yaml:"quest"`
	Choice   string            `yaml:"choice"`
	Option   string            `yaml:"option"`
	Params   map[string]string `yaml:"params"`
}

// LoadCatalog reads a YAML catalog file and returns a sealed registry.
func LoadCatalog(path string) (*quest.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading quest catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog compiles catalog bytes into a sealed registry.
func ParseCatalog(data []byte) (*quest.Registry, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing quest catalog: %w", err)
	}

	registry := quest.NewRegistry()
	for _, rq := range raw.Quests {
		def, err := compileQuest(rq)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(def); err != nil {
			return nil, fmt.Errorf("quest catalog: %w", err)
		}
	}
	registry.Seal()

	slog.Info("quest catalog loaded", "quests", registry.Count())
	return registry, nil
}

func compileQuest(rq rawQuest) (*quest.QuestDefinition, error) {
	cfg := quest.DefinitionConfig{
		ID:          rq.ID,
		Name:        rq.Name,
		Description: rq.Description,
		QuestGiver:  rq.Giver,
		Repeatable:  rq.Repeatable,
		Rewards:     rq.Rewards,
		Branches:    rq.Branches,
	}

	if rq.TimeLimit != "" {
		d, err := time.ParseDuration(rq.TimeLimit)
		if err != nil {
			return nil, fmt.Errorf("quest %q: invalid time_limit %q: %w", rq.ID, rq.TimeLimit, err)
		}
		cfg.TimeLimit = d
	}

	for i, ro := range rq.Objectives {
		kind, err := objectiveKind(ro.Kind)
		if err != nil {
			return nil, fmt.Errorf("quest %q objective %d: %w", rq.ID, i, err)
		}
		required := ro.Required
		if required == 0 {
			required = 1
		}
		cfg.Objectives = append(cfg.Objectives, quest.ObjectiveTemplate{
			Kind:     kind,
			Target:   ro.Target,
			Required: required,
		})
	}

	for _, rc := range rq.Prerequisites {
		cfg.Prerequisites = append(cfg.Prerequisites, compileCondition(rc))
	}

	def, err := quest.NewDefinition(cfg)
	if err != nil {
		return nil, fmt.Errorf("quest catalog: %w", err)
	}
	return def, nil
}

func objectiveKind(kind string) (quest.ObjectiveKind, error) {
	switch kind {
	case "talk_to_npc":
		return quest.ObjectiveTalkToNpc, nil
	case "collect_item":
		return quest.ObjectiveCollectItem, nil
	case "return_to_npc":
		return quest.ObjectiveReturnToNpc, nil
	case "make_choice":
		return quest.ObjectiveMakeChoice, nil
	default:
		return 0, fmt.Errorf("unknown objective kind %q", kind)
	}
}

func compileCondition(rc rawCondition) quest.Condition {
	switch rc.Kind {
	case "player_level":
		return quest.MinLevel(rc.MinLevel)
	case "quest_completed":
		return quest.RequiresQuest(rc.Quest)
	case "quest_choice":
		return quest.RequiresChoice(rc.Choice, rc.Option)
	default:
		// Forward-declared kinds block progress until the host registers
		// a predicate for them.
		return quest.Custom(rc.Kind, rc.Params)
	}
}
