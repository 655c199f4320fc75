// Package deontic implements a norm-evaluation engine usable as the CSM's
// action gate. Norms are declared in YAML, validated and sorted by priority
// at load time, and evaluated against proposed actions to produce a
// permissible / obligatory / impermissible verdict with a rationale naming
// the dominating norm.
package deontic

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Modality is a norm's deontic force.
type Modality string

const (
	Permissible   Modality = "permissible"
	Obligatory    Modality = "obligatory"
	Impermissible Modality = "impermissible"
)

// UnmarshalYAML rejects unknown modalities at load time rather than letting
// a typo silently weaken the ethos.
func (m *Modality) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	incoming := Modality(s)
	switch incoming {
	case Permissible, Obligatory, Impermissible:
		*m = incoming
		return nil
	default:
		return fmt.Errorf("deontic: invalid modality %q", s)
	}
}

// Norm is one normative rule. Tags scope the norm to matching action tags;
// a norm with no tags governs every action. Defeats lists the IDs of
// lower-priority norms this norm overrides when both are active.
type Norm struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Modality    Modality `yaml:"modality"`
	Priority    int      `yaml:"priority"`
	Tags        []string `yaml:"tags"`
	Defeats     []string `yaml:"defeats"`
	Disabled    bool     `yaml:"disabled"`
}

// ethosFile is the YAML document shape.
type ethosFile struct {
	Norms []Norm `yaml:"norms"`
}
