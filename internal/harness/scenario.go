package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pushdown/internal/config"
	"github.com/roach88/pushdown/internal/pushdown"
)

// Scenario is one compiler test case.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the directory of the CUE catalog package.
	Catalog string `yaml:"catalog"`

	// Plan is the YAML plan file to compile.
	Plan string `yaml:"plan"`

	// Options are compiler options in config file syntax. Omitted fields
	// keep their defaults.
	Options yaml.Node `yaml:"options,omitempty"`

	// Data holds table contents for equivalence checks, keyed by table
	// reference ("users", "shop.users"). Values are in catalog column
	// order.
	Data map[string][][]any `yaml:"data,omitempty"`

	// Expect is what the compilation must produce.
	Expect Expect `yaml:"expect"`
}

// Expect lists scenario expectations. Unset fields are not checked.
type Expect struct {
	// Error is a substring of the expected compilation error.
	Error string `yaml:"error,omitempty"`

	// Status is the expected root state ("fully_pushed", ...).
	Status string `yaml:"status,omitempty"`

	// Relations is the expected number of pushed relations.
	Relations *int `yaml:"relations,omitempty"`

	// ReadModes lists the expected read mode of each relation in order.
	ReadModes []string `yaml:"read_modes,omitempty"`

	// Decisions are checked by path. Operators not listed are not checked.
	Decisions []DecisionExpect `yaml:"decisions,omitempty"`

	// Rows is the result the host would compute. Requires Data and a fully
	// pushed plan.
	Rows [][]any `yaml:"rows,omitempty"`
}

// DecisionExpect matches one operator decision.
type DecisionExpect struct {
	Path  string `yaml:"path"`
	State string `yaml:"state"`
	// Kind is the unsupported kind, "" for none.
	Kind string `yaml:"kind,omitempty"`
	// Reason is a substring of the recorded reason.
	Reason string `yaml:"reason,omitempty"`
}

var finalStates = []pushdown.State{pushdown.FullyPushed, pushdown.PartiallyPushed, pushdown.NotPushed}

// LoadScenario reads and parses a scenario YAML file. Catalog and plan
// paths are resolved relative to the file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(base, scenario.Catalog)
	}
	if scenario.Plan != "" && !filepath.IsAbs(scenario.Plan) {
		scenario.Plan = filepath.Join(base, scenario.Plan)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Config returns the scenario's compiler options.
func (s *Scenario) Config() (config.Options, error) {
	if s.Options.Kind == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(&s.Options)
	if err != nil {
		return config.Options{}, fmt.Errorf("options: %w", err)
	}
	return config.Parse(data)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if s.Plan == "" {
		return fmt.Errorf("plan is required")
	}
	if info, err := os.Stat(s.Catalog); err != nil || !info.IsDir() {
		return fmt.Errorf("catalog directory not found: %s", s.Catalog)
	}
	if _, err := os.Stat(s.Plan); err != nil {
		return fmt.Errorf("plan file not found: %s", s.Plan)
	}
	if _, err := s.Config(); err != nil {
		return err
	}

	e := &s.Expect
	switch {
	case e.Error == "" && e.Status == "":
		return fmt.Errorf("expect needs a status or an error")
	case e.Error != "" && (e.Status != "" || e.Relations != nil || len(e.ReadModes) > 0 ||
		len(e.Decisions) > 0 || len(e.Rows) > 0):
		return fmt.Errorf("expect.error excludes every other expectation")
	}
	if e.Status != "" && !validState(e.Status) {
		return fmt.Errorf("expect.status: unknown state %q", e.Status)
	}
	for i, m := range e.ReadModes {
		if m != "single" && m != "parallel" {
			return fmt.Errorf("expect.read_modes[%d]: unknown read mode %q", i, m)
		}
	}
	for i, d := range e.Decisions {
		if d.Path == "" {
			return fmt.Errorf("expect.decisions[%d]: path is required", i)
		}
		if !validState(d.State) {
			return fmt.Errorf("expect.decisions[%d]: unknown state %q", i, d.State)
		}
	}
	if len(e.Rows) > 0 {
		if len(s.Data) == 0 {
			return fmt.Errorf("expect.rows needs data")
		}
		if e.Status != pushdown.FullyPushed.String() {
			return fmt.Errorf("expect.rows needs status %s", pushdown.FullyPushed)
		}
	}
	return nil
}

func validState(name string) bool {
	for _, st := range finalStates {
		if st.String() == name {
			return true
		}
	}
	return false
}
