package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wavegate/wavegate/pkg/hooks"
)

// Overrides adjusts the built-in policies while they are being constructed.
// Keys are hook names (e.g. "connect_playback"), values rule names (e.g.
// "check_portal"). The file only shapes what initialization builds; policies
// stay immutable afterwards.
type Overrides struct {
	Default map[string]string `yaml:"default"`
	Portal  map[string]string `yaml:"portal"`
}

// LoadOverrides reads a YAML override file. A missing file or empty path
// returns nil with no error, leaving the built-in policies untouched.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading policy overrides: %w", err)
	}

	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing policy overrides: %w", err)
	}
	return &o, nil
}

// Apply writes the overrides into the two built-in policies.
func (o *Overrides) Apply(t *Table, defaultPolicy, portalPolicy uint32) error {
	if o == nil {
		return nil
	}

	if err := applyRules(t, defaultPolicy, o.Default); err != nil {
		return fmt.Errorf("default policy: %w", err)
	}
	if err := applyRules(t, portalPolicy, o.Portal); err != nil {
		return fmt.Errorf("portal policy: %w", err)
	}
	return nil
}

func applyRules(t *Table, policyIndex uint32, rules map[string]string) error {
	for hookName, ruleName := range rules {
		k, ok := hooks.ParseKind(hookName)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownHook, hookName)
		}
		r, err := ParseRule(ruleName)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownRule, ruleName)
		}
		if err := t.SetRule(policyIndex, k, r); err != nil {
			return err
		}
	}
	return nil
}
