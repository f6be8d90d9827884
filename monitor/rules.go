package monitor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Duration accepts either a Go duration string ("90s", "30m") or a bare
// number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"'`)
	if secs, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type ThresholdRule struct {
	Enabled   bool     `yaml:"enabled"`
	Threshold uint64   `yaml:"threshold"`
	Cooldown  Duration `yaml:"cooldown"`
}

type InterfaceDownRule struct {
	Enabled            bool     `yaml:"enabled"`
	ExcludedInterfaces []string `yaml:"excluded_interfaces"`
	Cooldown           Duration `yaml:"cooldown"`
}

// BandwidthRule fires when the busier direction of an interface reaches
// Threshold percent of its link speed.
type BandwidthRule struct {
	Enabled            bool     `yaml:"enabled"`
	Threshold          uint64   `yaml:"threshold"`
	ExcludedInterfaces []string `yaml:"excluded_interfaces"`
	Cooldown           Duration `yaml:"cooldown"`
}

type ConnectionLostRule struct {
	Enabled bool `yaml:"enabled"`
	// Retries is the number of consecutive failed checks before alerting.
	Retries  int      `yaml:"retries"`
	Cooldown Duration `yaml:"cooldown"`
}

// Rules is the alert rule file.
type Rules struct {
	Interval       Duration           `yaml:"interval"`
	Cooldown       Duration           `yaml:"cooldown"`
	HighCPU        ThresholdRule      `yaml:"high_cpu"`
	HighMemory     ThresholdRule      `yaml:"high_memory"`
	InterfaceDown  InterfaceDownRule  `yaml:"interface_down"`
	HighBandwidth  BandwidthRule      `yaml:"high_bandwidth"`
	ConnectionLost ConnectionLostRule `yaml:"connection_lost"`
}

func DefaultRules() *Rules {
	return &Rules{
		Interval:       Duration(time.Minute),
		Cooldown:       Duration(30 * time.Minute),
		HighCPU:        ThresholdRule{Enabled: true, Threshold: 80, Cooldown: Duration(time.Hour)},
		HighMemory:     ThresholdRule{Enabled: true, Threshold: 80, Cooldown: Duration(time.Hour)},
		InterfaceDown:  InterfaceDownRule{Enabled: true, ExcludedInterfaces: []string{"lo"}},
		HighBandwidth:  BandwidthRule{Enabled: true, Threshold: 80, ExcludedInterfaces: []string{"lo"}, Cooldown: Duration(time.Hour)},
		ConnectionLost: ConnectionLostRule{Enabled: true, Retries: 3},
	}
}

// ParseRules overlays data onto DefaultRules.
func ParseRules(data []byte) (*Rules, error) {
	rules := DefaultRules()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("parse alert rules: %w", err)
	}
	if err := rules.validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// LoadRules reads the rule file at path; an empty path yields the defaults.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alert rules: %w", err)
	}
	return ParseRules(data)
}

func (r *Rules) validate() error {
	if r.Interval <= 0 {
		return fmt.Errorf("alert rules: interval must be positive")
	}
	if r.HighCPU.Threshold > 100 || r.HighMemory.Threshold > 100 || r.HighBandwidth.Threshold > 100 {
		return fmt.Errorf("alert rules: thresholds are percentages (0-100)")
	}
	if r.ConnectionLost.Retries < 1 {
		r.ConnectionLost.Retries = 1
	}
	return nil
}

// cooldownFor returns the rule's own cooldown, or the global one.
func (r *Rules) cooldownFor(rule string) time.Duration {
	var own Duration
	switch rule {
	case RuleHighCPU:
		own = r.HighCPU.Cooldown
	case RuleHighMemory:
		own = r.HighMemory.Cooldown
	case RuleInterfaceDown:
		own = r.InterfaceDown.Cooldown
	case RuleHighBandwidth:
		own = r.HighBandwidth.Cooldown
	case RuleConnectionLost:
		own = r.ConnectionLost.Cooldown
	}
	if own > 0 {
		return own.Std()
	}
	return r.Cooldown.Std()
}

func contains(list []string, iface string) bool {
	for _, name := range list {
		if name == iface {
			return true
		}
	}
	return false
}
