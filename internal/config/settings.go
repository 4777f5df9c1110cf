// Package config loads the routing/dispatch configuration: directory
// roots, retry policy, scan intervals, rules, and targets (§6). Loaded
// with gopkg.in/yaml.v3, the same library and struct-tag style as
// runforge/internal/config.LoadSettings.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hermes-router/hermes/internal/errs"
	"github.com/hermes-router/hermes/internal/rule"
	"github.com/hermes-router/hermes/internal/target"
)

// Settings is the top-level configuration document (§6 "Configuration").
type Settings struct {
	IncomingFolder   string `yaml:"incoming_folder"`
	OutgoingFolder   string `yaml:"outgoing_folder"`
	SuccessFolder    string `yaml:"success_folder"`
	ErrorFolder      string `yaml:"error_folder"`
	DiscardFolder    string `yaml:"discard_folder"`
	ProcessingFolder string `yaml:"processing_folder"`

	PayloadExt string `yaml:"payload_ext"`
	TagsExt    string `yaml:"tags_ext"`

	RetryMax               int `yaml:"retry_max"`
	RetryDelaySeconds      int `yaml:"retry_delay"`
	DispatcherScanInterval int `yaml:"dispatcher_scan_interval"`
	RouterScanInterval     int `yaml:"router_scan_interval"`

	Bookkeeper string `yaml:"bookkeeper"`

	TransferTool       string `yaml:"transfer_tool"`
	TransferTimeoutSec int    `yaml:"transfer_timeout"`

	Rules   map[string]*RuleConfig   `yaml:"rules"`
	Targets map[string]*TargetConfig `yaml:"targets"`
}

// RuleConfig mirrors rule.Rule for YAML decoding.
type RuleConfig struct {
	Expression          string       `yaml:"rule"`
	Disabled            bool         `yaml:"disabled"`
	Action              rule.Action  `yaml:"action"`
	ActionTrigger       rule.Trigger `yaml:"action_trigger"`
	Target              string       `yaml:"target,omitempty"`
	NotificationWebhook string       `yaml:"notification_webhook,omitempty"`
	NotificationPayload string       `yaml:"notification_payload,omitempty"`
}

// TargetConfig mirrors target.Target for YAML decoding.
type TargetConfig struct {
	Address    string `yaml:"address"`
	Port       int    `yaml:"port"`
	ReceiverID string `yaml:"receiver_id"`
	SenderID   string `yaml:"sender_id"`
}

// Load reads and validates a YAML configuration file. A missing or
// unreadable file is errs.ErrConfigMissing; a file that parses but fails
// validation is errs.ErrConfigInvalid — both abort the current tick
// without mutating any state (§7).
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config %s: %v", errs.ErrConfigMissing, path, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: parse config %s: %v", errs.ErrConfigInvalid, path, err)
	}

	s.applyDefaults()

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrConfigInvalid, err)
	}

	return &s, nil
}

func (s *Settings) applyDefaults() {
	if s.PayloadExt == "" {
		s.PayloadExt = "dcm"
	}
	if s.TagsExt == "" {
		s.TagsExt = "tags"
	}
	if s.RetryMax <= 0 {
		s.RetryMax = 3
	}
	if s.RetryDelaySeconds <= 0 {
		s.RetryDelaySeconds = 900
	}
	if s.DispatcherScanInterval <= 0 {
		s.DispatcherScanInterval = 10
	}
	if s.RouterScanInterval <= 0 {
		s.RouterScanInterval = 5
	}
	if s.TransferTimeoutSec <= 0 {
		s.TransferTimeoutSec = 60
	}
}

func (s *Settings) validate() error {
	required := map[string]string{
		"incoming_folder":   s.IncomingFolder,
		"outgoing_folder":   s.OutgoingFolder,
		"success_folder":    s.SuccessFolder,
		"error_folder":      s.ErrorFolder,
		"discard_folder":    s.DiscardFolder,
		"processing_folder": s.ProcessingFolder,
	}
	for key, val := range required {
		if val == "" {
			return fmt.Errorf("missing required config key %q", key)
		}
	}

	for name, rc := range s.Rules {
		r := rc.toRule(name)
		if r.Disabled {
			continue
		}
		if err := r.Validate(); err != nil {
			return err
		}
	}

	for name, tc := range s.Targets {
		t := tc.toTarget(name)
		if err := t.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func (rc *RuleConfig) toRule(name string) rule.Rule {
	return rule.Rule{
		Name:                name,
		Expression:          rc.Expression,
		Disabled:            rc.Disabled,
		Action:              rc.Action,
		ActionTrigger:       rc.ActionTrigger,
		Target:              rc.Target,
		NotificationWebhook: rc.NotificationWebhook,
		NotificationPayload: rc.NotificationPayload,
	}
}

func (tc *TargetConfig) toTarget(name string) target.Target {
	return target.Target{
		Name:       name,
		Address:    tc.Address,
		Port:       tc.Port,
		ReceiverID: tc.ReceiverID,
		SenderID:   tc.SenderID,
	}
}

// EnabledRules returns the configured rules, excluding disabled ones, in a
// deterministic (sorted-by-name) order so evaluation is reproducible
// across runs (§3: "a disabled rule is invisible to evaluation").
func (s *Settings) EnabledRules() []rule.Rule {
	names := make([]string, 0, len(s.Rules))
	for name := range s.Rules {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]rule.Rule, 0, len(names))
	for _, name := range names {
		r := s.Rules[name].toRule(name)
		if r.Disabled {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Target looks up a configured target by name.
func (s *Settings) Target(name string) (target.Target, bool) {
	tc, ok := s.Targets[name]
	if !ok {
		return target.Target{}, false
	}
	return tc.toTarget(name), true
}

// RetryDelay returns the configured retry delay as a Duration.
func (s *Settings) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelaySeconds) * time.Second
}

// DispatcherInterval returns the dispatcher scan period as a Duration.
func (s *Settings) DispatcherInterval() time.Duration {
	return time.Duration(s.DispatcherScanInterval) * time.Second
}

// RouterInterval returns the router scan period as a Duration.
func (s *Settings) RouterInterval() time.Duration {
	return time.Duration(s.RouterScanInterval) * time.Second
}

// TransferTimeout returns the external transfer tool's per-run timeout.
func (s *Settings) TransferTimeout() time.Duration {
	return time.Duration(s.TransferTimeoutSec) * time.Second
}
