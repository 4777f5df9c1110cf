// Package descriptor builds and persists the per-folder task descriptor
// (component C, §3 "Task descriptor"): a pure, side-effect-free function
// from (series UID, trigger, rule, target) to a structured document,
// plus the durable read/write helpers the dispatcher and transfer worker
// use to mutate its retry state.
//
// Grounded on original_source/routing/route_series.py's
// generate_taskfile_route / generate_taskfile_process call sites, and on
// the durable write idiom from runforge/internal/sentinel/processor.go
// (encode to a temp file, os.Rename into place) and
// runforge/internal/runner/blacklist.go's saveLocked.
package descriptor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hermes-router/hermes/internal/errs"
	"github.com/hermes-router/hermes/internal/rule"
	"github.com/hermes-router/hermes/internal/target"
)

// RouteFileName is the task descriptor name for outgoing (dispatch)
// folders.
const RouteFileName = "target.json"

// ProcessFileName is the task descriptor name for processing folders.
const ProcessFileName = "task.json"

// Descriptor is the per-folder document describing where a staged folder
// should go and its retry state.
type Descriptor struct {
	TargetAddress    string  `json:"target_ip,omitempty"`
	TargetPort       int     `json:"target_port,omitempty"`
	TargetAETTarget  string  `json:"target_aet_target,omitempty"`
	TargetAETSource  string  `json:"target_aet_source,omitempty"`
	TargetName       string  `json:"target_name,omitempty"`
	RuleName         string  `json:"applied_rule"`
	SeriesUID        string  `json:"series_uid"`
	ActionTrigger    rule.Trigger `json:"action_trigger"`
	Retries          int     `json:"retries"`
	NextRetryAt      int64   `json:"next_retry_at"`
}

// NewRoute builds a descriptor for an outgoing (ROUTE) staging folder.
// Grounded on generate_taskfile_route in the original source: it resolves
// the target's network address and AE titles at staging time so the
// transfer worker never needs to re-read configuration.
func NewRoute(seriesUID string, trigger rule.Trigger, ruleName string, tgt target.Target) Descriptor {
	return Descriptor{
		TargetAddress:   tgt.Address,
		TargetPort:      tgt.Port,
		TargetAETTarget: tgt.ReceiverID,
		TargetAETSource: tgt.EffectiveSenderID(),
		TargetName:      tgt.Name,
		RuleName:        ruleName,
		SeriesUID:       seriesUID,
		ActionTrigger:   trigger,
		Retries:         0,
		NextRetryAt:     0,
	}
}

// NewProcess builds a descriptor for a processing folder. Processing
// folders have no network target; the descriptor records only what rule
// and series produced them, for the external processing stage to consume.
func NewProcess(seriesUID string, trigger rule.Trigger, ruleName string) Descriptor {
	return Descriptor{
		RuleName:      ruleName,
		SeriesUID:     seriesUID,
		ActionTrigger: trigger,
	}
}

// WriteAtomic serializes d to path via a temp file + rename, so readers
// never observe a partially-written descriptor (§3 "the task descriptor is
// written and durable before the folder becomes eligible for dispatch").
func WriteAtomic(path string, d Descriptor) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write descriptor temp %s: %v", errs.ErrFSTransient, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: rename descriptor into %s: %v", errs.ErrFSTransient, path, err)
	}
	return nil
}

// Read loads a descriptor from path.
func Read(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: read descriptor %s: %v", errs.ErrFSTransient, path, err)
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("%w: parse descriptor %s: %v", errs.ErrFSTransient, path, err)
	}
	return d, nil
}

// IsWellFormed reports whether a descriptor carries both series_uid and
// target_name. The dispatcher emits a PROCESSING/WARNING for a descriptor
// that does not, but still dispatches the folder (§4.6).
func (d Descriptor) IsWellFormed() bool {
	return d.SeriesUID != "" && d.TargetName != ""
}

// RoutePath returns the conventional descriptor path for an outgoing
// folder.
func RoutePath(folder string) string { return filepath.Join(folder, RouteFileName) }

// ProcessPath returns the conventional descriptor path for a processing
// folder.
func ProcessPath(folder string) string { return filepath.Join(folder, ProcessFileName) }
