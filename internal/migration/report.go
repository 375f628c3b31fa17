package migration

import (
	"time"

	apperrors "github.com/p4market/catalogdb/internal/errors"
)

// UnitOutcome describes one unit in a run report
type UnitOutcome struct {
	Version     int64     `json:"version" yaml:"version"`
	Name        string    `json:"name" yaml:"name"`
	Checksum    string    `json:"checksum" yaml:"checksum"`
	InstalledAt time.Time `json:"installed_at,omitempty" yaml:"installed_at,omitempty"`
	ExecutionMs int64     `json:"execution_ms,omitempty" yaml:"execution_ms,omitempty"`
}

// Drift is an applied unit whose source changed after it was applied
type Drift struct {
	Version  int64  `json:"version" yaml:"version"`
	Name     string `json:"name" yaml:"name"`
	Recorded string `json:"recorded_checksum" yaml:"recorded_checksum"`
	Current  string `json:"current_checksum" yaml:"current_checksum"`
}

// Err returns the drift as a ChecksumDriftError
func (d Drift) Err() error {
	return apperrors.NewChecksumDriftError(d.Version, d.Name, d.Recorded, d.Current)
}

// Failure describes the unit or record that stopped a run
type Failure struct {
	Version int64  `json:"version" yaml:"version"`
	Name    string `json:"name" yaml:"name"`
	Error   string `json:"error" yaml:"error"`
}

// Report is the outcome of a run or a plan. Skipped holds every unit that
// was already applied, including drifted ones; Pending holds units that
// were not applied by this invocation.
type Report struct {
	Applied []UnitOutcome `json:"applied" yaml:"applied"`
	Skipped []UnitOutcome `json:"skipped" yaml:"skipped"`
	Pending []UnitOutcome `json:"pending" yaml:"pending"`
	Drifted []Drift       `json:"drifted" yaml:"drifted"`
	Unknown []int64       `json:"unknown,omitempty" yaml:"unknown,omitempty"`
	Failed  *Failure      `json:"failed,omitempty" yaml:"failed,omitempty"`
}

func newReport() *Report {
	return &Report{
		Applied: []UnitOutcome{},
		Skipped: []UnitOutcome{},
		Pending: []UnitOutcome{},
		Drifted: []Drift{},
	}
}

// AppliedVersions returns the versions applied by this run
func (r *Report) AppliedVersions() []int64 {
	versions := make([]int64, 0, len(r.Applied))
	for _, o := range r.Applied {
		versions = append(versions, o.Version)
	}
	return versions
}

// DriftedVersions returns the versions reported as drifted
func (r *Report) DriftedVersions() []int64 {
	versions := make([]int64, 0, len(r.Drifted))
	for _, d := range r.Drifted {
		versions = append(versions, d.Version)
	}
	return versions
}

// HasDrift reports whether any drift was found
func (r *Report) HasDrift() bool {
	return len(r.Drifted) > 0
}

// OK reports whether the run finished without a failure
func (r *Report) OK() bool {
	return r.Failed == nil
}

// Repair outcome statuses
const (
	StatusRepaired  = "repaired"
	StatusUnchanged = "unchanged"
	StatusForgotten = "forgotten"
	StatusFailed    = "failed"
)

// RepairResult is the outcome for one requested version
type RepairResult struct {
	Version  int64  `json:"version" yaml:"version"`
	Status   string `json:"status" yaml:"status"`
	Previous string `json:"previous_checksum,omitempty" yaml:"previous_checksum,omitempty"`
	Current  string `json:"current_checksum,omitempty" yaml:"current_checksum,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RepairReport lists per-version outcomes in request order
type RepairReport struct {
	Results []RepairResult `json:"results" yaml:"results"`
}

// Failed returns the results that did not succeed
func (r *RepairReport) Failed() []RepairResult {
	var failed []RepairResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Succeeded returns the results that did succeed
func (r *RepairReport) Succeeded() []RepairResult {
	var ok []RepairResult
	for _, res := range r.Results {
		if res.Status != StatusFailed {
			ok = append(ok, res)
		}
	}
	return ok
}
