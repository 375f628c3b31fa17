package errors

// ConnectionError represents an unreachable database or an unusable
// connection descriptor. It aborts the whole invocation.
type ConnectionError struct {
	Message string
	Cause   error
}

// LoadError represents a malformed migration registry
type LoadError struct {
	Source  string
	Message string
	Cause   error
}

// SQLExecutionError represents a failure while executing a migration unit.
// The unit's transaction has been rolled back when this error is returned.
type SQLExecutionError struct {
	Version int64
	Name    string
	Cause   error
}

// DuplicateVersionError is returned when an applied record already exists for a version
type DuplicateVersionError struct {
	Version int64
}

// NotFoundError is returned when a version has no applied record or no migration unit
type NotFoundError struct {
	Version int64
	Message string
}

// ChecksumDriftError describes a migration whose source changed after it was applied.
// It is informational and surfaced in reports rather than aborting a run.
type ChecksumDriftError struct {
	Version  int64
	Name     string
	Recorded string
	Current  string
}
