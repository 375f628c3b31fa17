package errors

import "fmt"

// Error method implementation for ConnectionError
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection error: %s: %v", e.Message, e.Cause)
	}
	return "connection error: " + e.Message
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// Error method implementation for LoadError
func (e *LoadError) Error() string {
	msg := "load error"
	if e.Source != "" {
		msg += " (" + e.Source + ")"
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Cause }

// Error method implementation for SQLExecutionError
func (e *SQLExecutionError) Error() string {
	return fmt.Sprintf("migration %d (%s) failed: %v", e.Version, e.Name, e.Cause)
}

func (e *SQLExecutionError) Unwrap() error { return e.Cause }

// Error method implementation for DuplicateVersionError
func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("%s: %d", ErrMsgDuplicateVersion, e.Version)
}

// Error method implementation for NotFoundError
func (e *NotFoundError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = ErrMsgNoAppliedRecord
	}
	return fmt.Sprintf("%s: %d", msg, e.Version)
}

// Error method implementation for ChecksumDriftError
func (e *ChecksumDriftError) Error() string {
	return fmt.Sprintf("checksum drift for migration %d (%s): recorded %s, current %s",
		e.Version, e.Name, shortChecksum(e.Recorded), shortChecksum(e.Current))
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}

// NewConnectionError creates a new ConnectionError
func NewConnectionError(message string, cause error) *ConnectionError {
	return &ConnectionError{
		Message: message,
		Cause:   cause,
	}
}

// NewLoadError creates a new LoadError
func NewLoadError(source, message string, cause error) *LoadError {
	return &LoadError{
		Source:  source,
		Message: message,
		Cause:   cause,
	}
}

// NewSQLExecutionError creates a new SQLExecutionError
func NewSQLExecutionError(version int64, name string, cause error) *SQLExecutionError {
	return &SQLExecutionError{
		Version: version,
		Name:    name,
		Cause:   cause,
	}
}

// NewDuplicateVersionError creates a new DuplicateVersionError
func NewDuplicateVersionError(version int64) *DuplicateVersionError {
	return &DuplicateVersionError{Version: version}
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(version int64, message string) *NotFoundError {
	return &NotFoundError{
		Version: version,
		Message: message,
	}
}

// NewChecksumDriftError creates a new ChecksumDriftError
func NewChecksumDriftError(version int64, name, recorded, current string) *ChecksumDriftError {
	return &ChecksumDriftError{
		Version:  version,
		Name:     name,
		Recorded: recorded,
		Current:  current,
	}
}
