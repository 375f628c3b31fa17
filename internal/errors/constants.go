package errors

// Error message constants
const (
	ErrMsgNoAppliedRecord   = "no applied record for version"
	ErrMsgNoMigrationUnit   = "no migration unit for version"
	ErrMsgDuplicateVersion  = "migration version already recorded"
	ErrMsgDatabaseRequired  = "database connection settings are required"
	ErrMsgDatabaseReachable = "database is unreachable"
)
