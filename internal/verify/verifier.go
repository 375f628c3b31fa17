package verify

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/p4market/catalogdb/internal/database"
	"github.com/p4market/catalogdb/internal/logger"
)

// Verifier inspects live tables. It never modifies the database.
type Verifier struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewVerifier creates a new schema verifier
func NewVerifier(db *gorm.DB, logger logger.Logger) *Verifier {
	return &Verifier{
		db:     db,
		logger: logger,
	}
}

// Verify reports existence, columns and row count for every expected table, in the
// order given. It fails only when the database cannot be reached; problems
// with an individual table are recorded on that table's state.
func (v *Verifier) Verify(ctx context.Context, specs []TableSpec) (*SchemaReport, error) {
	if err := database.Ping(ctx, v.db); err != nil {
		return nil, v.logger.LogError(err, "Schema verification aborted")
	}

	report := &SchemaReport{
		Tables:    make([]TableState, 0, len(specs)),
		CheckedAt: time.Now().UTC(),
	}
	for _, spec := range specs {
		state := v.inspect(ctx, spec)
		report.Tables = append(report.Tables, state)

		fields := map[string]interface{}{
			"table":     state.Name,
			"exists":    state.Exists,
			"row_count": state.RowCount,
		}
		switch {
		case state.Conforms():
			v.logger.LogInfo("Table verified", fields)
		case !state.Exists:
			v.logger.LogWarn("Table missing", fields)
		default:
			fields["missing_columns"] = state.MissingColumns
			fields["error"] = state.Error
			v.logger.LogWarn("Table does not conform", fields)
		}
	}
	return report, nil
}

func (v *Verifier) inspect(ctx context.Context, spec TableSpec) TableState {
	state := TableState{Name: spec.Name}
	db := v.db.WithContext(ctx)

	if !db.Migrator().HasTable(spec.Name) {
		state.MissingColumns = append([]string(nil), spec.Columns...)
		return state
	}
	state.Exists = true

	columnTypes, err := db.Migrator().ColumnTypes(spec.Name)
	if err != nil {
		state.Error = err.Error()
		return state
	}
	present := make(map[string]bool, len(columnTypes))
	for _, ct := range columnTypes {
		state.Columns = append(state.Columns, ct.Name())
		present[strings.ToLower(ct.Name())] = true
	}
	for _, col := range spec.Columns {
		if !present[strings.ToLower(col)] {
			state.MissingColumns = append(state.MissingColumns, col)
		}
	}

	if err := db.Table(spec.Name).Count(&state.RowCount).Error; err != nil {
		state.Error = err.Error()
	}
	return state
}
