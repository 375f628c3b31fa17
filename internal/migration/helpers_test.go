package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/p4market/catalogdb/testhelper"
)

const (
	createVendorSQL  = "CREATE TABLE vendor (id TEXT PRIMARY KEY, name TEXT NOT NULL);"
	createProductSQL = "CREATE TABLE product (id TEXT PRIMARY KEY, vendor_id TEXT NOT NULL REFERENCES vendor(id));"
)

type fixture struct {
	db     *gorm.DB
	store  *Store
	logger *testhelper.TestLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testhelper.NewTestDB(t)
	return &fixture{
		db:     db,
		store:  NewStore(db, ""),
		logger: testhelper.NewTestLogger(false),
	}
}

func (f *fixture) registry(t *testing.T, units ...Unit) *Registry {
	t.Helper()
	reg, err := NewRegistry(units...)
	require.NoError(t, err)
	return reg
}

func (f *fixture) runner(reg *Registry) *Runner {
	return NewRunner(f.db, reg, f.store, f.logger, RunnerOptions{})
}

func (f *fixture) repairer(reg *Registry) *Repairer {
	return NewRepairer(reg, f.store, f.logger)
}

func (f *fixture) run(t *testing.T, reg *Registry) *Report {
	t.Helper()
	report, err := f.runner(reg).Run(context.Background())
	require.NoError(t, err)
	return report
}

func (f *fixture) hasTable(name string) bool {
	return f.db.Migrator().HasTable(name)
}
