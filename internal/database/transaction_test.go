package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/p4market/catalogdb/testhelper"
)

func countVendors(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table("vendor").Count(&n).Error)
	return n
}

func newVendorDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := testhelper.NewTestDB(t)
	require.NoError(t, db.Exec("CREATE TABLE vendor (id INTEGER PRIMARY KEY, name TEXT NOT NULL)").Error)
	return db
}

func TestWithTransactionCommits(t *testing.T) {
	db := newVendorDB(t)

	err := WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
		return tx.Exec("INSERT INTO vendor (id, name) VALUES (1, 'acme')").Error
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countVendors(t, db))
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := newVendorDB(t)
	boom := errors.New("boom")

	err := WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO vendor (id, name) VALUES (1, 'acme')").Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), countVendors(t, db))
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	db := newVendorDB(t)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
			if err := tx.Exec("INSERT INTO vendor (id, name) VALUES (1, 'acme')").Error; err != nil {
				return err
			}
			panic("kaboom")
		})
	})
	assert.Equal(t, int64(0), countVendors(t, db))

	// the single pooled connection must be usable again after the panic
	require.NoError(t, db.Exec("INSERT INTO vendor (id, name) VALUES (2, 'globex')").Error)
	assert.Equal(t, int64(1), countVendors(t, db))
}

func TestWithTransactionCanceledContext(t *testing.T) {
	db := newVendorDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WithTransaction(ctx, db, func(tx *gorm.DB) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestExecScriptMultipleStatements(t *testing.T) {
	db := testhelper.NewTestDB(t)

	script := `
CREATE TABLE vendor (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
INSERT INTO vendor (id, name) VALUES (1, 'what?');
`
	err := WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
		return ExecScript(context.Background(), tx, script)
	})
	require.NoError(t, err)

	var name string
	require.NoError(t, db.Raw("SELECT name FROM vendor WHERE id = 1").Scan(&name).Error)
	assert.Equal(t, "what?", name)
}
