package main

import (
	"context"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/p4market/catalogdb/internal/config"
	"github.com/p4market/catalogdb/internal/database"
	"github.com/p4market/catalogdb/internal/logger"
	"github.com/p4market/catalogdb/internal/migration"
	"github.com/p4market/catalogdb/internal/verify"
	"github.com/p4market/catalogdb/migrations"
)

// app wires the services one invocation needs
type app struct {
	cfg      *config.Config
	logger   logger.Logger
	runID    string
	ctx      context.Context
	dbSvc    *database.DatabaseService
	db       *gorm.DB
	registry *migration.Registry
	store    *migration.Store
}

// newApp loads configuration and, when withRegistry is set, the migration
// registry, then connects. The registry is loaded first so a malformed
// migration set fails without touching the database. Commands that never
// look at migrations (verify) skip it.
func newApp(ctx context.Context, opts *rootOptions, withRegistry bool) (*app, error) {
	bootLogger, err := logger.NewLogger(nil)
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewConfigService(bootLogger).Load(opts.configDir)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	baseLogger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, err
	}
	log := baseLogger.WithFields(map[string]interface{}{
		"run_id": runID,
	})

	var registry *migration.Registry
	if withRegistry {
		registry, err = loadRegistry(opts, cfg)
		if err != nil {
			return nil, log.LogError(err, "Failed to load migrations")
		}
		log.LogInfo("Migrations loaded", map[string]interface{}{
			"units": registry.Len(),
		})
	}

	ctx = logger.ContextWithRunID(ctx, runID)
	dbSvc := database.NewDatabaseService(&cfg.Database, log)
	db, err := dbSvc.Connect(ctx)
	if err != nil {
		return nil, log.LogError(err, "Failed to connect to database")
	}

	return &app{
		cfg:      cfg,
		logger:   log,
		runID:    runID,
		ctx:      ctx,
		dbSvc:    dbSvc,
		db:       db,
		registry: registry,
		store:    migration.NewStore(db, cfg.Migration.Table),
	}, nil
}

func loadRegistry(opts *rootOptions, cfg *config.Config) (*migration.Registry, error) {
	dir := opts.dir
	if dir == "" {
		dir = cfg.Migration.Dir
	}

	var fsys fs.FS = migrations.FS
	root := migrations.Dir
	if dir != "" {
		fsys = os.DirFS(dir)
		root = "."
	}
	return migration.LoadRegistry(fsys, root)
}

func (a *app) runner() *migration.Runner {
	return migration.NewRunner(a.db, a.registry, a.store, a.logger, migration.RunnerOptions{
		UnitTimeout: a.cfg.Migration.UnitTimeout,
	})
}

func (a *app) repairer() *migration.Repairer {
	return migration.NewRepairer(a.registry, a.store, a.logger)
}

func (a *app) verifier() *verify.Verifier {
	return verify.NewVerifier(a.db, a.logger)
}

// tableSpecs returns the configured expected tables, or the catalog's
func (a *app) tableSpecs() []verify.TableSpec {
	if len(a.cfg.Verify.Tables) == 0 {
		return migrations.ExpectedTables()
	}
	specs := make([]verify.TableSpec, 0, len(a.cfg.Verify.Tables))
	for _, t := range a.cfg.Verify.Tables {
		specs = append(specs, verify.TableSpec{Name: t.Name, Columns: t.Columns})
	}
	return specs
}

func (a *app) close() {
	if err := a.dbSvc.Close(); err != nil {
		a.logger.LogError(err, "Failed to close database")
	}
}

func (a *app) ping(ctx context.Context) error {
	return database.Ping(ctx, a.db)
}
