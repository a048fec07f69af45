package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"catastro/internal/config"
	"catastro/internal/database"
	"catastro/internal/reconcile"
	"catastro/internal/source"
)

// openReferences builds one source per configured reference. A database that
// cannot be reached becomes a Failed source so the resolver decides whether
// the run aborts. The returned closer releases every open connection.
func openReferences(ctx context.Context, refs []config.ReferenceConfig) ([]reconcile.ReferenceSource, []*database.Reference, io.Closer) {
	var (
		sources []reconcile.ReferenceSource
		sqlRefs []*database.Reference
		dbs     closers
	)
	for _, rc := range refs {
		if rc.Kind == config.KindFile {
			sources = append(sources, source.NewListReference(rc.Name, rc.Path, rc.Column))
			continue
		}

		db, err := database.NewDatabase(ctx, dbConfig(rc), logger.With(zap.String("reference", rc.Name)))
		if err != nil {
			logger.Warn("reference database unreachable", zap.String("reference", rc.Name), zap.Error(err))
			sources = append(sources, reconcile.Failed{Source: rc.Name, Err: err})
			continue
		}
		dbs = append(dbs, db)

		ref := db.Reference(database.ReferenceQuery{
			Name:       rc.Name,
			SQL:        rc.Query,
			LookupSQL:  rc.Lookup,
			DateLayout: rc.DateFormat,
		})
		sources = append(sources, ref)
		sqlRefs = append(sqlRefs, ref)
	}
	return sources, sqlRefs, dbs
}

func dbConfig(rc config.ReferenceConfig) database.DBConfig {
	if rc.Kind == config.KindSQLite {
		return database.DBConfig{Driver: database.DriverSQLite, Path: rc.Path}
	}
	return database.LoadDatabaseConfig(rc.EnvPrefix, rc.Kind)
}

type closers []*database.Database

func (c closers) Close() error {
	var first error
	for _, db := range c {
		if err := db.Close(); err != nil && first == nil {
			first = fmt.Errorf("close database: %w", err)
		}
	}
	return first
}
