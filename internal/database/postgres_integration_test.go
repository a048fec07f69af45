//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"catastro/internal/types"
)

func TestPostgresReference(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("resoluciones"),
		tcpostgres.WithUsername("catastro"),
		tcpostgres.WithPassword("catastro"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	d, err := NewDatabase(ctx, DBConfig{
		Driver:   DriverPostgres,
		Host:     host,
		Port:     port.Port(),
		Service:  "resoluciones",
		Username: "catastro",
		Password: "catastro",
		SSLMode:  "disable",
	}, zap.NewNop())
	require.NoError(t, err)
	defer d.Close()

	_, err = d.db.ExecContext(ctx, `
		CREATE TABLE resoluciones (numero_predial TEXT, fecha DATE);
		INSERT INTO resoluciones VALUES
			('251260001', '2025-04-01'),
			('251260002', '2024-06-01'),
			('251260003', '2025-11-30');
	`)
	require.NoError(t, err)

	ref := d.Reference(ReferenceQuery{
		Name:      "resoluciones",
		SQL:       `SELECT numero_predial FROM resoluciones WHERE fecha BETWEEN $1 AND $2`,
		LookupSQL: `SELECT numero_predial FROM resoluciones WHERE numero_predial = ANY($1)`,
	})

	ids, err := ref.ChangedIdentifiers(ctx,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, types.NewIDSet("251260001", "251260003"), ids)

	found, err := ref.Lookup(ctx, []string{"251260002", "999"})
	require.NoError(t, err)
	assert.Equal(t, types.NewIDSet("251260002"), found)
}
