//go:build integration

package pgcheck

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestVerify_Postgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("postgres"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("H0nd@666"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	adminDSN, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	admin, err := pgx.Connect(ctx, adminDSN)
	require.NoError(t, err)
	for _, stmt := range []string{
		"CREATE USER muproc WITH PASSWORD 'muproc'",
		"CREATE DATABASE muproc",
		"ALTER DATABASE muproc OWNER TO muproc",
		"CREATE DATABASE other",
	} {
		_, err := admin.Exec(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	require.NoError(t, admin.Close(ctx))

	parsed, err := pgx.ParseConfig(adminDSN)
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://muproc:muproc@%s:%d/muproc?sslmode=disable", parsed.Host, parsed.Port)

	t.Run("owned", func(t *testing.T) {
		rep, err := Verify(ctx, dsn, "muproc", "muproc")
		require.NoError(t, err)
		assert.Equal(t, "muproc", rep.CurrentUser)
		assert.Equal(t, "muproc", rep.CurrentDatabase)
		assert.NotEmpty(t, rep.ServerVersion)
	})

	t.Run("wrong owner", func(t *testing.T) {
		_, err := Verify(ctx, dsn, "other", "muproc")
		var mErr *MismatchError
		require.ErrorAs(t, err, &mErr)
		assert.Equal(t, "postgres", mErr.Got)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Verify(ctx, dsn, "nope", "muproc")
		assert.ErrorIs(t, err, ErrDatabaseMissing)
	})
}
