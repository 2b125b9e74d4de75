// Package pgcheck verifies a provisioned database over the PostgreSQL wire
// protocol.
package pgcheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/schmitthub/testdb/internal/config"
)

// Report is what Verify observed on the server.
type Report struct {
	CurrentUser     string
	CurrentDatabase string
	Owner           string
	ServerVersion   string
}

// MismatchError reports a database owned by someone other than expected.
type MismatchError struct {
	Database string
	Want     string
	Got      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("database %s is owned by %s, expected %s", e.Database, e.Got, e.Want)
}

// ErrDatabaseMissing is returned when the database is absent from pg_database.
var ErrDatabaseMissing = errors.New("database does not exist")

// DSN returns the connection URL for the application user against the
// mapped host port.
func DSN(cfg *config.Config) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Database.User, cfg.Database.Password),
		Host:     net.JoinHostPort("localhost", strconv.Itoa(cfg.Container.HostPort)),
		Path:     "/" + cfg.DatabaseName(),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Redact returns dsn with the password masked, for logs and messages.
func Redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<invalid dsn>"
	}
	return u.Redacted()
}

const ownerQuery = `SELECT pg_catalog.pg_get_userbyid(d.datdba)
FROM pg_catalog.pg_database d
WHERE d.datname = $1`

// Verify connects with dsn and checks that database db exists and is owned
// by owner.
func Verify(ctx context.Context, dsn, db, owner string) (*Report, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", Redact(dsn), err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	rep := &Report{}
	if err := conn.QueryRow(ctx, "SELECT current_user, current_database(), current_setting('server_version')").
		Scan(&rep.CurrentUser, &rep.CurrentDatabase, &rep.ServerVersion); err != nil {
		return nil, fmt.Errorf("querying session info: %w", err)
	}

	if err := conn.QueryRow(ctx, ownerQuery, db).Scan(&rep.Owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rep, fmt.Errorf("%s: %w", db, ErrDatabaseMissing)
		}
		return rep, fmt.Errorf("querying owner of %s: %w", db, err)
	}

	if rep.Owner != owner {
		return rep, &MismatchError{Database: db, Want: owner, Got: rep.Owner}
	}
	return rep, nil
}
