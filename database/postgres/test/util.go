package test

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/pkg/errors"

	pg "github.com/openiap/storebridge/database/postgres"
)

const (
	containerName    = "postgres"
	containerVersion = "16"

	postgresUser     = "storebridge"
	postgresPassword = "password"
	postgresDb       = "storebridge_test"
)

type TestEnv struct {
	TestPool    *dockertest.Pool
	DatabaseUrl string

	// Db is an instrumented database/sql handle to the same database,
	// opened through the nrpgx driver the way production callers do.
	Db *sql.DB
}

// NewTestEnv starts a throwaway postgres container and waits until it
// accepts connections.
func NewTestEnv() (*TestEnv, error) {
	testPool, err := dockertest.NewPool("")
	if err != nil {
		return nil, errors.Wrap(err, "error creating dockertest pool")
	}

	resource, err := testPool.Run(containerName, containerVersion, []string{
		"POSTGRES_USER=" + postgresUser,
		"POSTGRES_PASSWORD=" + postgresPassword,
		"POSTGRES_DB=" + postgresDb,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error starting postgres container")
	}
	resource.Expire(600)

	port := resource.GetPort("5432/tcp")
	databaseUrl := fmt.Sprintf(
		"postgres://%s:%s@localhost:%s/%s?sslmode=disable",
		postgresUser,
		postgresPassword,
		port,
		postgresDb,
	)

	err = testPool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, databaseUrl)
		if err != nil {
			return err
		}
		defer pool.Close()

		return pool.Ping(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "error waiting for postgres connection")
	}

	db, err := pg.NewWithUsernameAndPassword(postgresUser, postgresPassword, "localhost", port, postgresDb)
	if err != nil {
		return nil, errors.Wrap(err, "error opening instrumented db handle")
	}

	return &TestEnv{
		TestPool:    testPool,
		DatabaseUrl: databaseUrl,
		Db:          db,
	}, nil
}

// ApplySchema executes DDL statements against the test database through the
// instrumented handle.
func (e *TestEnv) ApplySchema(statements ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range statements {
		if _, err := e.Db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "error applying schema statement")
		}
	}
	return nil
}
