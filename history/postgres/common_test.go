//go:build integration

package postgres

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"

	pgtest "github.com/openiap/storebridge/database/postgres/test"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testEnv *pgtest.TestEnv

func TestMain(m *testing.M) {
	log := logrus.StandardLogger()

	// Create a new test environment
	env, err := pgtest.NewTestEnv()
	if err != nil {
		log.WithError(err).Error("Error creating test environment")
		os.Exit(1)
	}

	if err := env.ApplySchema(Schema); err != nil {
		log.WithError(err).Error("Error applying schema")
		os.Exit(1)
	}

	// Set the test environment
	testEnv = env

	// Run tests
	code := m.Run()
	os.Exit(code)
}
