package main

import (
	"database/sql"
	"os"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	server_config "github.com/carson-networks/wallet-server/internal/config"
	"github.com/carson-networks/wallet-server/internal/storage"
)

func main() {
	env, err := server_config.ProcessEnvironmentVariables()
	if err != nil {
		logrus.WithError(err).Fatal("ProcessEnvironmentVariables")
		return
	}

	source := os.Getenv("WALLET_MIGRATIONS_SOURCE")
	if source == "" {
		source = "file://migrations"
	}

	targets := map[string]server_config.Postgres{"ledger": env.Postgres}
	if env.TransactionLog != env.Postgres {
		targets["transactionLog"] = env.TransactionLog
	}

	for name, target := range targets {
		db, err := sql.Open("postgres", target.DSN())
		if err != nil {
			logrus.WithError(err).WithField("database", name).Fatal("sql.Open")
			return
		}

		preMigrationVersion, postMigrationVersion, err := storage.Migrate(db, source)
		_ = db.Close()
		if err != nil {
			logrus.WithError(err).WithField("database", name).Fatal("storage.Migrate")
			return
		}

		logrus.WithFields(logrus.Fields{
			"database":             name,
			"preMigrationVersion":  preMigrationVersion,
			"postMigrationVersion": postMigrationVersion,
		}).Info("Migration status")
	}
}
