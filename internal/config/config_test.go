package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9446", cfg.Port)
	assert.Equal(t, "localhost", cfg.Postgres.Address)
	assert.Equal(t, "5433", cfg.Postgres.Port)
	assert.Equal(t, "transactions", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Saga.MaxAttempts)
	assert.Equal(t, 300*time.Second, cfg.Idempotency.TTL)
	assert.Equal(t, cfg.Postgres, cfg.TransactionLog)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WALLET_PORT", "8080")
	t.Setenv("WALLET_POSTGRES__ADDRESS", "db.internal")
	t.Setenv("WALLET_TRANSACTION_LOG__ADDRESS", "log.internal")
	t.Setenv("WALLET_KAFKA__BROKERS", "k1:9092,k2:9092")
	t.Setenv("WALLET_SAGA__MAX_ATTEMPTS", "5")
	t.Setenv("WALLET_IDEMPOTENCY__TTL", "90s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "db.internal", cfg.Postgres.Address)
	assert.Equal(t, "log.internal", cfg.TransactionLog.Address)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Saga.MaxAttempts)
	assert.Equal(t, 90*time.Second, cfg.Idempotency.TTL)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.yaml")
	content := []byte("port: \"7000\"\nredis:\n  address: redis:6379\nflutterwave:\n  secret_key: FLWSECK-test\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, "FLWSECK-test", cfg.Flutterwave.SecretKey)
	assert.Equal(t, "MPS", cfg.Flutterwave.BankCode)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestPostgres_DSN(t *testing.T) {
	p := Postgres{Address: "localhost", Port: "5433", DB: "postgres", Username: "u", Password: "p"}
	assert.Equal(t, "postgres://u:p@localhost:5433/postgres?sslmode=disable", p.DSN())
}

func TestLoad_EnvBrokerList(t *testing.T) {
	t.Setenv("WALLET_KAFKA__BROKERS", " k1:9092 ,,k2:9092,k3:9092")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092", "k3:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_EnvSingleBroker(t *testing.T) {
	t.Setenv("WALLET_KAFKA__BROKERS", "kafka:9092")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
}
