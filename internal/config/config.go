package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped to config keys.
// Sections are separated by a double underscore: WALLET_POSTGRES__ADDRESS -> postgres.address.
const EnvPrefix = "WALLET_"

type Config struct {
	Port     string `koanf:"port"`
	LogLevel string `koanf:"log_level"`
	Workers  int    `koanf:"workers"`

	Postgres       Postgres `koanf:"postgres"`
	TransactionLog Postgres `koanf:"transaction_log"`

	Redis       Redis       `koanf:"redis"`
	Kafka       Kafka       `koanf:"kafka"`
	Flutterwave Flutterwave `koanf:"flutterwave"`
	Twilio      Twilio      `koanf:"twilio"`
	Saga        Saga        `koanf:"saga"`
	Idempotency Idempotency `koanf:"idempotency"`
}

type Postgres struct {
	Address  string `koanf:"address"`
	Port     string `koanf:"port"`
	DB       string `koanf:"db"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// DSN builds a lib/pq connection string.
func (p Postgres) DSN() string {
	return "postgres://" + p.Username + ":" +
		p.Password + "@" + p.Address + ":" +
		p.Port + "/" + p.DB + "?sslmode=disable"
}

// Redis backs the idempotency guard. An empty address selects the in-process guard.
type Redis struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// Kafka backs the event bus. No brokers selects the in-process bus.
type Kafka struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
	GroupID string   `koanf:"group_id"`
}

type Flutterwave struct {
	BaseURL   string        `koanf:"base_url"`
	SecretKey string        `koanf:"secret_key"`
	BankCode  string        `koanf:"bank_code"`
	Timeout   time.Duration `koanf:"timeout"`
}

// Twilio credentials. Leaving any of them empty logs SMS instead of sending them.
type Twilio struct {
	AccountSID string `koanf:"account_sid"`
	AuthToken  string `koanf:"auth_token"`
	FromNumber string `koanf:"from_number"`
}

type Saga struct {
	MaxAttempts int `koanf:"max_attempts"`
}

type Idempotency struct {
	TTL time.Duration `koanf:"ttl"`
}

// In all cases the default behavior should be for the docker compose setup
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":      "9446",
		"log_level": "info",
		"workers":   4,

		"postgres.address":  "localhost",
		"postgres.port":     "5433",
		"postgres.db":       "postgres",
		"postgres.username": "postgres",
		"postgres.password": "testpassword",

		"redis.address": "",
		"redis.db":      0,

		"kafka.brokers":  []string{},
		"kafka.topic":    "transactions",
		"kafka.group_id": "wallet-saga",

		"flutterwave.base_url":  "https://api.flutterwave.com/v3",
		"flutterwave.bank_code": "MPS",
		"flutterwave.timeout":   15 * time.Second,

		"saga.max_attempts": 3,
		"idempotency.ttl":   300 * time.Second,
	}
}

// Load layers defaults, an optional YAML file and WALLET_ environment variables, in that order.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
	}

	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil)
	if err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	cfg := Config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	// The transaction log shares the ledger database unless it is pointed elsewhere.
	if cfg.TransactionLog.Address == "" {
		cfg.TransactionLog = cfg.Postgres
	}

	return &cfg, nil
}

// listKeys are read from the environment as comma separated lists.
var listKeys = map[string]bool{
	"kafka.brokers": true,
}

func envValue(name, value string) (string, interface{}) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "__", ".")
	if !listKeys[key] {
		return key, value
	}

	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// ProcessEnvironmentVariables loads the configuration without a file.
func ProcessEnvironmentVariables() (*Config, error) {
	return Load("")
}
