package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/carson-networks/wallet-server/api"
	"github.com/carson-networks/wallet-server/internal/bus"
	"github.com/carson-networks/wallet-server/internal/config"
	"github.com/carson-networks/wallet-server/internal/gateway"
	"github.com/carson-networks/wallet-server/internal/handlers/v1/status"
	"github.com/carson-networks/wallet-server/internal/logging"
	"github.com/carson-networks/wallet-server/internal/notify"
	"github.com/carson-networks/wallet-server/internal/operator"
	"github.com/carson-networks/wallet-server/internal/saga"
	"github.com/carson-networks/wallet-server/internal/service"
	"github.com/carson-networks/wallet-server/internal/storage"
	"github.com/carson-networks/wallet-server/internal/storage/idempotency"
)

// sagaDrainTimeout bounds how long shutdown waits for in-flight withdrawals. Three attempts
// with the default backoff settle in well under this.
const sagaDrainTimeout = 30 * time.Second

func main() {
	app := &cli.App{
		Name:  "wallet-server",
		Usage: "USSD mobile-money wallet backend",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API, the transaction consumer and the withdrawal sagas",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"WALLET_CONFIG"}},
					&cli.StringFlag{Name: "port", Usage: "HTTP port, overrides the config"},
				},
				Action: serve,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("wallet-server")
	}
}

func serve(c *cli.Context) error {
	envConfig, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if port := c.String("port"); port != "" {
		envConfig.Port = port
	}

	logger := logging.SetupLogging(envConfig.LogLevel)
	logger.Info("wallet-server starting")

	dbStorage, err := storage.NewStorage(envConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbStorage.Close(); err != nil {
			logger.WithError(err).Error("storage.Close")
		}
	}()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := newNotifier(logger, envConfig)
	svc := service.NewService(dbStorage, notifier)

	coordinator := saga.NewCoordinator(saga.Config{
		Logger: logger,
		Gateway: gateway.NewFlutterwaveGateway(
			logger,
			envConfig.Flutterwave.BaseURL,
			envConfig.Flutterwave.SecretKey,
			envConfig.Flutterwave.Timeout,
		),
		Ledger:       svc.Account,
		Transactions: svc.Transaction,
		Notifier:     notifier,
		Options: saga.Options{
			MaxAttempts: envConfig.Saga.MaxAttempts,
			BankCode:    envConfig.Flutterwave.BankCode,
		},
	})

	delegator := operator.NewOperatorDelegator(logger, envConfig.Workers)
	delegator.Start()

	publisher, consumer := newBus(logger, envConfig)
	defer func() {
		_ = publisher.Close()
		_ = consumer.Close()
	}()

	guard, closeGuard := newGuard(logger, envConfig)
	defer closeGuard()

	svc.Wallet = service.NewWalletService(service.WalletConfig{
		Logger:         logger,
		Accounts:       svc.Account,
		Transactions:   svc.Transaction,
		Guard:          guard,
		Publisher:      publisher,
		Fallback:       operator.NewDispatcher(ctx, logger, delegator, coordinator),
		Notifier:       notifier,
		IdempotencyTTL: envConfig.Idempotency.TTL,
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		httpRest := api.Rest{
			Logger:   logger,
			Port:     envConfig.Port,
			Service:  svc,
			Operator: delegator,
			Health: map[string]status.Pinger{
				"ledger":         dbStorage.LedgerDB,
				"transactionLog": dbStorage.LogDB,
			},
		}
		return httpRest.Serve(groupCtx)
	})
	group.Go(func() error {
		return consumer.Run(groupCtx, coordinator)
	})

	err = group.Wait()
	logger.Info("wallet-server draining")

	// Fallback deliveries may still launch sagas, so the workers stop first.
	delegator.Stop()
	drainCtx, cancel := context.WithTimeout(context.Background(), sagaDrainTimeout)
	defer cancel()
	if waitErr := coordinator.Wait(drainCtx); waitErr != nil {
		logger.WithError(waitErr).Error("wallet-server withdrawals still in flight")
	}

	logger.Info("wallet-server stopped")
	return err
}

func newNotifier(logger *logrus.Logger, envConfig *config.Config) notify.Notifier {
	tw := envConfig.Twilio
	if tw.AccountSID == "" || tw.AuthToken == "" || tw.FromNumber == "" {
		logger.Warn("wallet-server twilio not configured, SMS are logged only")
		return notify.NewLogNotifier(logger)
	}
	return notify.NewTwilioNotifier(logger, tw.AccountSID, tw.AuthToken, tw.FromNumber)
}

func newBus(logger *logrus.Logger, envConfig *config.Config) (bus.Publisher, bus.Consumer) {
	if len(envConfig.Kafka.Brokers) == 0 {
		logger.Warn("wallet-server kafka not configured, using the in-process bus")
		memoryBus := bus.NewMemoryBus(logger, 1024)
		return memoryBus, memoryBus
	}
	return bus.NewKafkaPublisher(envConfig.Kafka.Brokers, envConfig.Kafka.Topic),
		bus.NewKafkaConsumer(logger, envConfig.Kafka.Brokers, envConfig.Kafka.Topic, envConfig.Kafka.GroupID)
}

func newGuard(logger *logrus.Logger, envConfig *config.Config) (idempotency.Guard, func()) {
	if envConfig.Redis.Address == "" {
		logger.Warn("wallet-server redis not configured, idempotency keys are kept in memory")
		return idempotency.NewMemoryGuard(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     envConfig.Redis.Address,
		Password: envConfig.Redis.Password,
		DB:       envConfig.Redis.DB,
	})
	return idempotency.NewRedisGuard(client), func() {
		if err := client.Close(); err != nil {
			logger.WithError(err).Error("redis.Close")
		}
	}
}
