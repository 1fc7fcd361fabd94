// Command intake runs the consumption engine from the command line:
// consume a queue, send a test job, or purge a purgeable queue.
//
// Configuration comes from INTAKE_-prefixed environment variables; see
// the envConfig struct for the full list.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/kelseyhightower/envconfig"
	"github.com/lmittmann/tint"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/xraph/intake"
	"github.com/xraph/intake/backend"
	"github.com/xraph/intake/backend/memory"
	"github.com/xraph/intake/backend/redis"
	"github.com/xraph/intake/backend/sqs"
)

type envConfig struct {
	QueueURL    string `split_words:"true" required:"true"`
	Backend     string `default:"sqs"`
	Concurrency int    `default:"10"`
	RedisAddr   string `split_words:"true" default:"localhost:6379"`
	LogLevel    string `split_words:"true" default:"info"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg envConfig
	if err := envconfig.Process("intake", &cfg); err != nil {
		return fmt.Errorf("intake: load configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	rootCmd := &cobra.Command{
		Use:           "intake",
		Short:         "Queue consumption engine",
		Long:          "Intake pulls jobs from a message queue and runs them through a handler under a concurrency budget.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		consumeCmd(&cfg, logger),
		sendCmd(&cfg, logger),
		purgeCmd(&cfg, logger),
	)

	return rootCmd.Execute()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	}))
}

func newBackend(cfg *envConfig, logger *slog.Logger) (backend.Client, error) {
	switch cfg.Backend {
	case "sqs":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("intake: load AWS configuration: %w", err)
		}
		return sqs.New(awssqs.NewFromConfig(awsCfg)), nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		return redis.New(client, redis.WithLogger(logger)), nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("intake: unknown backend %q (want sqs, redis, or memory)", cfg.Backend)
	}
}

func newConsumer(cfg *envConfig, logger *slog.Logger) (*intake.Consumer, error) {
	b, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	return intake.New(cfg.QueueURL, b, logger,
		intake.WithConcurrency(cfg.Concurrency),
	)
}

func consumeCmd(cfg *envConfig, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Consume jobs until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newConsumer(cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := c.Init(ctx); err != nil {
				return err
			}

			err = c.Start(func(_ context.Context, j *intake.Job) error {
				logger.Info("job received",
					slog.String("job_id", j.ID),
					slog.String("job_type", j.Type),
					slog.Int("data_bytes", len(j.Data)),
				)
				return nil
			})
			if err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("shutting down")
			return c.Close()
		},
	}
}

func sendCmd(cfg *envConfig, logger *slog.Logger) *cobra.Command {
	var jobType string
	cmd := &cobra.Command{
		Use:   "send [data]",
		Short: "Enqueue one job; data is a JSON document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := json.RawMessage(`{}`)
			if len(args) == 1 {
				if !json.Valid([]byte(args[0])) {
					return fmt.Errorf("intake: data is not valid JSON: %s", args[0])
				}
				data = json.RawMessage(args[0])
			}

			c, err := newConsumer(cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close() //nolint:errcheck

			return c.Enqueue(cmd.Context(), &intake.Job{Type: jobType, Data: data})
		},
	}
	cmd.Flags().StringVar(&jobType, "type", "default", "job type")
	return cmd
}

func purgeCmd(cfg *envConfig, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove every message from a purgeable queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newConsumer(cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close() //nolint:errcheck

			return c.Purge(cmd.Context())
		},
	}
}
