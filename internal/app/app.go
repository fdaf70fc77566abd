// Package app wires configuration into the pipeline components shared by the entry points.
package app

import (
	"context"
	"database/sql"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lodthe/sparkify-dwh/internal/cluster"
	"github.com/lodthe/sparkify-dwh/internal/config"
	"github.com/lodthe/sparkify-dwh/internal/logger"
	"github.com/lodthe/sparkify-dwh/internal/metrics"
	"github.com/lodthe/sparkify-dwh/internal/report"
	"github.com/lodthe/sparkify-dwh/internal/warehouse"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

const publishTimeout = 30 * time.Second

type Env struct {
	Config *config.Config
	Logger zerolog.Logger
	AWS    aws.Config

	// Stdout receives human-readable tables.
	Stdout io.Writer
}

// Bootstrap loads the config, sets up the logger and the AWS SDK config.
// Any failure here is fatal. The returned context is cancelled on SIGINT or SIGTERM.
func Bootstrap(command string) (context.Context, context.CancelFunc, *Env) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config cannot be loaded")
	}

	log := logger.Setup(cfg.Log).With().Str("command", command).Logger()

	awsConfig, err := cfg.LoadAWS(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("AWS config cannot be loaded")
	}

	return ctx, cancel, &Env{
		Config: cfg,
		Logger: log,
		AWS:    awsConfig,
		Stdout: os.Stdout,
	}
}

func ClusterConfig(cfg *config.Config) cluster.Config {
	return cluster.Config{
		Identifier:     cfg.DWH.ClusterIdentifier,
		ClusterType:    cfg.DWH.ClusterType,
		NodeType:       cfg.DWH.NodeType,
		NumNodes:       cfg.DWH.NumNodes,
		DBName:         cfg.DWH.DB,
		MasterUser:     cfg.DWH.DBUser,
		MasterPassword: cfg.DWH.DBPassword,
		Port:           cfg.DWH.Port,
		IAMRoleName:    cfg.DWH.IAMRoleName,
		IngressCIDR:    cfg.DWH.IngressCIDR,
		PollInterval:   cfg.DWH.PollInterval,
	}
}

func ConnParams(cfg *config.Config, endpoint cluster.Endpoint) warehouse.ConnParams {
	return warehouse.ConnParams{
		Host:     endpoint.Host,
		Port:     endpoint.Port,
		DBName:   cfg.DWH.DB,
		User:     cfg.DWH.DBUser,
		Password: cfg.DWH.DBPassword,
		SSLMode:  cfg.DWH.SSLMode,
	}
}

func (e *Env) Provisioner() *cluster.Provisioner {
	return cluster.NewProvisioner(e.Logger, ClusterConfig(e.Config), cluster.NewAWSControlPlane(e.AWS))
}

// ConnectWarehouse resolves the cluster endpoint and opens the connection.
// The caller must close the returned db.
func (e *Env) ConnectWarehouse(ctx context.Context) (*sql.DB, cluster.Endpoint, error) {
	endpoint, err := e.Provisioner().ResolveEndpoint(ctx, e.Config.DWH.Host, e.Config.IAMRole.ARN)
	if err != nil {
		return nil, cluster.Endpoint{}, errors.Wrap(err, "failed to resolve the warehouse endpoint")
	}

	db, err := warehouse.Open(ctx, e.Logger, ConnParams(e.Config, endpoint))
	if err != nil {
		return nil, endpoint, err
	}

	return db, endpoint, nil
}

// Publish prints the run summary and sends it to every configured report sink.
// Sink failures are logged only.
func (e *Env) Publish(run *report.Run) {
	run.Finish()
	run.Print(e.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	cfg := e.Config.Report
	logger := e.Logger.With().Str("run_id", run.ID).Logger()

	if cfg.Path != "" {
		err := run.Export(cfg.Path)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.Path).Msg("failed to export the report")
		} else {
			logger.Info().Str("path", cfg.Path).Msg("report exported")
		}
	}

	if cfg.DynamoDBTable != "" {
		repo := report.NewRepository(dynamodb.NewFromConfig(e.AWS), cfg.DynamoDBTable)
		err := repo.Create(ctx, run)
		if err != nil {
			logger.Error().Err(err).Str("table", cfg.DynamoDBTable).Msg("failed to save the report")
		} else {
			logger.Info().Str("table", cfg.DynamoDBTable).Msg("report saved")
		}
	}

	if cfg.PushgatewayURL != "" {
		exporter := metrics.NewPipelineExporter(run.Command)
		exporter.ObserveRun(run)

		err := exporter.Push(ctx, cfg.PushgatewayURL)
		if err != nil {
			logger.Error().Err(err).Str("url", cfg.PushgatewayURL).Msg("failed to push metrics")
		}
	}

	if failed := run.Failed(); failed > 0 {
		logger.Warn().Int("failed", failed).Msg("run finished with failures")
		return
	}

	logger.Info().Msg("run finished")
}
