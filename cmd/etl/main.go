package main

import (
	"github.com/lodthe/sparkify-dwh/internal/app"
	"github.com/lodthe/sparkify-dwh/internal/config"
	"github.com/lodthe/sparkify-dwh/internal/loader"
	"github.com/lodthe/sparkify-dwh/internal/report"
	"github.com/lodthe/sparkify-dwh/internal/transform"
	"github.com/lodthe/sparkify-dwh/internal/warehouse"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const command = "etl"

func main() {
	ctx, cancel, env := app.Bootstrap(command)
	defer cancel()

	cfg := env.Config
	logger := env.Logger
	run := report.NewRun(command, cfg.ETL.MaxReportedFailures)

	connect := run.Stage("connect")
	db, endpoint, err := env.ConnectWarehouse(ctx)
	connect.Record(cfg.DWH.DB, err)
	connect.Finish()
	if err != nil {
		logger.Error().Err(err).Msg("warehouse is not reachable")
		env.Publish(run)
		return
	}
	defer db.Close()

	if endpoint.RoleARN == "" {
		logger.Warn().Msg("no iam role is configured or attached to the cluster, COPY will fail")
	}

	var inventory *loader.Inventory
	if cfg.S3.PreflightEnabled() {
		inventory = loader.NewInventory(s3.NewFromConfig(env.AWS))
	}

	bulk := loader.NewLoader(logger, loader.Config{
		IAMRoleARN:  endpoint.RoleARN,
		Region:      cfg.S3.Region,
		LogData:     cfg.S3.LogData,
		LogJSONPath: cfg.S3.LogJSONPath,
		SongData:    cfg.S3.SongData,
		NoLoad:      cfg.ETL.NoLoad,
	}, db, inventory)
	bulk.Load(ctx, run)

	if cfg.ETL.NoLoad {
		logger.Info().Msg("sources validated, staging tables were not loaded, transform is skipped")
		env.Publish(run)
		return
	}

	stage := transform.NewStage(logger,
		transform.Config{
			DurationTolerance: cfg.ETL.DurationTolerance,
			Location:          cfg.ETL.Location(),
		},
		warehouse.NewSource(db),
		warehouse.NewSink(db, warehouse.SinkConfig{
			Upsert: cfg.ETL.ConflictPolicy == config.ConflictUpsert,
		}),
	)

	err = stage.Run(ctx, run)
	if err != nil {
		logger.Error().Err(err).Msg("transform interrupted")
	}

	env.Publish(run)
}
