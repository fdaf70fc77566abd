package main

import (
	"github.com/lodthe/sparkify-dwh/internal/app"
	"github.com/lodthe/sparkify-dwh/internal/report"
	"github.com/lodthe/sparkify-dwh/internal/schema"
)

const command = "create-tables"

func main() {
	ctx, cancel, env := app.Bootstrap(command)
	defer cancel()

	run := report.NewRun(command, env.Config.ETL.MaxReportedFailures)

	connect := run.Stage("connect")
	db, _, err := env.ConnectWarehouse(ctx)
	connect.Record(env.Config.DWH.DB, err)
	connect.Finish()
	if err != nil {
		env.Logger.Error().Err(err).Msg("warehouse is not reachable")
		env.Publish(run)
		return
	}
	defer db.Close()

	schema.NewManager(env.Logger, db).Reset(ctx, run)

	env.Publish(run)
}
