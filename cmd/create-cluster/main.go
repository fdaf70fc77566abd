package main

import (
	"github.com/lodthe/sparkify-dwh/internal/app"
	"github.com/lodthe/sparkify-dwh/internal/cluster"
	"github.com/lodthe/sparkify-dwh/internal/report"
)

const command = "create-cluster"

func main() {
	ctx, cancel, env := app.Bootstrap(command)
	defer cancel()

	logger := env.Logger
	provisioner := env.Provisioner()
	run := report.NewRun(command, env.Config.ETL.MaxReportedFailures)

	// Every step is attempted even if the previous one failed. Nothing is rolled back.
	create := run.Stage("create")
	id, err := provisioner.Create(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("cluster cannot be created")
	}
	create.Record(id, err)
	create.Finish()

	if timeout := env.Config.DWH.WaitTimeout; timeout > 0 {
		wait := run.Stage("wait")
		_, err = provisioner.WaitAvailable(ctx, timeout)
		if err != nil {
			logger.Error().Err(err).Msg("cluster did not become available")
		}
		wait.Record(id, err)
		wait.Finish()
	}

	describe := run.Stage("describe")
	c, err := provisioner.Describe(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("cluster cannot be described")
	} else {
		cluster.PrintProperties(env.Stdout, c)
		logger.Info().Str("status", c.Status).Str("endpoint", c.EndpointAddress).Msg("cluster described")
	}
	describe.Record(id, err)
	describe.Finish()

	openPort := run.Stage("open-port")
	if c != nil {
		err = provisioner.OpenPort(ctx, c)
		if err != nil {
			logger.Error().Err(err).Msg("port cannot be opened")
		}
		openPort.Record(id, err)
	} else {
		openPort.Skip()
	}
	openPort.Finish()

	env.Publish(run)
}
