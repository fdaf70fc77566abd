package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lodthe/sparkify-dwh/internal/cluster"
	"github.com/lodthe/sparkify-dwh/internal/config"
	"github.com/lodthe/sparkify-dwh/internal/report"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		DWH: config.DWH{
			ClusterType:       cluster.ClusterTypeMultiNode,
			NumNodes:          4,
			NodeType:          "dc2.large",
			ClusterIdentifier: "dwhCluster",
			DB:                "dwh",
			DBUser:            "dwhuser",
			DBPassword:        "Passw0rd",
			Port:              5439,
			IAMRoleName:       "dwhRole",
			SSLMode:           "require",
			IngressCIDR:       "10.0.0.0/8",
			PollInterval:      time.Second,
		},
	}
}

func TestClusterConfig(t *testing.T) {
	assert.Equal(t, cluster.Config{
		Identifier:     "dwhCluster",
		ClusterType:    cluster.ClusterTypeMultiNode,
		NodeType:       "dc2.large",
		NumNodes:       4,
		DBName:         "dwh",
		MasterUser:     "dwhuser",
		MasterPassword: "Passw0rd",
		Port:           5439,
		IAMRoleName:    "dwhRole",
		IngressCIDR:    "10.0.0.0/8",
		PollInterval:   time.Second,
	}, ClusterConfig(testConfig()))
}

func TestConnParams(t *testing.T) {
	params := ConnParams(testConfig(), cluster.Endpoint{Host: "localhost", Port: 5440})

	assert.Equal(t, "localhost", params.Host)
	assert.Equal(t, 5440, params.Port)
	assert.Equal(t, "dwh", params.DBName)
	assert.Equal(t, "dwhuser", params.User)
	assert.Equal(t, "Passw0rd", params.Password)
	assert.Equal(t, "require", params.SSLMode)
}

func TestPublish(t *testing.T) {
	cfg := testConfig()
	cfg.Report.Path = filepath.Join(t.TempDir(), "report.yaml")

	var stdout bytes.Buffer
	env := &Env{
		Config: cfg,
		Logger: zerolog.Nop(),
		Stdout: &stdout,
	}

	run := report.NewRun("create-tables", 10)
	s := run.Stage("drop")
	s.Succeed()
	s.Fail("users", errors.New("permission denied"))
	s.Finish()

	env.Publish(run)

	assert.False(t, run.FinishedAt.IsZero())
	assert.Contains(t, stdout.String(), "drop: users: permission denied")

	raw, err := os.ReadFile(cfg.Report.Path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), run.ID)
	assert.Contains(t, string(raw), "command: create-tables")
}
