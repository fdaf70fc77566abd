package cluster

import "time"

const DefaultPollInterval = 15 * time.Second

type Config struct {
	Identifier  string
	ClusterType string
	NodeType    string
	NumNodes    int

	DBName         string
	MasterUser     string
	MasterPassword string
	Port           int

	// IAMRoleName is resolved to an ARN and attached to the cluster so COPY can read from S3.
	IAMRoleName string

	// IngressCIDR is the source range allowed to reach Port.
	IngressCIDR string

	// PollInterval is the delay between two describe calls while waiting for the cluster.
	PollInterval time.Duration
}
