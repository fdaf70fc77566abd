package cluster

import (
	"context"
	"strings"
)

const (
	StatusAvailable = "available"
	StatusCreating  = "creating"
	StatusDeleting  = "deleting"

	ClusterTypeSingleNode = "single-node"
	ClusterTypeMultiNode  = "multi-node"
)

// ControlPlane is the minimal set of cloud capabilities the provisioner relies on.
type ControlPlane interface {
	// RoleARN resolves an IAM role name to its ARN.
	RoleARN(ctx context.Context, roleName string) (string, error)

	// CreateCluster requests cluster creation. It returns as soon as the request is accepted.
	CreateCluster(ctx context.Context, spec Spec) error

	DescribeCluster(ctx context.Context, identifier string) (*Cluster, error)

	// AuthorizeIngress opens a TCP port on the default security group of the VPC.
	// It returns the id of the modified group.
	AuthorizeIngress(ctx context.Context, vpcID string, cidr string, port int) (string, error)
}

// Spec describes a cluster to be created.
type Spec struct {
	Identifier  string
	ClusterType string
	NodeType    string
	NumNodes    int

	DBName         string
	MasterUser     string
	MasterPassword string
	Port           int

	IAMRoleARNs []string
}

// Cluster is a snapshot of the cluster properties returned by the control plane.
type Cluster struct {
	Identifier     string
	NodeType       string
	Status         string
	MasterUsername string
	DBName         string
	NumberOfNodes  int
	VpcID          string

	EndpointAddress string
	EndpointPort    int

	IAMRoleARNs []string
}

func (c *Cluster) IsAvailable() bool {
	return strings.EqualFold(c.Status, StatusAvailable)
}

// IsBroken reports whether the cluster reached a status it won't recover from by itself.
func (c *Cluster) IsBroken() bool {
	status := strings.ToLower(c.Status)

	return status == StatusDeleting ||
		status == "hardware-failure" ||
		strings.HasPrefix(status, "incompatible-")
}
