package cluster

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/ratelimit"
)

var ErrWaitTimeout = errors.New("cluster is not available yet")

// Provisioner creates a warehouse cluster and makes it reachable.
//
// Creation is asynchronous on the provider side: Create returns once the request is accepted,
// and the cluster has to reach the "available" status before any SQL can be sent to it.
// Nothing is retried or rolled back, so a failed call may leave a partially applied change.
type Provisioner struct {
	logger zerolog.Logger
	cfg    Config
	cp     ControlPlane
}

func NewProvisioner(logger zerolog.Logger, cfg Config, cp ControlPlane) *Provisioner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &Provisioner{
		logger: logger.With().Str("component", "provisioner").Str("cluster", cfg.Identifier).Logger(),
		cfg:    cfg,
		cp:     cp,
	}
}

// Create resolves the IAM role and requests cluster creation. It returns the cluster identifier.
func (p *Provisioner) Create(ctx context.Context) (string, error) {
	roleARN, err := p.cp.RoleARN(ctx, p.cfg.IAMRoleName)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve role %s", p.cfg.IAMRoleName)
	}

	p.logger.Debug().Str("role_arn", roleARN).Msg("iam role resolved")

	err = p.cp.CreateCluster(ctx, Spec{
		Identifier:     p.cfg.Identifier,
		ClusterType:    p.cfg.ClusterType,
		NodeType:       p.cfg.NodeType,
		NumNodes:       p.cfg.NumNodes,
		DBName:         p.cfg.DBName,
		MasterUser:     p.cfg.MasterUser,
		MasterPassword: p.cfg.MasterPassword,
		Port:           p.cfg.Port,
		IAMRoleARNs:    []string{roleARN},
	})
	if err != nil {
		return p.cfg.Identifier, errors.Wrap(err, "cluster creation request failed")
	}

	p.logger.Info().
		Str("node_type", p.cfg.NodeType).
		Int("nodes", p.cfg.NumNodes).
		Msg("cluster creation requested, do not proceed until the cluster is available")

	return p.cfg.Identifier, nil
}

// Describe returns the current cluster properties.
func (p *Provisioner) Describe(ctx context.Context) (*Cluster, error) {
	c, err := p.cp.DescribeCluster(ctx, p.cfg.Identifier)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to describe %s", p.cfg.Identifier)
	}

	return c, nil
}

// WaitAvailable polls the cluster status until it becomes available.
// Describe failures are returned immediately, they are not retried.
func (p *Provisioner) WaitAvailable(ctx context.Context, timeout time.Duration) (*Cluster, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rl := ratelimit.New(1, ratelimit.Per(p.cfg.PollInterval), ratelimit.WithoutSlack)
	startedAt := time.Now()

	for {
		rl.Take()

		if ctx.Err() != nil {
			return nil, errors.Wrapf(ErrWaitTimeout, "waited %s", time.Since(startedAt).Round(time.Second))
		}

		c, err := p.Describe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrapf(ErrWaitTimeout, "waited %s", time.Since(startedAt).Round(time.Second))
			}

			return nil, err
		}

		if c.IsAvailable() {
			p.logger.Info().Dur("elapsed", time.Since(startedAt)).Str("endpoint", c.EndpointAddress).Msg("cluster is available")
			return c, nil
		}

		if c.IsBroken() {
			return c, errors.Errorf("cluster reached status %s", c.Status)
		}

		p.logger.Debug().Str("status", c.Status).Msg("cluster is not available yet")
	}
}

// OpenPort authorizes inbound TCP traffic to the cluster port.
// It is not idempotent: the control plane rejects a rule that already exists.
func (p *Provisioner) OpenPort(ctx context.Context, c *Cluster) error {
	if c.VpcID == "" {
		return errors.New("cluster has no vpc")
	}

	groupID, err := p.cp.AuthorizeIngress(ctx, c.VpcID, p.cfg.IngressCIDR, p.cfg.Port)
	if err != nil {
		return errors.Wrapf(err, "failed to open port %d", p.cfg.Port)
	}

	p.logger.Info().
		Str("vpc_id", c.VpcID).
		Str("group_id", groupID).
		Str("cidr", p.cfg.IngressCIDR).
		Int("port", p.cfg.Port).
		Msg("ingress rule has been added")

	return nil
}

// PrintProperties renders the main cluster properties as a key/value table.
func PrintProperties(w io.Writer, c *Cluster) {
	endpoint := c.EndpointAddress
	if endpoint != "" && c.EndpointPort != 0 {
		endpoint = fmt.Sprintf("%s:%d", c.EndpointAddress, c.EndpointPort)
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Key", "Value"})
	table.AppendBulk([][]string{
		{"ClusterIdentifier", c.Identifier},
		{"NodeType", c.NodeType},
		{"ClusterStatus", c.Status},
		{"MasterUsername", c.MasterUsername},
		{"DBName", c.DBName},
		{"Endpoint", endpoint},
		{"NumberOfNodes", strconv.Itoa(c.NumberOfNodes)},
		{"VpcId", c.VpcID},
		{"IamRoles", strings.Join(c.IAMRoleARNs, ", ")},
	})
	table.Render()
}
