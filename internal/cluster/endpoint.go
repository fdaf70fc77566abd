package cluster

import (
	"context"

	"github.com/pkg/errors"
)

// Endpoint holds what is needed to reach the warehouse and let it read from object storage.
type Endpoint struct {
	Host string
	Port int

	// RoleARN is empty when neither the config nor the cluster provide a role.
	RoleARN string
}

// ResolveEndpoint returns the warehouse endpoint. Explicit host and role ARN take precedence;
// the control plane is queried only for what is missing.
func (p *Provisioner) ResolveEndpoint(ctx context.Context, host string, roleARN string) (Endpoint, error) {
	e := Endpoint{
		Host:    host,
		Port:    p.cfg.Port,
		RoleARN: roleARN,
	}
	if e.Host != "" && e.RoleARN != "" {
		return e, nil
	}

	c, err := p.Describe(ctx)
	if err != nil {
		return Endpoint{}, err
	}

	if e.Host == "" {
		if c.EndpointAddress == "" {
			return Endpoint{}, errors.Errorf("cluster %s has no endpoint (status %s)", c.Identifier, c.Status)
		}

		e.Host = c.EndpointAddress
	}

	if e.RoleARN == "" && len(c.IAMRoleARNs) > 0 {
		e.RoleARN = c.IAMRoleARNs[0]
	}

	return e, nil
}
