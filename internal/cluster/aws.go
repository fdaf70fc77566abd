package cluster

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/pkg/errors"
)

// AWSControlPlane manages Amazon Redshift clusters.
//
// The provided AWS config must be allowed to create and describe Redshift clusters, read IAM roles
// and modify EC2 security groups.
type AWSControlPlane struct {
	redshift *redshift.Client
	iam      *iam.Client
	ec2      *ec2.Client
}

func NewAWSControlPlane(awsConfig aws.Config) *AWSControlPlane {
	return &AWSControlPlane{
		redshift: redshift.NewFromConfig(awsConfig),
		iam:      iam.NewFromConfig(awsConfig),
		ec2:      ec2.NewFromConfig(awsConfig),
	}
}

func (a *AWSControlPlane) RoleARN(ctx context.Context, roleName string) (string, error) {
	out, err := a.iam.GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(roleName),
	})
	if err != nil {
		return "", errors.Wrap(err, "get role failed")
	}

	if out.Role == nil || out.Role.Arn == nil {
		return "", errors.Errorf("role %s has no arn", roleName)
	}

	return *out.Role.Arn, nil
}

func (a *AWSControlPlane) CreateCluster(ctx context.Context, spec Spec) error {
	input := &redshift.CreateClusterInput{
		ClusterIdentifier:  aws.String(spec.Identifier),
		ClusterType:        aws.String(spec.ClusterType),
		NodeType:           aws.String(spec.NodeType),
		DBName:             aws.String(spec.DBName),
		MasterUsername:     aws.String(spec.MasterUser),
		MasterUserPassword: aws.String(spec.MasterPassword),
		IamRoles:           spec.IAMRoleARNs,
	}
	if spec.Port != 0 {
		input.Port = aws.Int32(int32(spec.Port))
	}

	// The API rejects NumberOfNodes for single-node clusters.
	if spec.ClusterType != ClusterTypeSingleNode && spec.NumNodes > 0 {
		input.NumberOfNodes = aws.Int32(int32(spec.NumNodes))
	}

	_, err := a.redshift.CreateCluster(ctx, input)
	if err != nil {
		return errors.Wrap(err, "create cluster failed")
	}

	return nil
}

func (a *AWSControlPlane) DescribeCluster(ctx context.Context, identifier string) (*Cluster, error) {
	out, err := a.redshift.DescribeClusters(ctx, &redshift.DescribeClustersInput{
		ClusterIdentifier: aws.String(identifier),
	})
	if err != nil {
		return nil, errors.Wrap(err, "describe clusters failed")
	}

	if len(out.Clusters) == 0 {
		return nil, errors.Errorf("cluster %s not found", identifier)
	}

	c := out.Clusters[0]
	converted := &Cluster{
		Identifier:     aws.ToString(c.ClusterIdentifier),
		NodeType:       aws.ToString(c.NodeType),
		Status:         aws.ToString(c.ClusterStatus),
		MasterUsername: aws.ToString(c.MasterUsername),
		DBName:         aws.ToString(c.DBName),
		NumberOfNodes:  int(aws.ToInt32(c.NumberOfNodes)),
		VpcID:          aws.ToString(c.VpcId),
	}

	// The endpoint is absent while the cluster is being created.
	if c.Endpoint != nil {
		converted.EndpointAddress = aws.ToString(c.Endpoint.Address)
		converted.EndpointPort = int(aws.ToInt32(c.Endpoint.Port))
	}

	for _, role := range c.IamRoles {
		if role.IamRoleArn != nil {
			converted.IAMRoleARNs = append(converted.IAMRoleARNs, *role.IamRoleArn)
		}
	}

	return converted, nil
}

func (a *AWSControlPlane) AuthorizeIngress(ctx context.Context, vpcID string, cidr string, port int) (string, error) {
	groups, err := a.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("vpc-id"),
				Values: []string{vpcID},
			},
			{
				Name:   aws.String("group-name"),
				Values: []string{"default"},
			},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "describe security groups failed")
	}

	if len(groups.SecurityGroups) == 0 || groups.SecurityGroups[0].GroupId == nil {
		return "", errors.Errorf("vpc %s has no default security group", vpcID)
	}

	groupID := *groups.SecurityGroups[0].GroupId

	_, err = a.ec2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:    aws.String(groupID),
		CidrIp:     aws.String(cidr),
		IpProtocol: aws.String("tcp"),
		FromPort:   aws.Int32(int32(port)),
		ToPort:     aws.Int32(int32(port)),
	})
	if err != nil {
		return groupID, errors.Wrap(err, "authorize ingress failed")
	}

	return groupID, nil
}
