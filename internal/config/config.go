package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lodthe/sparkify-dwh/pkg/s3path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconf "github.com/aws/aws-sdk-go-v2/config"
	gconfig "github.com/gookit/config/v2"
	gini "github.com/gookit/config/v2/ini"
	gyaml "github.com/gookit/config/v2/yaml"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const DefaultConfigPath = "dwh.cfg"

const (
	DefaultRegion             = "us-west-2"
	DefaultSSLMode            = "require"
	DefaultIngressCIDR        = "0.0.0.0/0"
	DefaultPollInterval       = 15 * time.Second
	DefaultDurationTolerance  = 1.0
	DefaultMaxReportedFailure = 50
)

type LogFormat string

const (
	PrettyLogFormat LogFormat = "pretty"
	JSONLogFormat   LogFormat = "json"
)

type ConflictPolicy string

const (
	// ConflictUpsert replaces an existing dimension row with the same key (last write wins).
	ConflictUpsert ConflictPolicy = "upsert"

	// ConflictInsert issues plain inserts and leaves duplicates to the engine.
	ConflictInsert ConflictPolicy = "insert"
)

// Config is loaded once per process and must not be modified after LoadConfig returns.
type Config struct {
	AWS     AWS     `mapstructure:"aws"`
	DWH     DWH     `mapstructure:"dwh"`
	S3      S3      `mapstructure:"s3"`
	IAMRole IAMRole `mapstructure:"iam_role"`
	ETL     ETL     `mapstructure:"etl"`
	Log     Log     `mapstructure:"log"`
	Report  Report  `mapstructure:"report"`
}

type AWS struct {
	Key    string `mapstructure:"key"`
	Secret string `mapstructure:"secret"`
	Region string `mapstructure:"region"`
}

type DWH struct {
	ClusterType       string `mapstructure:"dwh_cluster_type"`
	NumNodes          int    `mapstructure:"dwh_num_nodes"`
	NodeType          string `mapstructure:"dwh_node_type"`
	ClusterIdentifier string `mapstructure:"dwh_cluster_identifier"`

	DB         string `mapstructure:"dwh_db"`
	DBUser     string `mapstructure:"dwh_db_user"`
	DBPassword string `mapstructure:"dwh_db_password"`
	Port       int    `mapstructure:"dwh_port"`

	IAMRoleName string `mapstructure:"dwh_iam_role_name"`

	// Host skips endpoint discovery through the control plane when set.
	Host    string `mapstructure:"dwh_host"`
	SSLMode string `mapstructure:"dwh_sslmode"`

	IngressCIDR string `mapstructure:"dwh_ingress_cidr"`

	// WaitTimeout enables polling for the "available" status after creation. 0 disables it.
	WaitTimeout  time.Duration `mapstructure:"dwh_wait_timeout"`
	PollInterval time.Duration `mapstructure:"dwh_poll_interval"`
}

type S3 struct {
	LogData     string `mapstructure:"log_data"`
	LogJSONPath string `mapstructure:"log_jsonpath"`
	SongData    string `mapstructure:"song_data"`

	// Region of the source bucket, passed to COPY when it differs from the cluster region.
	Region string `mapstructure:"region"`

	Preflight *bool `mapstructure:"preflight"`
}

type IAMRole struct {
	ARN string `mapstructure:"arn"`
}

type ETL struct {
	DurationTolerance   float64        `mapstructure:"duration_tolerance"`
	Timezone            string         `mapstructure:"timezone"`
	ConflictPolicy      ConflictPolicy `mapstructure:"conflict_policy"`
	NoLoad              bool           `mapstructure:"noload"`
	MaxReportedFailures int            `mapstructure:"max_reported_failures"`

	location *time.Location
}

type Log struct {
	Format LogFormat `mapstructure:"format"`
	Level  string    `mapstructure:"level"`
}

type Report struct {
	Path           string `mapstructure:"path"`
	DynamoDBTable  string `mapstructure:"dynamodb_table"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

// LoadConfig reads the config file pointed by DWH_CONFIG_PATH (dwh.cfg by default).
// Variables from an optional .env file are exported first so ${VAR} references resolve.
func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	path := os.Getenv("DWH_CONFIG_PATH")
	if path == "" {
		path = DefaultConfigPath
	}

	return Load(path)
}

// Load parses the given file. .cfg and .ini files are parsed as INI, everything else by extension.
func Load(path string) (*Config, error) {
	c := gconfig.NewWithOptions("dwh",
		gconfig.ParseEnv,
		gconfig.Readonly,
		func(opts *gconfig.Options) {
			opts.DecoderConfig = &mapstructure.DecoderConfig{
				TagName:          "mapstructure",
				WeaklyTypedInput: true,
				DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			}
		},
	)
	c.AddDriver(gini.Driver)
	c.AddDriver(gyaml.Driver)

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cfg", ".ini":
		err = c.LoadFilesByFormat(gini.Driver.Name(), path)
	default:
		err = c.LoadFiles(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	cfg := new(Config)
	err = c.BindStruct("", cfg)
	if err != nil {
		return nil, errors.Wrap(err, "config binding failed")
	}

	err = cfg.validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}

// validate verifies the loaded config and sets default values for missed fields.
func (c *Config) validate() error {
	c.unquote()

	if c.AWS.Region == "" {
		c.AWS.Region = DefaultRegion
	}

	if c.DWH.ClusterIdentifier == "" {
		return errors.New("dwh.dwh_cluster_identifier is required")
	}
	if c.DWH.DB == "" {
		return errors.New("dwh.dwh_db is required")
	}
	if c.DWH.DBUser == "" {
		return errors.New("dwh.dwh_db_user is required")
	}
	if c.DWH.Port <= 0 || c.DWH.Port > 65535 {
		return errors.Errorf("dwh.dwh_port must be in (0, 65535], got %d", c.DWH.Port)
	}
	if c.DWH.NumNodes < 0 {
		return errors.New("dwh.dwh_num_nodes must be >= 0")
	}
	if c.DWH.SSLMode == "" {
		c.DWH.SSLMode = DefaultSSLMode
	}
	if c.DWH.IngressCIDR == "" {
		c.DWH.IngressCIDR = DefaultIngressCIDR
	}
	if c.DWH.PollInterval <= 0 {
		c.DWH.PollInterval = DefaultPollInterval
	}

	for key, value := range map[string]string{
		"s3.log_data":     c.S3.LogData,
		"s3.log_jsonpath": c.S3.LogJSONPath,
		"s3.song_data":    c.S3.SongData,
	} {
		if value == "" {
			continue
		}
		if _, err := s3path.Parse(value); err != nil {
			return errors.Wrap(err, key)
		}
	}
	if c.S3.Preflight == nil {
		preflight := true
		c.S3.Preflight = &preflight
	}

	if c.ETL.DurationTolerance < 0 {
		return errors.New("etl.duration_tolerance must be positive")
	}
	if c.ETL.DurationTolerance == 0 {
		c.ETL.DurationTolerance = DefaultDurationTolerance
	}

	if c.ETL.Timezone == "" {
		c.ETL.Timezone = "Local"
	}
	loc, err := time.LoadLocation(c.ETL.Timezone)
	if err != nil {
		return errors.Wrapf(err, "etl.timezone %q", c.ETL.Timezone)
	}
	c.ETL.location = loc

	switch c.ETL.ConflictPolicy {
	case ConflictUpsert, ConflictInsert:
	case "":
		c.ETL.ConflictPolicy = ConflictUpsert
	default:
		return errors.Errorf("unknown etl.conflict_policy %s (supported: %s, %s)", c.ETL.ConflictPolicy, ConflictUpsert, ConflictInsert)
	}

	if c.ETL.MaxReportedFailures <= 0 {
		c.ETL.MaxReportedFailures = DefaultMaxReportedFailure
	}

	switch c.Log.Format {
	case PrettyLogFormat, JSONLogFormat:
	case "":
		c.Log.Format = PrettyLogFormat
	default:
		return errors.Errorf("unknown log.format %s (supported: %s, %s)", c.Log.Format, PrettyLogFormat, JSONLogFormat)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	return nil
}

// unquote strips single or double quotes around values: LOG_DATA='s3://bucket/log_data'.
func (c *Config) unquote() {
	for _, v := range []*string{
		&c.AWS.Key, &c.AWS.Secret, &c.AWS.Region,
		&c.DWH.ClusterType, &c.DWH.NodeType, &c.DWH.ClusterIdentifier,
		&c.DWH.DB, &c.DWH.DBUser, &c.DWH.DBPassword, &c.DWH.IAMRoleName, &c.DWH.Host,
		&c.S3.LogData, &c.S3.LogJSONPath, &c.S3.SongData, &c.S3.Region,
		&c.IAMRole.ARN,
	} {
		*v = trimQuotes(strings.TrimSpace(*v))
	}
}

func trimQuotes(s string) string {
	if len(s) < 2 {
		return s
	}

	first, last := s[0], s[len(s)-1]
	if first == last && (first == '\'' || first == '"') {
		return s[1 : len(s)-1]
	}

	return s
}

// Location returns the timezone used for timestamp decomposition.
func (e ETL) Location() *time.Location {
	if e.location == nil {
		return time.Local
	}

	return e.location
}

// PreflightEnabled reports whether S3 sources should be inventoried before bulk loading.
func (s S3) PreflightEnabled() bool {
	return s.Preflight == nil || *s.Preflight
}

// LoadAWS builds the SDK config. Static credentials from [AWS] are used when KEY is set,
// otherwise the SDK picks credentials from the default chain.
func (c *Config) LoadAWS(ctx context.Context) (aws.Config, error) {
	var awsOpts []func(*awsconf.LoadOptions) error
	if c.AWS.Key != "" {
		awsOpts = append(awsOpts, awsconf.WithCredentialsProvider(c))
	}

	awsOpts = append(awsOpts, awsconf.WithRegion(c.AWS.Region))

	awsConfig, err := awsconf.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, "failed to load AWS config")
	}

	return awsConfig, nil
}

// Retrieve makes Config an aws.CredentialsProvider backed by the [AWS] section.
func (c *Config) Retrieve(_ context.Context) (aws.Credentials, error) {
	return aws.Credentials{
		AccessKeyID:     c.AWS.Key,
		SecretAccessKey: c.AWS.Secret,
		Source:          "local config",
	}, nil
}
