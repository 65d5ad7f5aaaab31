/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/suparena/objectstore/config"
	"github.com/suparena/objectstore/errors"
)

// EnvPrefix is the prefix of the environment variables read by LoadConfig.
const EnvPrefix = "OBJECTS_DDB_"

// Config locates a DynamoDB table. When AccessKey and SecretKey are empty the
// default AWS credential chain is used. Endpoint overrides the service
// endpoint, e.g. for DynamoDB Local.
type Config struct {
	Region    string `env:"REGION" envDefault:"us-east-1"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Table     string `env:"TABLE"`
	Endpoint  string `env:"ENDPOINT"`
}

// LoadConfig reads Config from the OBJECTS_DDB_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParsePrefixed(&cfg, EnvPrefix); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields required to build a client.
func (c Config) Validate() error {
	if c.Table == "" {
		return errors.NewConfigurationError("table", "table name is required", nil)
	}
	if c.Region == "" {
		return errors.NewConfigurationError("region", "region is required", nil)
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.NewConfigurationError("credentials", "access key and secret key must be set together", nil)
	}
	return nil
}

// NewClient initializes a DynamoDB client from cfg.
func NewClient(ctx context.Context, cfg Config) (*sdk.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.NewConfigurationError("aws", "load AWS configuration", err)
	}

	return sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// API is the subset of the DynamoDB client used by Driver.
type API interface {
	GetItem(ctx context.Context, in *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	BatchGetItem(ctx context.Context, in *sdk.BatchGetItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchGetItemOutput, error)
	PutItem(ctx context.Context, in *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, in *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
}

var _ API = (*sdk.Client)(nil)
