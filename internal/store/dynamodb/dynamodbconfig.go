// internal/store/dynamodb/dynamodbconfig.go
package dynamodb

import (
	"errors"
	"strings"
)

type DynamoDBConfig struct {
	Region          string   `yaml:"region" mapstructure:"region"`
	Table           string   `yaml:"table" mapstructure:"table"`
	Endpoints       []string `yaml:"endpoints" mapstructure:"endpoints"`
	Profile         string   `yaml:"profile,omitempty" mapstructure:"profile"`
	AccessKeyID     string   `yaml:"accessKeyId,omitempty" mapstructure:"accessKeyId"`
	SecretAccessKey string   `yaml:"secretAccessKey,omitempty" mapstructure:"secretAccessKey"`
}

func (c *DynamoDBConfig) GetTableName() string {
	return c.Table
}

func (c *DynamoDBConfig) GetEndpoints() []string {
	return c.Endpoints
}

// BaseEndpoint returns the endpoint override passed to the client, or "" for the regional default.
func (c *DynamoDBConfig) BaseEndpoint() string {
	if len(c.Endpoints) == 0 || c.Endpoints[0] == "" {
		return ""
	}
	endpoint := c.Endpoints[0]
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return endpoint
}

func (c *DynamoDBConfig) Validate() error {
	if c.Region == "" {
		return errors.New("region is required")
	}
	if c.Table == "" {
		return errors.New("table is required")
	}
	// Check if credentials are provided consistently
	if (c.AccessKeyID != "" && c.SecretAccessKey == "") ||
		(c.AccessKeyID == "" && c.SecretAccessKey != "") {
		return errors.New("both access key and secret key must be provided together")
	}
	return nil
}

// NewDynamoDBConfig creates a new DynamoDB configuration with default values
func NewDynamoDBConfig() *DynamoDBConfig {
	return &DynamoDBConfig{
		Region:    "us-west-2",
		Table:     "lockkeeper",
		Endpoints: []string{},
	}
}
