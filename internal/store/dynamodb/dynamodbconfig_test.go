// internal/store/dynamodb/dynamodbconfig_test.go
package dynamodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDynamoDBConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DynamoDBConfig
		wantErr string
	}{
		{
			name: "valid",
			cfg:  DynamoDBConfig{Region: "us-east-1", Table: "locks"},
		},
		{
			name:    "missing_region",
			cfg:     DynamoDBConfig{Table: "locks"},
			wantErr: "region is required",
		},
		{
			name:    "missing_table",
			cfg:     DynamoDBConfig{Region: "us-east-1"},
			wantErr: "table is required",
		},
		{
			name:    "access_key_without_secret",
			cfg:     DynamoDBConfig{Region: "us-east-1", Table: "locks", AccessKeyID: "AKIA"},
			wantErr: "both access key and secret key must be provided together",
		},
		{
			name: "static_credentials",
			cfg:  DynamoDBConfig{Region: "us-east-1", Table: "locks", AccessKeyID: "a", SecretAccessKey: "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestDynamoDBConfigBaseEndpoint(t *testing.T) {
	assert.Equal(t, "", (&DynamoDBConfig{}).BaseEndpoint())
	assert.Equal(t, "http://localhost:8000", (&DynamoDBConfig{Endpoints: []string{"http://localhost:8000"}}).BaseEndpoint())
	assert.Equal(t, "https://dynamodb.us-west-2.amazonaws.com",
		(&DynamoDBConfig{Endpoints: []string{"dynamodb.us-west-2.amazonaws.com"}}).BaseEndpoint())
}

func TestNewDynamoDBConfig(t *testing.T) {
	cfg := NewDynamoDBConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "lockkeeper", cfg.GetTableName())
	assert.Empty(t, cfg.GetEndpoints())
}
