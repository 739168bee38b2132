package store

import (
	"context"
	"fmt"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// New creates a Gateway based on the backend name.
//
// Supported backends:
//
//	"dynamo" - DynamoDB tables, one per collection (default)
//	"sqlite" - SQLite database at dataDir/pantry.db
//	"memory" - in-memory, ephemeral
func New(ctx context.Context, backend, dataDir, tablePrefix string) (Gateway, error) {
	switch backend {
	case "dynamo", "":
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewDynamo(dynamodb.NewFromConfig(cfg), DynamoConfig{TablePrefix: tablePrefix}), nil
	case "sqlite":
		return NewSqlite(filepath.Join(dataDir, "pantry.db"))
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: dynamo, sqlite, memory)", backend)
	}
}
