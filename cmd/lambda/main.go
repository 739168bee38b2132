package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/pantry/api"
	"github.com/jacentio/pantry/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("failed to load aws config", "error", err)
		os.Exit(1)
	}

	gateway := store.NewDynamo(dynamodb.NewFromConfig(cfg), store.DynamoConfig{
		TablePrefix: os.Getenv("TABLE_PREFIX"),
	})
	h := api.New(gateway, logger)

	lambda.Start(api.LambdaHandler(h))
}
