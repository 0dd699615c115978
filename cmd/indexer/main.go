// The indexer consumes the entity table's DynamoDB stream and forwards
// index notifications to the search collaborator's webhook.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/BigWednesdayIO/suppliers-api-sub000/indexer"
	"github.com/BigWednesdayIO/suppliers-api-sub000/internal/logger"
)

func main() {
	webhookURL := os.Getenv("INDEX_WEBHOOK_URL")
	if webhookURL == "" {
		fmt.Fprintln(os.Stderr, "INDEX_WEBHOOK_URL is required")
		os.Exit(1)
	}

	log, err := logger.New(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	publisher := indexer.NewWebhookPublisher(webhookURL, &http.Client{Timeout: 10 * time.Second})
	handler := indexer.NewHandler(publisher, log)

	lambda.Start(handler.HandleStream)
}
