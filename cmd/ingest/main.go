// Package main runs the ingestion pipelines for finalized S3 uploads.
package main

import (
	"context"
	"log"
	"net/url"

	"github.com/policytrack/renewal-backend/internal/awsutil"
	"github.com/policytrack/renewal-backend/internal/config"
	"github.com/policytrack/renewal-backend/internal/ddb"
	"github.com/policytrack/renewal-backend/internal/extract"
	"github.com/policytrack/renewal-backend/internal/pipeline"
	"github.com/policytrack/renewal-backend/internal/s3io"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// App holds the application state, including configuration and pipelines.
type App struct {
	env       config.Env
	pipelines *pipeline.Pipelines
}

// main initializes the app and starts the Lambda handler.
func main() {
	env := config.MustLoad()
	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}

	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.UsePathStyle = true // localstack/dev friendliness
		}
	})
	repo := &ddb.Repo{
		DB:        dynamodb.NewFromConfig(cfg),
		Table:     env.Table,
		ChunkSize: env.BulkChunkSize,
	}

	app := &App{
		env: env,
		pipelines: pipeline.New(
			s3io.TempFetcher{Client: s3c},
			extract.NewClient(env.AnthropicKey, env.ExtractModel),
			repo,
			repo,
			pipeline.Options{
				DefaultDueDate: env.DefaultDueDate,
				PDFTimeout:     env.PDFTimeout,
				ReceiptTimeout: env.ReceiptTimeout,
			},
		),
	}
	lambda.Start(app.handler)
}

// handler dispatches each finalized object to its pipeline. Errors are
// logged, not returned: one bad object must not re-drive the whole batch.
func (a *App) handler(ctx context.Context, ev events.S3Event) (any, error) {
	for _, rec := range ev.Records {
		bucket := rec.S3.Bucket.Name
		key, _ := url.QueryUnescape(rec.S3.Object.Key)

		matched, err := a.pipelines.Dispatch(ctx, bucket, key)
		switch {
		case !matched:
			log.Printf("ingest: ignoring %s (no matching route)", key)
		case err != nil:
			log.Printf("ingest: %s failed: %v", key, err)
		default:
			log.Printf("ingest: %s done", key)
		}
	}
	return nil, nil
}
