// Package main serves progress-log entries to polling clients by upload id.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/policytrack/renewal-backend/internal/authz"
	"github.com/policytrack/renewal-backend/internal/awsutil"
	"github.com/policytrack/renewal-backend/internal/config"
	"github.com/policytrack/renewal-backend/internal/ddb"
	"github.com/policytrack/renewal-backend/internal/httpx"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// App holds the application state, including configuration and AWS clients.
type App struct {
	env     config.Env
	ddbRepo *ddb.Repo
}

// handler returns the progress entry for one upload id. Any authenticated
// caller may observe any entry; the pipeline is the sole writer.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if _, err := authz.FromAPIGWv2(req, a.env.DevBypassAuth); err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}

	uploadID := strings.TrimSpace(req.PathParameters["uploadId"])
	if uploadID == "" {
		return httpx.Error(http.StatusBadRequest, "upload id required")
	}

	entry, err := a.ddbRepo.GetEntry(ctx, uploadID)
	if err != nil {
		if errors.Is(err, ddb.ErrNotFound) {
			return httpx.Error(http.StatusNotFound, "no progress entry")
		}
		log.Printf("get entry error: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusOK, entry)
}

// main initializes the application and starts the Lambda handler.
func main() {
	env := config.MustLoad()
	cfg, _, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}
	app := &App{env: env, ddbRepo: &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table}}
	lambda.Start(app.handler)
}
