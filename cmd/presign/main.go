// Package main mints presigned upload URLs for premium-list PDFs and receipt
// photos, seeding the progress log so clients can subscribe immediately.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/policytrack/renewal-backend/internal/authz"
	"github.com/policytrack/renewal-backend/internal/awsutil"
	"github.com/policytrack/renewal-backend/internal/config"
	"github.com/policytrack/renewal-backend/internal/ddb"
	"github.com/policytrack/renewal-backend/internal/httpx"
	"github.com/policytrack/renewal-backend/internal/proclog"
	"github.com/policytrack/renewal-backend/internal/s3io"
	"github.com/policytrack/renewal-backend/internal/validate"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
)

// uploadRequest represents the expected JSON body for a presign request.
type uploadRequest struct {
	Filename string `json:"filename"`
}

// uploadResponse carries the presigned URL and the upload id the client
// watches for progress.
type uploadResponse struct {
	UploadID     string `json:"upload_id"`
	Key          string `json:"key"`
	PresignedURL string `json:"presigned_url"`
	ExpiresIn    int    `json:"expires_in"`
	ContentType  string `json:"content_type"`
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env     config.Env
	s3p     *s3.PresignClient
	ddbRepo *ddb.Repo
}

func main() {
	env := config.MustLoad()
	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}

	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.UsePathStyle = true
		}
	})

	app := &App{
		env:     env,
		s3p:     s3.NewPresignClient(s3c),
		ddbRepo: &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table},
	}
	lambda.Start(app.handler)
}

// handler routes presign requests by API Gateway route key.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	caller, err := authz.FromAPIGWv2(req, a.env.DevBypassAuth)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}

	switch req.RouteKey {
	case "POST /uploads/premium-list":
		return a.presignPremiumList(ctx, caller, req.Body)
	case "POST /policies/{policyId}/receipt-upload":
		return a.presignReceipt(ctx, req.PathParameters["policyId"], req.Body)
	default:
		return httpx.Error(http.StatusNotFound, "unknown route")
	}
}

// presignPremiumList mints the PDF upload URL and writes the initial
// uploading entry, so the client sees progress from the first poll.
func (a *App) presignPremiumList(ctx context.Context, caller authz.Caller, body string) (events.APIGatewayV2HTTPResponse, error) {
	if !caller.CanManagePolicies() {
		return httpx.Error(http.StatusForbidden, "insufficient role")
	}

	var in uploadRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}
	if strings.ToLower(filepath.Ext(in.Filename)) != ".pdf" {
		return httpx.Error(http.StatusBadRequest, "only .pdf files allowed")
	}

	uploadID := fmt.Sprintf("%d_%s", time.Now().Unix(), slug(in.Filename))
	key := s3io.BuildPolicyUploadKey(uploadID)

	if _, err := proclog.Begin(ctx, a.ddbRepo, &proclog.Entry{
		UploadID: uploadID,
		Type:     proclog.TypePDF,
		Stage:    proclog.StageUploading,
		Message:  "Waiting for upload",
	}); err != nil {
		log.Printf("seed progress entry err: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	return a.respondPresigned(ctx, uploadID, key, "application/pdf", map[string]string{
		"uploaded_by": caller.Sub,
	})
}

// presignReceipt mints the receipt-photo upload URL for one policy. The
// policy must exist; failing early here beats failing in the pipeline.
func (a *App) presignReceipt(ctx context.Context, policyID, body string) (events.APIGatewayV2HTTPResponse, error) {
	if strings.TrimSpace(policyID) == "" {
		return httpx.Error(http.StatusBadRequest, "policy id required")
	}
	if _, err := a.ddbRepo.GetPolicy(ctx, policyID); err != nil {
		if errors.Is(err, ddb.ErrNotFound) {
			return httpx.Error(http.StatusNotFound, "policy not found")
		}
		log.Printf("get policy err: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	var in uploadRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}
	ext := filepath.Ext(in.Filename)
	if err := validate.ReceiptExt(ext); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}

	key := s3io.BuildReceiptKey(policyID, time.Now().Unix(), ext)
	_, uploadID, _ := s3io.ParseReceiptKey(key)

	return a.respondPresigned(ctx, uploadID, key, s3io.ReceiptMIMEType(key), map[string]string{
		"policy_id": policyID,
	})
}

func (a *App) respondPresigned(ctx context.Context, uploadID, key, contentType string, meta map[string]string) (events.APIGatewayV2HTTPResponse, error) {
	url, ttl, err := s3io.PresignPut(ctx, a.s3p, a.env.Bucket, key, contentType, meta, a.env.PresignTTL)
	if err != nil {
		log.Printf("presign err: %v", err)
		return httpx.Error(http.StatusInternalServerError, "presign error")
	}
	return httpx.JSON(http.StatusOK, uploadResponse{
		UploadID:     uploadID,
		Key:          key,
		PresignedURL: url,
		ExpiresIn:    int(ttl.Seconds()),
		ContentType:  contentType,
	})
}

var slugRx = regexp.MustCompile(`[^a-z0-9]+`)

// slug normalizes a filename base into an id-safe fragment.
func slug(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	s := slugRx.ReplaceAllString(strings.ToLower(base), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return strings.ToLower(ulid.Make().String())
	}
	return s
}
