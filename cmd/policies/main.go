// Package main is the policy CRUD API: manual entry, listing, manual
// verification and the registry lifecycle.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/policytrack/renewal-backend/internal/authz"
	"github.com/policytrack/renewal-backend/internal/awsutil"
	"github.com/policytrack/renewal-backend/internal/config"
	"github.com/policytrack/renewal-backend/internal/ddb"
	"github.com/policytrack/renewal-backend/internal/httpx"
	"github.com/policytrack/renewal-backend/internal/models"
	"github.com/policytrack/renewal-backend/internal/validate"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/oklog/ulid/v2"
)

// createRequest is the body for manual policy creation, both kinds.
type createRequest struct {
	PolicyNumber string  `json:"policy_number"`
	CustomerName string  `json:"customer_name"`
	Amount       float64 `json:"amount"`
	Commission   float64 `json:"commission"`
	Mode         string  `json:"mode"`
	DueDate      string  `json:"due_date"`
	FollowUpDate string  `json:"follow_up_date"`
}

// statusRequest is the body for a registry lifecycle change.
type statusRequest struct {
	Status string `json:"status"`
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env     config.Env
	ddbRepo *ddb.Repo
}

func main() {
	env := config.MustLoad()
	cfg, _, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal(err)
	}
	app := &App{env: env, ddbRepo: &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table}}
	lambda.Start(app.handler)
}

// handler routes by API Gateway route key.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	caller, err := authz.FromAPIGWv2(req, a.env.DevBypassAuth)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}

	switch req.RouteKey {
	case "GET /policies":
		return a.list(ctx, caller, models.KindRenewal)
	case "GET /registry":
		return a.list(ctx, caller, models.KindRegistry)
	case "POST /policies":
		return a.create(ctx, caller, req.Body, models.KindRenewal)
	case "POST /registry":
		return a.create(ctx, caller, req.Body, models.KindRegistry)
	case "POST /policies/{policyId}/verify":
		return a.verify(ctx, caller, req.PathParameters["policyId"])
	case "PUT /registry/{policyId}/status":
		return a.updateRegistryStatus(ctx, caller, req.PathParameters["policyId"], req.Body)
	case "DELETE /policies/{policyId}":
		return a.delete(ctx, caller, req.PathParameters["policyId"])
	default:
		return httpx.Error(http.StatusNotFound, "unknown route")
	}
}

// list returns records of one kind, stripping commission for staff.
func (a *App) list(ctx context.Context, caller authz.Caller, kind models.PolicyKind) (events.APIGatewayV2HTTPResponse, error) {
	items, err := a.ddbRepo.ListPolicies(ctx, kind, 200)
	if err != nil {
		log.Printf("list error: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	if !caller.CanSeeCommission() {
		for i := range items {
			items[i].Commission = 0
		}
	}
	return httpx.JSON(http.StatusOK, items)
}

// create inserts a manually entered record. Manual renewal numbers follow
// the relaxed 8-9 digit rule; registry records use long-form modes and start
// active.
func (a *App) create(ctx context.Context, caller authz.Caller, body string, kind models.PolicyKind) (events.APIGatewayV2HTTPResponse, error) {
	if !caller.CanManagePolicies() {
		return httpx.Error(http.StatusForbidden, "insufficient role")
	}

	var in createRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}
	if err := a.validateCreate(in, kind); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}

	p := models.PolicyRecord{
		PolicyID:     ulid.Make().String(),
		Kind:         kind,
		PolicyNumber: in.PolicyNumber,
		CustomerName: strings.TrimSpace(in.CustomerName),
		Amount:       in.Amount,
		Commission:   in.Commission,
		Mode:         in.Mode,
		DueDate:      in.DueDate,
		FollowUpDate: in.FollowUpDate,
		UploadedBy:   caller.Sub,
		CreatedAt:    ddb.NowISO(),
	}
	if kind == models.KindRenewal {
		p.Status = models.RenewalPending
	} else {
		p.RegistryStatus = models.RegistryActive
	}

	if err := a.ddbRepo.PutPolicy(ctx, p); err != nil {
		log.Printf("put policy err: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusCreated, p)
}

func (a *App) validateCreate(in createRequest, kind models.PolicyKind) error {
	checks := []func() error{
		func() error { return validate.ManualPolicyNumber(in.PolicyNumber) },
		func() error { return validate.CustomerName(in.CustomerName) },
		func() error { return validate.Amount(in.Amount) },
		func() error { return validate.Commission(in.Commission) },
	}
	if kind == models.KindRenewal {
		checks = append(checks, func() error { return validate.RenewalMode(in.Mode) })
	} else {
		checks = append(checks, func() error { return validate.RegistryMode(in.Mode) })
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// verify marks a renewal record verified by explicit user action.
func (a *App) verify(ctx context.Context, caller authz.Caller, policyID string) (events.APIGatewayV2HTTPResponse, error) {
	if !caller.CanManagePolicies() {
		return httpx.Error(http.StatusForbidden, "insufficient role")
	}
	p, err := a.ddbRepo.GetPolicy(ctx, policyID)
	if err != nil {
		if errors.Is(err, ddb.ErrNotFound) {
			return httpx.Error(http.StatusNotFound, "policy not found")
		}
		log.Printf("get policy err: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	if p.Kind != models.KindRenewal {
		return httpx.Error(http.StatusBadRequest, "only renewal records can be verified")
	}

	if err := a.ddbRepo.MarkVerified(ctx, policyID, models.VerifyManual, p.PolicyNumber, p.CustomerName, p.ReceiptKey); err != nil {
		log.Printf("mark verified err: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusOK, map[string]string{
		"policy_id":   policyID,
		"status":      string(models.RenewalVerified),
		"verified_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// updateRegistryStatus moves a registry policy through its lifecycle.
func (a *App) updateRegistryStatus(ctx context.Context, caller authz.Caller, policyID, body string) (events.APIGatewayV2HTTPResponse, error) {
	if !caller.CanManagePolicies() {
		return httpx.Error(http.StatusForbidden, "insufficient role")
	}
	var in statusRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}
	status := models.RegistryStatus(in.Status)
	switch status {
	case models.RegistryActive, models.RegistryLapsed, models.RegistryMatured, models.RegistrySurrendered:
	default:
		return httpx.Error(http.StatusBadRequest, "invalid registry status")
	}

	if err := a.ddbRepo.UpdateRegistryStatus(ctx, policyID, status); err != nil {
		log.Printf("update registry status err: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusOK, map[string]string{"policy_id": policyID, "registry_status": in.Status})
}

// delete removes one record; admin only.
func (a *App) delete(ctx context.Context, caller authz.Caller, policyID string) (events.APIGatewayV2HTTPResponse, error) {
	if caller.Role != authz.RoleAdmin {
		return httpx.Error(http.StatusForbidden, "admin only")
	}
	if err := a.ddbRepo.DeletePolicy(ctx, policyID); err != nil {
		log.Printf("delete policy err: %v", err)
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.NoContent(http.StatusNoContent)
}
