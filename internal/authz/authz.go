// Package authz extracts the caller's identity and role from API Gateway
// requests.
package authz

import (
	"errors"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// ErrUnauthorized is returned when no caller identity can be established.
var ErrUnauthorized = errors.New("unauthorized")

// Role is the caller's access level.
type Role string

// Possible values for Role
const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

const (
	devBypassSubHeader  = "x-user-sub"
	devBypassRoleHeader = "x-user-role"
	roleClaim           = "custom:role"
)

// Caller is an authenticated request principal.
type Caller struct {
	Sub  string
	Role Role
}

// CanSeeCommission reports whether the caller may read commission fields.
func (c Caller) CanSeeCommission() bool {
	return c.Role == RoleAdmin || c.Role == RoleManager
}

// CanManagePolicies reports whether the caller may create, verify or delete
// records.
func (c Caller) CanManagePolicies() bool {
	return c.Role == RoleAdmin || c.Role == RoleManager
}

// headerLookup returns a header value case-insensitively.
func headerLookup(h map[string]string, key string) string {
	lk := strings.ToLower(key)
	for k, v := range h {
		if strings.ToLower(k) == lk {
			return v
		}
	}
	return ""
}

func parseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleManager:
		return RoleManager
	default:
		return RoleStaff
	}
}

// FromAPIGWv2 extracts the caller from an HTTP API (v2) request. Unknown or
// missing role claims default to staff, the least privileged role.
func FromAPIGWv2(req events.APIGatewayV2HTTPRequest, devBypass bool) (Caller, error) {
	if devBypass {
		if sub := strings.TrimSpace(headerLookup(req.Headers, devBypassSubHeader)); sub != "" {
			return Caller{Sub: sub, Role: parseRole(headerLookup(req.Headers, devBypassRoleHeader))}, nil
		}
	}

	if req.RequestContext.Authorizer != nil && req.RequestContext.Authorizer.JWT != nil {
		claims := req.RequestContext.Authorizer.JWT.Claims
		if sub := claims["sub"]; sub != "" {
			return Caller{Sub: sub, Role: parseRole(claims[roleClaim])}, nil
		}
	}

	return Caller{}, ErrUnauthorized
}
