// Package models defines the data models used in the application.
package models

// RenewalStatus is the two-state lifecycle of a renewal-period policy record.
type RenewalStatus string

// Possible values for RenewalStatus
const (
	RenewalPending  RenewalStatus = "pending"
	RenewalVerified RenewalStatus = "verified"
)

// RegistryStatus is the lifecycle of a long-lived registry policy. It is
// independent of RenewalStatus; the two are never mixed on one record.
type RegistryStatus string

// Possible values for RegistryStatus
const (
	RegistryActive      RegistryStatus = "active"
	RegistryLapsed      RegistryStatus = "lapsed"
	RegistryMatured     RegistryStatus = "matured"
	RegistrySurrendered RegistryStatus = "surrendered"
)

// VerificationMethod records how a renewal record reached verified.
type VerificationMethod string

// Possible values for VerificationMethod
const (
	VerifyAuto   VerificationMethod = "auto"
	VerifyManual VerificationMethod = "manual"
)

// PolicyKind separates renewal-period records from the all-policies registry.
type PolicyKind string

// Possible values for PolicyKind
const (
	KindRenewal  PolicyKind = "renewal"
	KindRegistry PolicyKind = "registry"
)

// PolicyRecord is the canonical unit of business state.
type PolicyRecord struct {
	// DynamoDB keys
	PK string `dynamodbav:"PK" json:"-"` // POLICY#<id>
	SK string `dynamodbav:"SK" json:"-"` // RECORD

	// GSI partition for list queries: RENEWAL or REGISTRY
	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"` // created_at

	PolicyID     string     `dynamodbav:"policy_id" json:"policy_id"`
	Kind         PolicyKind `dynamodbav:"kind" json:"kind"`
	PolicyNumber string     `dynamodbav:"policy_number" json:"policy_number"`
	CustomerName string     `dynamodbav:"customer_name" json:"customer_name"`
	Amount       float64    `dynamodbav:"amount" json:"amount"`
	// Commission is visible only to privileged roles; handlers strip it
	// before responding to staff.
	Commission   float64 `dynamodbav:"commission" json:"commission,omitempty"`
	Mode         string  `dynamodbav:"mode" json:"mode"`
	DueDate      string  `dynamodbav:"due_date" json:"due_date"`
	FollowUpDate string  `dynamodbav:"follow_up_date,omitempty" json:"follow_up_date,omitempty"`

	Status         RenewalStatus  `dynamodbav:"status,omitempty" json:"status,omitempty"`
	RegistryStatus RegistryStatus `dynamodbav:"registry_status,omitempty" json:"registry_status,omitempty"`

	ReceiptKey string `dynamodbav:"receipt_key,omitempty" json:"receipt_key,omitempty"`

	// Audit fields; set by the pipeline or explicit user action only.
	UploadedBy         string             `dynamodbav:"uploaded_by,omitempty" json:"uploaded_by,omitempty"`
	UploadID           string             `dynamodbav:"upload_id,omitempty" json:"upload_id,omitempty"`
	CreatedAt          string             `dynamodbav:"created_at" json:"created_at"`
	VerifiedAt         string             `dynamodbav:"verified_at,omitempty" json:"verified_at,omitempty"`
	VerificationMethod VerificationMethod `dynamodbav:"verification_method,omitempty" json:"verification_method,omitempty"`

	// Evidence snapshot from automatic verification, kept for audit.
	VerifiedNumber string `dynamodbav:"verified_number,omitempty" json:"verified_number,omitempty"`
	VerifiedName   string `dynamodbav:"verified_name,omitempty" json:"verified_name,omitempty"`
}

// ExtractedPolicy is one row of the model's premium-due list output.
type ExtractedPolicy struct {
	PolicyNumber string  `json:"policyNumber"`
	CustomerName string  `json:"customerName"`
	Mod          string  `json:"mod"`
	Fup          string  `json:"fup"`
	Amount       float64 `json:"amount"`
	Commission   float64 `json:"commission"`
}

// ReceiptExtraction is the model's reading of a payment receipt photo.
// Unreadable fields come back nil rather than guessed.
type ReceiptExtraction struct {
	PolicyNumber *string  `json:"policyNumber"`
	CustomerName *string  `json:"customerName"`
	Confidence   *float64 `json:"confidence"`
}
