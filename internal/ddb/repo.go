// Package ddb provides the DynamoDB repository for policy records and
// pipeline progress entries. Both live in one table under a PK/SK scheme.
package ddb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/policytrack/renewal-backend/internal/models"
	"github.com/policytrack/renewal-backend/internal/proclog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = errors.New("item not found")

// MaxTransactItems is DynamoDB's hard cap on one TransactWriteItems call.
const MaxTransactItems = 100

// DefaultChunkSize keeps bulk-insert batches well under MaxTransactItems.
const DefaultChunkSize = 25

const listIndex = "GSI1"

// API is the subset of the DynamoDB client the repository uses, as an
// interface so tests can substitute fakes.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Repo wraps a DynamoDB client and table name for policy and progress
// operations.
type Repo struct {
	DB    API
	Table string
	// ChunkSize bounds one atomic bulk-insert batch; zero means
	// DefaultChunkSize.
	ChunkSize int
}

// awsStr is a helper to get a pointer to a string literal.
func awsStr(s string) *string { return &s }

// NowISO returns the current time in ISO8601 format.
func NowISO() string { return time.Now().UTC().Format(time.RFC3339) }

// MakePolicyKeys constructs the PK and SK for a policy record.
func MakePolicyKeys(policyID string) (pk, sk string) {
	return fmt.Sprintf("POLICY#%s", policyID), "RECORD"
}

// MakeProgressKeys constructs the PK and SK for a progress entry.
func MakeProgressKeys(uploadID string) (pk, sk string) {
	return fmt.Sprintf("UPLOAD#%s", uploadID), "PROGRESS"
}

// listPartition returns the GSI1 partition for a policy kind.
func listPartition(kind models.PolicyKind) string {
	if kind == models.KindRegistry {
		return "REGISTRY"
	}
	return "RENEWAL"
}

func keyAttrs(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// stampKeys fills in the table and index keys derived from the record.
func stampKeys(p *models.PolicyRecord) {
	p.PK, p.SK = MakePolicyKeys(p.PolicyID)
	p.GSI1PK = listPartition(p.Kind)
	p.GSI1SK = p.CreatedAt
}

// PutPolicy inserts a new policy record, ensuring no duplicate exists.
func (r *Repo) PutPolicy(ctx context.Context, p models.PolicyRecord) error {
	stampKeys(&p)
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                item,
		ConditionExpression: awsStr("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	return err
}

// GetPolicy loads one policy record, or ErrNotFound.
func (r *Repo) GetPolicy(ctx context.Context, policyID string) (*models.PolicyRecord, error) {
	pk, sk := MakePolicyKeys(policyID)
	out, err := r.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.Table,
		Key:       keyAttrs(pk, sk),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var p models.PolicyRecord
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// chunkSize returns the effective bulk-insert batch size, clamped under the
// TransactWriteItems cap.
func (r *Repo) chunkSize() int {
	n := r.ChunkSize
	if n <= 0 {
		n = DefaultChunkSize
	}
	if n > MaxTransactItems {
		n = MaxTransactItems
	}
	return n
}

// BulkInsertPolicies writes records in sequential atomic chunks. Each chunk
// commits or fails as a unit; a failing chunk does not roll back chunks
// already committed. Returns the number of records actually written.
func (r *Repo) BulkInsertPolicies(ctx context.Context, records []models.PolicyRecord) (int, error) {
	size := r.chunkSize()
	written := 0
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		items := make([]types.TransactWriteItem, 0, len(chunk))
		for i := range chunk {
			p := chunk[i]
			stampKeys(&p)
			av, err := attributevalue.MarshalMap(p)
			if err != nil {
				return written, fmt.Errorf("marshal policy %s: %w", p.PolicyID, err)
			}
			items = append(items, types.TransactWriteItem{
				Put: &types.Put{TableName: &r.Table, Item: av},
			})
		}

		if _, err := r.DB.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		}); err != nil {
			return written, fmt.Errorf("bulk insert chunk %d-%d: %w", start, end, err)
		}
		written += len(chunk)
	}
	return written, nil
}

// MarkVerified transitions one renewal record to verified and attaches the
// verification evidence. Fails if the record does not exist.
func (r *Repo) MarkVerified(ctx context.Context, policyID string, method models.VerificationMethod, number, name, receiptKey string) error {
	pk, sk := MakePolicyKeys(policyID)
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.Table,
		Key:                 keyAttrs(pk, sk),
		ConditionExpression: awsStr("attribute_exists(PK)"),
		UpdateExpression: awsStr("SET #st = :verified, verified_at = :at, verification_method = :method, " +
			"verified_number = :num, verified_name = :name, receipt_key = :rk"),
		ExpressionAttributeNames: map[string]string{"#st": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":verified": &types.AttributeValueMemberS{Value: string(models.RenewalVerified)},
			":at":       &types.AttributeValueMemberS{Value: NowISO()},
			":method":   &types.AttributeValueMemberS{Value: string(method)},
			":num":      &types.AttributeValueMemberS{Value: number},
			":name":     &types.AttributeValueMemberS{Value: name},
			":rk":       &types.AttributeValueMemberS{Value: receiptKey},
		},
	})
	return err
}

// UpdateRegistryStatus moves a registry policy to a new lifecycle state.
func (r *Repo) UpdateRegistryStatus(ctx context.Context, policyID string, status models.RegistryStatus) error {
	pk, sk := MakePolicyKeys(policyID)
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.Table,
		Key:                 keyAttrs(pk, sk),
		ConditionExpression: awsStr("attribute_exists(PK) AND kind = :registry"),
		UpdateExpression:    awsStr("SET registry_status = :st"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":st":       &types.AttributeValueMemberS{Value: string(status)},
			":registry": &types.AttributeValueMemberS{Value: string(models.KindRegistry)},
		},
	})
	return err
}

// DeletePolicy removes one policy record.
func (r *Repo) DeletePolicy(ctx context.Context, policyID string) error {
	pk, sk := MakePolicyKeys(policyID)
	_, err := r.DB.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &r.Table,
		Key:       keyAttrs(pk, sk),
	})
	return err
}

// ListPolicies returns records of one kind, newest first.
func (r *Repo) ListPolicies(ctx context.Context, kind models.PolicyKind, limit int32) ([]models.PolicyRecord, error) {
	out, err := r.DB.Query(ctx, &dynamodb.QueryInput{
		TableName:              &r.Table,
		IndexName:              awsStr(listIndex),
		KeyConditionExpression: awsStr("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: listPartition(kind)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		return nil, err
	}
	var items []models.PolicyRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ---- proclog.Store ----

// PutEntry creates a progress entry keyed by upload id.
func (r *Repo) PutEntry(ctx context.Context, e *proclog.Entry) error {
	e.PK, e.SK = MakeProgressKeys(e.UploadID)
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.Table,
		Item:      item,
	})
	return err
}

// UpdateEntry rewrites the entry in place. The pipeline is the sole writer of
// a given upload id, so a plain put is safe.
func (r *Repo) UpdateEntry(ctx context.Context, e *proclog.Entry) error {
	return r.PutEntry(ctx, e)
}

// GetEntry loads a progress entry, or ErrNotFound.
func (r *Repo) GetEntry(ctx context.Context, uploadID string) (*proclog.Entry, error) {
	pk, sk := MakeProgressKeys(uploadID)
	out, err := r.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.Table,
		Key:       keyAttrs(pk, sk),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var e proclog.Entry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
