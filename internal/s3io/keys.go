package s3io

import (
	"fmt"
	"path"
	"strings"
)

// Upload key prefixes watched by the ingest pipeline.
const (
	PolicyUploadPrefix = "policy-uploads/"
	ReceiptPrefix      = "receipts/"
)

// BuildPolicyUploadKey constructs the object key for a premium-list PDF. The
// uploadID doubles as the progress-log id, so the client that minted it can
// watch progress without a handshake.
func BuildPolicyUploadKey(uploadID string) string {
	return fmt.Sprintf("%s%s.pdf", PolicyUploadPrefix, uploadID)
}

// ParsePolicyUploadKey extracts the upload id from a premium-list PDF key.
func ParsePolicyUploadKey(key string) (uploadID string, ok bool) {
	if !strings.HasPrefix(key, PolicyUploadPrefix) {
		return "", false
	}
	base := path.Base(key)
	if strings.ToLower(path.Ext(base)) != ".pdf" {
		return "", false
	}
	uploadID = strings.TrimSuffix(base, path.Ext(base))
	if uploadID == "" {
		return "", false
	}
	return uploadID, true
}

// BuildReceiptKey constructs the object key for a receipt image. The policy
// id is embedded ahead of the first underscore.
func BuildReceiptKey(policyID string, ts int64, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s%s_%d.%s", ReceiptPrefix, policyID, ts, ext)
}

// ParseReceiptKey extracts the policy id and upload id from a receipt key.
// The upload id is the filename without extension (policy id + timestamp).
func ParseReceiptKey(key string) (policyID, uploadID string, ok bool) {
	if !strings.HasPrefix(key, ReceiptPrefix) {
		return "", "", false
	}
	base := path.Base(key)
	uploadID = strings.TrimSuffix(base, path.Ext(base))
	policyID, _, found := strings.Cut(uploadID, "_")
	if !found || policyID == "" {
		return "", "", false
	}
	return policyID, uploadID, true
}

// ReceiptMIMEType maps a receipt key's extension to the payload MIME type
// sent to the extraction model.
func ReceiptMIMEType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
