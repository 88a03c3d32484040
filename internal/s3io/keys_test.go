package s3io

import "testing"

func TestPolicyUploadKeyRoundTrip(t *testing.T) {
	key := BuildPolicyUploadKey("1700000000_march-list")
	if key != "policy-uploads/1700000000_march-list.pdf" {
		t.Fatalf("key = %q", key)
	}
	id, ok := ParsePolicyUploadKey(key)
	if !ok || id != "1700000000_march-list" {
		t.Fatalf("parse = %q, %v", id, ok)
	}
}

func TestParsePolicyUploadKeyRejects(t *testing.T) {
	bad := []string{
		"policy-uploads/list.txt",
		"policy-uploads/.pdf",
		"receipts/pol1_123.jpg",
		"other/list.pdf",
		"list.pdf",
	}
	for _, key := range bad {
		if _, ok := ParsePolicyUploadKey(key); ok {
			t.Errorf("ParsePolicyUploadKey(%q) accepted", key)
		}
	}
}

func TestReceiptKeyRoundTrip(t *testing.T) {
	key := BuildReceiptKey("pol123", 1700000000, ".jpg")
	if key != "receipts/pol123_1700000000.jpg" {
		t.Fatalf("key = %q", key)
	}
	policyID, uploadID, ok := ParseReceiptKey(key)
	if !ok || policyID != "pol123" || uploadID != "pol123_1700000000" {
		t.Fatalf("parse = %q, %q, %v", policyID, uploadID, ok)
	}
}

func TestParseReceiptKeyRejects(t *testing.T) {
	bad := []string{
		"receipts/noseparator.jpg",
		"receipts/_123.jpg",
		"policy-uploads/pol1_123.jpg",
	}
	for _, key := range bad {
		if _, _, ok := ParseReceiptKey(key); ok {
			t.Errorf("ParseReceiptKey(%q) accepted", key)
		}
	}
}

func TestReceiptMIMEType(t *testing.T) {
	tests := []struct{ key, want string }{
		{"receipts/p_1.png", "image/png"},
		{"receipts/p_1.PNG", "image/png"},
		{"receipts/p_1.webp", "image/webp"},
		{"receipts/p_1.jpg", "image/jpeg"},
		{"receipts/p_1.jpeg", "image/jpeg"},
	}
	for _, tt := range tests {
		if got := ReceiptMIMEType(tt.key); got != tt.want {
			t.Errorf("ReceiptMIMEType(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
