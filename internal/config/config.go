// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Env holds the configuration values for the application.
type Env struct {
	Region         string
	Bucket         string
	Table          string
	PresignTTL     time.Duration
	DevBypassAuth  bool
	AnthropicKey   string
	ExtractModel   string
	BulkChunkSize  int
	DefaultDueDate string
	PDFTimeout     time.Duration
	ReceiptTimeout time.Duration
}

// MustLoad reads the environment variables and returns an Env struct.
// A .env file, if present, seeds the environment for local runs.
func MustLoad() Env {
	_ = godotenv.Load()

	ttlSec, _ := strconv.Atoi(get("PRESIGN_TTL_SECONDS", "300"))
	chunk, _ := strconv.Atoi(get("BULK_CHUNK_SIZE", "25"))
	pdfSec, _ := strconv.Atoi(get("PDF_TIMEOUT_SECONDS", "180"))
	receiptSec, _ := strconv.Atoi(get("RECEIPT_TIMEOUT_SECONDS", "60"))

	return Env{
		Region:         get("AWS_REGION", "us-east-1"),
		Bucket:         must("S3_BUCKET"),
		Table:          must("DDB_TABLE"),
		PresignTTL:     time.Duration(ttlSec) * time.Second,
		DevBypassAuth:  get("DEV_BYPASS_AUTH", "") == "true",
		AnthropicKey:   get("ANTHROPIC_API_KEY", ""),
		ExtractModel:   get("EXTRACT_MODEL", ""),
		BulkChunkSize:  chunk,
		DefaultDueDate: get("DEFAULT_DUE_DATE", "2026-03-25"),
		PDFTimeout:     time.Duration(pdfSec) * time.Second,
		ReceiptTimeout: time.Duration(receiptSec) * time.Second,
	}
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// must returns the value of the environment variable k or panics if not set.
func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic(fmt.Errorf("missing env %s", k))
	}
	return v
}
