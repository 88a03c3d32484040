// Package s3io provides utilities for working with S3: upload key
// conventions, presigned PUT URLs and object download.
package s3io

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner defines the interface for presigning S3 requests.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Getter defines the subset of the S3 client used to fetch uploaded objects.
type Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// PresignPut generates a presigned URL for uploading an object with the
// specified parameters.
func PresignPut(ctx context.Context, p Presigner, bucket, key, contentType string, meta map[string]string, ttl time.Duration) (string, time.Duration, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata:    meta,
	}
	req, err := p.PresignPutObject(ctx, input, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", 0, err
	}
	return req.URL, ttl, nil
}

// TempFetcher fetches uploaded objects through a temp file on local disk,
// handing back the bytes and a cleanup func removing the transient copy.
type TempFetcher struct {
	Client Getter
}

// Fetch downloads the object and returns its contents. The cleanup func must
// run on every exit path of the caller.
func (f TempFetcher) Fetch(ctx context.Context, bucket, key string) ([]byte, func(), error) {
	path, cleanup, err := DownloadToTemp(ctx, f.Client, bucket, key)
	if err != nil {
		return nil, cleanup, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return data, cleanup, nil
}

// DownloadToTemp fetches an object into a temp file and returns its path
// with a cleanup func. Callers must invoke cleanup on every exit path so tmp
// storage does not accumulate across invocations on a shared host.
func DownloadToTemp(ctx context.Context, g Getter, bucket, key string) (string, func(), error) {
	obj, err := g.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", func() {}, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Body.Close()

	tmp, err := os.CreateTemp("", "ingest_*")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, obj.Body); err != nil {
		tmp.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("download %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return tmp.Name(), cleanup, nil
}
