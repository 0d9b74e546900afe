package listeners

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	gojson "github.com/goccy/go-json"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/billing"
	"github.com/ManuelReschke/PaddleBilling/internal/pkg/config"
)

// ObjectPutter is the subset of *s3.Client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client for cfg. A custom endpoint switches to
// path-style addressing for S3-compatible stores (MinIO, Backblaze B2).
func NewS3Client(ctx context.Context, cfg config.S3Archive) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	}), nil
}

// Receipt is the archived JSON document for one purchase.
type Receipt struct {
	ArchivedAt time.Time    `json:"archived_at"`
	Purchase   purchaseData `json:"purchase"`
}

// ReceiptArchiver stores a JSON receipt per purchase. It only handles
// purchases, never raw webhooks.
type ReceiptArchiver struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
}

func NewReceiptArchiver(client ObjectPutter, bucket, prefix string) *ReceiptArchiver {
	return &ReceiptArchiver{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// ObjectKey returns <prefix>/YYYY/MM/<transaction id>.json.
func (a *ReceiptArchiver) ObjectKey(transactionID string, at time.Time) string {
	return path.Join(a.prefix, fmt.Sprintf("%04d/%02d", at.Year(), int(at.Month())), transactionID+".json")
}

func (a *ReceiptArchiver) OnPurchaseCompleted(ctx context.Context, e *billing.PurchaseCompleted) error {
	now := a.now().UTC()
	body, err := gojson.Marshal(Receipt{ArchivedAt: now, Purchase: newPurchaseData(e)})
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	key := a.ObjectKey(e.Purchase.PaddleTransactionID, now)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata: map[string]string{
			"transaction-id": e.Purchase.PaddleTransactionID,
			"upload-source":  "paddle-billing",
		},
	})
	if err != nil {
		return fmt.Errorf("upload receipt s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}
