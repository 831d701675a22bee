package connectors

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/AumkarMali/backendVibeVideo/internal/stream"
)

type s3Connector struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Connector(ctx context.Context) (Connector, error) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET required when enabling s3 connector")
	}
	prefix := os.Getenv("S3_PREFIX")
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Connector{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *s3Connector) Name() string {
	return "s3"
}

func (s *s3Connector) StoreArtifact(ctx context.Context, requestID, name, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.keyFor(requestID, name)),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ACL:           types.ObjectCannedACLPrivate,
		Metadata: map[string]string{
			"file_name":  name,
			"request_id": requestID,
		},
		ContentType: aws.String(stream.ContentType(name)),
	})
	return err
}

func (s *s3Connector) keyFor(requestID, name string) string {
	if s.prefix == "" {
		return path.Join(requestID, name)
	}
	return path.Join(s.prefix, requestID, name)
}
