package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"regexp"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"foodgram/internal/utils"
)

type (
	AwsS3 interface {
		UploadFile(ctx context.Context, key string, body []byte, contentType string) (string, error)
		DeleteFile(ctx context.Context, key string) error
		KeyFromURL(url string) string
	}

	awsS3 struct {
		client *s3.Client
		bucket string
		region string
	}
)

func NewAwsS3() AwsS3 {
	region := utils.GetConfig("AWS_S3_REGION")
	cfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			utils.GetConfig("AWS_ACCESS_KEY"),
			utils.GetConfig("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		log.Fatalf("error loading AWS configuration: %v", err)
	}

	return &awsS3{
		client: s3.NewFromConfig(cfg),
		bucket: utils.GetConfig("AWS_S3_BUCKET"),
		region: region,
	}
}

func (s *awsS3) UploadFile(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func (s *awsS3) DeleteFile(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	return err
}

func (s *awsS3) KeyFromURL(url string) string {
	prefix := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region)
	return strings.TrimPrefix(url, prefix)
}

var base64ImageRegex = regexp.MustCompile(`^data:image/(png|jpe?g|gif|webp);base64,(.+)$`)

// DecodeBase64Image parses an inline "data:image/...;base64," payload and
// returns the raw bytes, content type and file extension.
func DecodeBase64Image(data string) ([]byte, string, string, error) {
	matches := base64ImageRegex.FindStringSubmatch(data)
	if matches == nil {
		return nil, "", "", fmt.Errorf("not a base64 encoded image")
	}

	format := matches[1]
	decoded, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return nil, "", "", err
	}

	ext := format
	if format == "jpeg" {
		ext = "jpg"
	}

	return decoded, "image/" + format, ext, nil
}
