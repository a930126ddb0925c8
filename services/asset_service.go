package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	rewardsPrefix = "rewards/"
	presignExpiry = 15 * time.Minute
)

// AssetService turns milestone image keys into fetchable URLs.
type AssetService struct {
	cdnBaseURL string
	bucket     string
	presign    *s3.PresignClient
}

// NewAssetService prefers cdnBaseURL; otherwise client (may be nil) presigns bucket objects.
func NewAssetService(cdnBaseURL string, client *s3.Client, bucket string) *AssetService {
	s := &AssetService{
		cdnBaseURL: strings.TrimRight(cdnBaseURL, "/"),
		bucket:     bucket,
	}
	if client != nil && bucket != "" {
		s.presign = s3.NewPresignClient(client)
	}
	return s
}

// ImageURL resolves imageKey. Without CDN or bucket the bare key is returned.
func (s *AssetService) ImageURL(ctx context.Context, imageKey string) string {
	if imageKey == "" {
		return ""
	}
	key := rewardsPrefix + strings.TrimLeft(imageKey, "/")

	if s.cdnBaseURL != "" {
		return s.cdnBaseURL + "/" + key
	}
	if s.presign == nil {
		return imageKey
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		log.Printf("⚠️ Failed to presign %s: %v", key, err)
		return imageKey
	}
	return req.URL
}
