package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"community-milestones/models"
	"community-milestones/unlock"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestMilestoneServiceRejectsBadInput(t *testing.T) {
	// every case returns before touching the database
	s := NewMilestoneService(nil)
	ctx := context.Background()

	if _, err := s.List(ctx, "abc"); !errors.Is(err, unlock.ErrInvalidExternalID) {
		t.Errorf("List(invalid) = %v", err)
	}
	if _, err := s.Merge(ctx, "123", []string{"creeper"}); !errors.Is(err, unlock.ErrInvalidExternalID) {
		t.Errorf("Merge(invalid) = %v", err)
	}
	n, err := s.Merge(ctx, "775415193760169995", []string{"nope", "also-nope"})
	if err != nil || n != 0 {
		t.Errorf("Merge(unknown only) = %d, %v", n, err)
	}
	err = s.Unlock(ctx, models.UnlockRequest{ExternalID: "775415193760169995", MilestoneID: "nope"})
	if !errors.Is(err, unlock.ErrUnknownMilestone) {
		t.Errorf("Unlock(unknown) = %v", err)
	}
}

func TestAssetServiceCDN(t *testing.T) {
	s := NewAssetService("https://cdn.example.com/", nil, "")
	got := s.ImageURL(context.Background(), "creeper.webp")
	if got != "https://cdn.example.com/rewards/creeper.webp" {
		t.Fatalf("ImageURL = %q", got)
	}
	if s.ImageURL(context.Background(), "") != "" {
		t.Fatalf("empty key must stay empty")
	}
}

func TestAssetServiceBareKeyWithoutStorage(t *testing.T) {
	s := NewAssetService("", nil, "")
	if got := s.ImageURL(context.Background(), "creeper.webp"); got != "creeper.webp" {
		t.Fatalf("ImageURL = %q", got)
	}
}

func TestAssetServicePresigns(t *testing.T) {
	client := s3.New(s3.Options{
		Region:       "auto",
		Credentials:  credentials.NewStaticCredentialsProvider("key", "secret", ""),
		BaseEndpoint: aws.String("https://account.r2.cloudflarestorage.com"),
		UsePathStyle: true,
	})
	s := NewAssetService("", client, "milestones")

	got := s.ImageURL(context.Background(), "creeper.webp")
	if !strings.Contains(got, "/milestones/rewards/creeper.webp") {
		t.Fatalf("presigned URL has wrong object path: %s", got)
	}
	if !strings.Contains(got, "X-Amz-Signature=") || !strings.Contains(got, "X-Amz-Expires=900") {
		t.Fatalf("URL is not presigned for 15 minutes: %s", got)
	}
}
