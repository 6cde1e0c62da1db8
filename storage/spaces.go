package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
}

// SpacesClient archives processed scripts to an S3-compatible bucket so they
// survive database resets.
type SpacesClient struct {
	client *s3.Client
	bucket string
}

func NewSpacesClient(cfg SpacesConfig) (*SpacesClient, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: cfg.Endpoint,
		}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %v", err)
	}

	return &SpacesClient{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
	}, nil
}

type archivedScript struct {
	VideoID    string    `json:"video_id"`
	Title      string    `json:"title"`
	Transcript string    `json:"transcript"`
	Script     string    `json:"script"`
	ArchivedAt time.Time `json:"archived_at"`
}

// SaveScript stores the processed script alongside its source transcript,
// keyed by user, schedule date and video.
func (s *SpacesClient) SaveScript(ctx context.Context, userID, date, videoID, title, transcript, script string) error {
	data := archivedScript{
		VideoID:    videoID,
		Title:      title,
		Transcript: transcript,
		Script:     script,
		ArchivedAt: time.Now(),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %v", err)
	}

	key := scriptKey(userID, date, videoID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(jsonData),
	})
	if err != nil {
		return fmt.Errorf("failed to save to Spaces: %v", err)
	}

	return nil
}

func scriptKey(userID, date, videoID string) string {
	return fmt.Sprintf("scripts/%s/%s/%s.json", userID, date, videoID)
}
