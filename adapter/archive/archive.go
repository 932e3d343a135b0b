// Package archive implements an adapter that appends session-finished
// events to a Lode dataset on the local filesystem or S3.
//
// Records are Hive-partitioned by day, mode and state so downstream tools
// can prune by partition. Each publish is one Lode snapshot.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"

	"github.com/ltwin/communication-translator/adapter"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "commtrans"

// RecordKindSession marks archived session records.
const RecordKindSession = "session"

// partitionKeys is the Hive layout of the dataset.
var partitionKeys = []string{"day", "mode", "state"}

// S3Config holds configuration for the S3 storage backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom endpoint for S3-compatible providers.
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// Config holds archive adapter settings.
type Config struct {
	// Target is a directory path, file://path or s3://bucket/prefix.
	Target string
	// Dataset is the Lode dataset ID. Defaults to DefaultDataset.
	Dataset string
	// S3 supplies region and endpoint settings for s3:// targets.
	S3 S3Config
}

// Archive writes events to a Lode dataset.
type Archive struct {
	dataset lode.Dataset
	target  string
}

// New creates an archive for cfg.Target.
// S3 targets use the AWS SDK default credential chain.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	target := strings.TrimSpace(cfg.Target)
	switch {
	case target == "":
		return nil, errors.New("archive target is required")
	case strings.HasPrefix(target, "s3://"):
		s3cfg := cfg.S3
		s3cfg.Bucket, s3cfg.Prefix, _ = strings.Cut(strings.TrimPrefix(target, "s3://"), "/")
		factory, err := newS3Factory(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		return NewWithFactory(cfg.Dataset, target, factory)
	default:
		root := strings.TrimPrefix(target, "file://")
		return NewWithFactory(cfg.Dataset, target, lode.NewFSFactory(root))
	}
}

// NewWithFactory creates an archive over a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewWithFactory(dataset, target string, factory lode.StoreFactory) (*Archive, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Lode dataset: %w", err)
	}
	return &Archive{dataset: ds, target: target}, nil
}

func newS3Factory(ctx context.Context, cfg S3Config) (lode.StoreFactory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsConfig, s3Opts...)

	return func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{
			Bucket: cfg.Bucket,
			Prefix: cfg.Prefix,
		})
	}, nil
}

// Target returns the configured target.
func (a *Archive) Target() string {
	return a.target
}

// Publish writes event as one record.
func (a *Archive) Publish(ctx context.Context, event *adapter.SessionFinishedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := a.dataset.Write(ctx, []any{toRecordMap(event)}, lode.Metadata{}); err != nil {
		return fmt.Errorf("archive write: %w", err)
	}
	return nil
}

// Close releases archive resources.
func (a *Archive) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// toRecordMap flattens event into a record carrying its partition keys.
func toRecordMap(e *adapter.SessionFinishedEvent) map[string]any {
	day := e.Timestamp
	if t, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
		day = t.UTC().Format(time.DateOnly)
	}
	record := map[string]any{
		"record_kind":    RecordKindSession,
		"day":            day,
		"mode":           e.Mode,
		"state":          e.State,
		"event_type":     e.EventType,
		"version":        e.Version,
		"session_id":     e.SessionID,
		"content_length": e.ContentLength,
		"output_length":  e.OutputLength,
		"deltas":         e.Deltas,
		"timestamp":      e.Timestamp,
		"duration_ms":    e.DurationMs,
	}
	if e.Failure != "" {
		record["failure"] = e.Failure
		record["reason"] = e.Reason
	}
	if e.DetectedDirection != "" {
		record["detected_direction"] = e.DetectedDirection
		record["confidence"] = e.Confidence
	}
	return record
}

var _ adapter.Adapter = (*Archive)(nil)
