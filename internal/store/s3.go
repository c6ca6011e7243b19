package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"cryptosnap/config"
	"cryptosnap/internal/metrics"
	"cryptosnap/internal/models"
	"cryptosnap/logger"
)

// ObjectAPI is the subset of the S3 client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 writes <prefix>/<tf>.json and, when enabled, a Parquet copy at
// <prefix>/<tf>.parquet. Each save overwrites the previous objects.
type S3 struct {
	api         ObjectAPI
	bucket      string
	prefix      string
	parquet     bool
	compression string
	version     string
	log         *logger.Log
}

func NewS3(api ObjectAPI, cfg config.S3Config, version string) *S3 {
	return &S3{
		api:         api,
		bucket:      cfg.Bucket,
		prefix:      cfg.Prefix,
		parquet:     cfg.Parquet,
		compression: cfg.ParquetCompression,
		version:     version,
		log:         logger.GetLogger(),
	}
}

// NewS3FromConfig loads AWS credentials (static keys when configured) and
// builds the client.
func NewS3FromConfig(ctx context.Context, cfg config.S3Config, version string) (*S3, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	s := NewS3(client, cfg, version)
	s.log.WithComponent("s3_store").WithFields(logger.Fields{
		"bucket":  cfg.Bucket,
		"prefix":  cfg.Prefix,
		"parquet": cfg.Parquet,
	}).Info("s3 snapshot store configured")
	return s, nil
}

func (s *S3) key(tf models.Timeframe, ext string) string {
	return path.Join(s.prefix, tf.String()+"."+ext)
}

func (s *S3) Save(ctx context.Context, tf models.Timeframe, snap models.MarketSnapshot) (err error) {
	defer func() { metrics.RecordSnapshotSave(tf.String(), err) }()

	entry := s.log.WithComponent("s3_store").WithFields(logger.Fields{
		"timeframe":    tf.String(),
		"coins_number": snap.CoinsNumber,
	})

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", tf, err)
	}
	jsonKey := s.key(tf, "json")
	if err := s.put(ctx, jsonKey, data, "application/json", "json"); err != nil {
		return err
	}
	entry.WithFields(logger.Fields{"s3_key": jsonKey, "bytes": len(data)}).Info("snapshot saved")

	if !s.parquet {
		return nil
	}
	pq, err := encodeParquet(snap, s.compression)
	if err != nil {
		return fmt.Errorf("encode %s parquet: %w", tf, err)
	}
	pqKey := s.key(tf, "parquet")
	if err := s.put(ctx, pqKey, pq, "application/octet-stream", "parquet"); err != nil {
		return err
	}
	entry.WithFields(logger.Fields{"s3_key": pqKey, "bytes": len(pq)}).Info("snapshot parquet saved")
	return nil
}

func (s *S3) put(ctx context.Context, key string, data []byte, contentType, format string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"content-type":       format,
			"compression":        s.compression,
			"cryptosnap-version": s.version,
			"updated-at":         strconv.FormatInt(time.Now().UnixMilli(), 10),
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if _, err := s.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (s *S3) Load(ctx context.Context, tf models.Timeframe) (*models.MarketSnapshot, error) {
	key := s.key(tf, "json")
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	var snap models.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &snap, nil
}

func (s *S3) Close() error { return nil }
