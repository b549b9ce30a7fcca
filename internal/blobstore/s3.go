package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/flotillahq/flotilla/internal/model"
	"github.com/flotillahq/flotilla/internal/util"
)

const s3MetaFilename = "filename"

// S3Store keeps staged blobs in an S3-compatible bucket instead of the local
// sqlite database. Object keys are the numeric blob id under a fixed prefix,
// the original filename travels in object metadata.
type S3Store struct { // implements Store
	client *s3.Client

	bucket    string
	keyPrefix string
}

func NewS3Store(accessKeyID, accessKeySecret, baseEndpoint, bucket, keyPrefix string) *S3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		storeLogger.Fatal().Err(err).Msg("Error initializing S3 client")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(baseEndpoint)
	})

	return &S3Store{
		client:    client,
		bucket:    bucket,
		keyPrefix: keyPrefix,
	}
}

func (s *S3Store) objectKey(id uint64) string {
	return s.keyPrefix + strconv.FormatUint(id, 10)
}

func (s *S3Store) Save(id uint64, filename string, content []byte) error {
	_, err := s.client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
		Body:   bytes.NewReader(content),
		Metadata: map[string]string{
			s3MetaFilename: filename,
		},
	})
	if err != nil {
		return fmt.Errorf("error saving blob %d to s3: %w", id, err)
	}

	storeLogger.Debug().Uint64("blob_id", id).Str("filename", filename).Msg("Blob saved to S3")
	return nil
}

func (s *S3Store) Get(id uint64) (*model.StagedBlob, error) {
	out, err := s.client.GetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error reading blob %d from s3: %w", id, err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading blob %d body: %w", id, err)
	}

	blob := &model.StagedBlob{
		ID:          id,
		Filename:    out.Metadata[s3MetaFilename],
		Content:     content,
		ContentHash: util.ContentHash(content),
	}
	if out.LastModified != nil {
		blob.CreatedAt = *out.LastModified
	} else {
		blob.CreatedAt = time.Now().UTC()
	}

	return blob, nil
}

func (s *S3Store) Delete(id uint64) error {
	// DeleteObject on an absent key already succeeds, matching the contract.
	_, err := s.client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		return fmt.Errorf("error deleting blob %d from s3: %w", id, err)
	}
	return nil
}

func (s *S3Store) MaxID() (uint64, bool, error) {
	var max uint64
	found := false

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.TODO())
		if err != nil {
			return 0, false, fmt.Errorf("error listing staged blobs in s3: %w", err)
		}

		for _, entry := range page.Contents {
			if entry.Key == nil {
				continue
			}
			id, err := strconv.ParseUint(strings.TrimPrefix(*entry.Key, s.keyPrefix), 10, 64)
			if err != nil {
				// Foreign object under the prefix; not ours.
				continue
			}
			if !found || id > max {
				max = id
				found = true
			}
		}
	}

	return max, found, nil
}
