package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// LocalStorage writes into Dir, which is served at URLPrefix.
type LocalStorage struct {
	Dir       string
	URLPrefix string
}

func NewLocalStorage(dir, urlPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *LocalStorage) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	dst := filepath.Join(s.Dir, filepath.Base(name))
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.URLPrefix + "/" + filepath.Base(name), nil
}

// Remove ignores paths it does not own and files that are already gone.
func (s *LocalStorage) Remove(_ context.Context, stored string) error {
	if !strings.HasPrefix(stored, s.URLPrefix+"/") {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, path.Base(stored)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// S3API is the subset of *s3.Client the S3 backend needs.
type S3API interface {
	manager.UploadAPIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Storage struct {
	Client    S3API
	Uploader  *manager.Uploader
	Bucket    string
	Prefix    string
	PublicURL string
}

func NewS3Storage(client S3API, bucket, publicURL string) *S3Storage {
	return &S3Storage{
		Client:    client,
		Uploader:  manager.NewUploader(client),
		Bucket:    bucket,
		Prefix:    "products/",
		PublicURL: strings.TrimRight(publicURL, "/"),
	}
}

// NewS3StorageFromEnv uses the default AWS credential chain.
func NewS3StorageFromEnv(ctx context.Context, bucket, publicURL string) (*S3Storage, error) {
	if bucket == "" {
		return nil, errors.New("S3_BUCKET is empty")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return NewS3Storage(s3.NewFromConfig(cfg), bucket, publicURL), nil
}

func (s *S3Storage) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	key := s.Prefix + path.Base(name)
	out, err := s.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s: %w", key, err)
	}

	switch {
	case s.PublicURL != "":
		return s.PublicURL + "/" + key, nil
	case out.Location != "":
		return out.Location, nil
	default:
		return "s3://" + s.Bucket + "/" + key, nil
	}
}

func (s *S3Storage) Remove(ctx context.Context, stored string) error {
	idx := strings.Index(stored, s.Prefix)
	if idx < 0 {
		return nil
	}
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(stored[idx:]),
	})
	return err
}
