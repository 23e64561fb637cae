// Package gcs stores quote attachments in Cloud Storage through the JSON API.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/askservice/leadmarket-backend/pkg/config"
	"github.com/askservice/leadmarket-backend/pkg/gcpauth"
	"github.com/askservice/leadmarket-backend/pkg/logger"
)

const (
	pingTimeout        = 5 * time.Second
	defaultPublicBase  = "https://storage.googleapis.com"
	defaultContentType = "application/octet-stream"
)

var errNotConnected = errors.New("gcs client not initialized")

type Client struct {
	objects    *storage.ObjectsService
	bucket     string
	publicBase string
}

// NewClient opens the storage service and checks the bucket is listable.
// Extra options are appended after the credential options.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger, extra ...option.ClientOption) (*Client, error) {
	bucket := strings.TrimSpace(cfg.BucketName)
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	opts := gcpauth.Options(gcp)
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := storage.NewService(ctx, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("open storage service: %w", err)
	}

	c := newClient(svc, bucket, cfg.PublicBaseURL)
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", bucket), "gcs.connected")
	}
	return c, nil
}

func newClient(svc *storage.Service, bucket, publicBase string) *Client {
	publicBase = strings.TrimRight(publicBase, "/")
	if publicBase == "" {
		publicBase = defaultPublicBase
	}
	return &Client{objects: svc.Objects, bucket: bucket, publicBase: publicBase}
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.objects == nil {
		return errNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.objects.List(c.bucket).MaxResults(1).Fields("kind").Context(ctx).Do(); err != nil {
		return describe("list objects", err)
	}
	return nil
}

// Upload writes body to objectName and returns the object's public URL.
func (c *Client) Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error) {
	if c == nil || c.objects == nil {
		return "", errNotConnected
	}
	name := strings.TrimLeft(strings.TrimSpace(objectName), "/")
	if name == "" {
		return "", errors.New("object name is required")
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	obj := &storage.Object{Name: name, ContentType: contentType}
	stored, err := c.objects.Insert(c.bucket, obj).
		Media(body, googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", describe("upload "+name, err)
	}
	if stored != nil && stored.Name != "" {
		name = stored.Name
	}
	return c.ObjectURL(name), nil
}

func (c *Client) ObjectURL(objectName string) string {
	segments := strings.Split(objectName, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return c.publicBase + "/" + c.bucket + "/" + strings.Join(segments, "/")
}

func describe(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = strings.TrimSpace(apiErr.Body)
		}
		return fmt.Errorf("gcs %s: status %d: %s", op, apiErr.Code, msg)
	}
	return fmt.Errorf("gcs %s: %w", op, err)
}
