// Package publish uploads a generated strip to S3 and hands back pre-signed
// links to share it.
package publish

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultLinkExpiry is how long pre-signed links stay valid.
const DefaultLinkExpiry = 7 * 24 * time.Hour

// projectTag is the URL-encoded object tagging string for cost allocation.
const projectTag = "Project=comix-generator"

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectPresigner is the subset of the S3 presign client used for links.
type ObjectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Destination is an S3 bucket and key prefix.
type Destination struct {
	Bucket string
	Prefix string
}

// ParseDestination parses "s3://bucket[/prefix]".
func ParseDestination(raw string) (Destination, error) {
	rest, ok := strings.CutPrefix(raw, "s3://")
	if !ok {
		return Destination{}, fmt.Errorf("destination must start with s3://, got %q", raw)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Destination{}, fmt.Errorf("destination %q has no bucket", raw)
	}
	return Destination{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

func (d Destination) String() string {
	if d.Prefix == "" {
		return "s3://" + d.Bucket
	}
	return "s3://" + d.Bucket + "/" + d.Prefix
}

// Object is one uploaded file.
type Object struct {
	Key string
	// URL is a pre-signed GET link, empty when links are disabled.
	URL string
}

// Publisher uploads files under a per-run key prefix.
type Publisher struct {
	client    ObjectPutter
	presigner ObjectPresigner
	dest      Destination
	expiry    time.Duration
}

// New returns a Publisher. A nil presigner disables links.
func New(client ObjectPutter, presigner ObjectPresigner, dest Destination, expiry time.Duration) *Publisher {
	if expiry <= 0 {
		expiry = DefaultLinkExpiry
	}
	return &Publisher{client: client, presigner: presigner, dest: dest, expiry: expiry}
}

// NewFromConfig builds the S3 clients from the default AWS configuration.
func NewFromConfig(ctx context.Context, dest Destination, expiry time.Duration) (*Publisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	client := s3.NewFromConfig(cfg)
	return New(client, s3.NewPresignClient(client), dest, expiry), nil
}

// Upload puts every file under <prefix>/<run id>/<base name>.
func (p *Publisher) Upload(ctx context.Context, paths []string) ([]Object, error) {
	runPrefix := path.Join(p.dest.Prefix, uuid.NewString())
	objects := make([]Object, 0, len(paths))

	for _, local := range paths {
		key := path.Join(runPrefix, filepath.Base(local))
		if err := p.put(ctx, local, key); err != nil {
			return objects, err
		}
		obj := Object{Key: key}
		if p.presigner != nil {
			url, err := p.presign(ctx, key)
			if err != nil {
				return objects, err
			}
			obj.URL = url
		}
		objects = append(objects, obj)
	}

	log.Info().
		Str("destination", p.dest.String()).
		Str("run_prefix", runPrefix).
		Int("objects", len(objects)).
		Msg("Strip published to S3")
	return objects, nil
}

func (p *Publisher) put(ctx context.Context, local, key string) error {
	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", local, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(local))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	log.Debug().Str("bucket", p.dest.Bucket).Str("key", key).Str("content_type", contentType).Msg("Uploading to S3")
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.dest.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
		Tagging:     aws.String(projectTag),
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s: %w", key, err)
	}
	return nil
}

func (p *Publisher) presign(ctx context.Context, key string) (string, error) {
	result, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.dest.Bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = p.expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject %s: %w", key, err)
	}
	return result.URL, nil
}
