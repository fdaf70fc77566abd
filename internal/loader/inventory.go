package loader

import (
	"context"

	"github.com/lodthe/sparkify-dwh/pkg/s3path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// S3API is the subset of the S3 client used for source inspection.
type S3API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Summary describes objects found under a prefix.
type Summary struct {
	Objects int
	Bytes   int64
}

// Inventory inspects bulk load sources in object storage.
type Inventory struct {
	client S3API
}

func NewInventory(client S3API) *Inventory {
	return &Inventory{client: client}
}

// Summarize counts objects and their total size under the given prefix.
func (i *Inventory) Summarize(ctx context.Context, raw string) (Summary, error) {
	path, err := s3path.Parse(raw)
	if err != nil {
		return Summary{}, err
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(path.Bucket),
	}
	if path.Key != "" {
		input.Prefix = aws.String(path.Key)
	}

	var summary Summary
	paginator := s3.NewListObjectsV2Paginator(i.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return summary, errors.Wrapf(err, "failed to list %s", raw)
		}

		for _, obj := range page.Contents {
			summary.Objects++
			summary.Bytes += aws.ToInt64(obj.Size)
		}
	}

	return summary, nil
}

// Size returns the size of a single object.
func (i *Inventory) Size(ctx context.Context, raw string) (int64, error) {
	path, err := s3path.Parse(raw)
	if err != nil {
		return 0, err
	}

	out, err := i.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(path.Bucket),
		Key:    aws.String(path.Key),
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to head %s", raw)
	}

	return aws.ToInt64(out.ContentLength), nil
}
