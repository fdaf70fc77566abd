package s3path

import (
	"strings"

	"github.com/pkg/errors"
)

const scheme = "s3://"

// Path is a parsed object storage location.
type Path struct {
	Bucket string
	Key    string
}

// Parse splits s3://bucket/key into its parts. The key may be empty (whole bucket)
// and is returned without the leading slash.
func Parse(raw string) (Path, error) {
	if !strings.HasPrefix(raw, scheme) {
		return Path{}, errors.Errorf("%q must start with %s", raw, scheme)
	}

	rest := strings.TrimPrefix(raw, scheme)
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Path{}, errors.Errorf("%q has no bucket", raw)
	}

	return Path{Bucket: bucket, Key: key}, nil
}

func (p Path) String() string {
	if p.Key == "" {
		return scheme + p.Bucket
	}

	return scheme + p.Bucket + "/" + p.Key
}
