package loader

import (
	"strings"

	"github.com/lib/pq"
)

// JSONAuto lets the warehouse map JSON keys to columns by name.
const JSONAuto = "auto"

// CopySpec describes a bulk load of newline-delimited JSON objects into a table.
type CopySpec struct {
	Table      string
	Source     string // s3://bucket/prefix
	IAMRoleARN string

	// Region of the source bucket. Empty means the cluster region.
	Region string

	// JSONPath is the s3:// location of a JSONPaths file. Empty means JSONAuto.
	JSONPath string

	// NoLoad validates the source files without loading any rows.
	NoLoad bool
}

// CopyStatement renders a COPY statement. All literals are quoted.
func CopyStatement(spec CopySpec) string {
	format := spec.JSONPath
	if format == "" {
		format = JSONAuto
	}

	var b strings.Builder
	b.WriteString("COPY " + pq.QuoteIdentifier(spec.Table))
	b.WriteString(" FROM " + pq.QuoteLiteral(spec.Source))
	b.WriteString(" IAM_ROLE " + pq.QuoteLiteral(spec.IAMRoleARN))
	if spec.Region != "" {
		b.WriteString(" REGION " + pq.QuoteLiteral(spec.Region))
	}
	b.WriteString(" JSON " + pq.QuoteLiteral(format))
	if spec.NoLoad {
		b.WriteString(" NOLOAD")
	}

	return b.String()
}
