package s3path

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		raw    string
		want   Path
		hasErr bool
	}{
		{
			raw:  "s3://udacity-dend/log_data",
			want: Path{Bucket: "udacity-dend", Key: "log_data"},
		},
		{
			raw:  "s3://udacity-dend/log_json_path.json",
			want: Path{Bucket: "udacity-dend", Key: "log_json_path.json"},
		},
		{
			raw:  "s3://udacity-dend",
			want: Path{Bucket: "udacity-dend"},
		},
		{
			raw:  "s3://bucket/song_data/A/B/",
			want: Path{Bucket: "bucket", Key: "song_data/A/B/"},
		},
		{raw: "https://udacity-dend/log_data", hasErr: true},
		{raw: "s3:///log_data", hasErr: true},
		{raw: "", hasErr: true},
	}

	for _, tc := range cases {
		got, err := Parse(tc.raw)
		if tc.hasErr {
			assert.Error(t, err, tc.raw)
			continue
		}

		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
		assert.Equal(t, tc.raw, got.String())
	}
}
