package s3

import (
	"testing"

	minio "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"github.com/yeisme/docvault/pkg/configs"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		cfg        configs.S3Config
		wantHost   string
		wantSecure bool
		wantLookup minio.BucketLookupType
	}{
		{
			name:       "plain host",
			cfg:        configs.S3Config{Endpoint: "localhost:9000", PathStyle: true},
			wantHost:   "localhost:9000",
			wantLookup: minio.BucketLookupPath,
		},
		{
			name:       "https scheme",
			cfg:        configs.S3Config{Endpoint: "https://s3.example.com"},
			wantHost:   "s3.example.com",
			wantSecure: true,
			wantLookup: minio.BucketLookupAuto,
		},
		{
			name:       "use_ssl flag",
			cfg:        configs.S3Config{Endpoint: "http://minio:9000", UseSSL: true},
			wantHost:   "minio:9000",
			wantSecure: true,
			wantLookup: minio.BucketLookupAuto,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, opts := endpoint(&tt.cfg)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSecure, opts.Secure)
			assert.Equal(t, tt.wantLookup, opts.BucketLookup)
		})
	}
}
