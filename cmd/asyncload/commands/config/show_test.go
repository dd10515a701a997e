package config

import (
	"testing"

	"github.com/marmos91/asyncload/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Store.S3.AccessKeyID = "AKIA123"
	cfg.Store.S3.SecretAccessKey = "s3cr3t"

	red := redact(cfg)
	assert.Equal(t, secretMask, red.Store.S3.SecretAccessKey)
	assert.Equal(t, "AKIA123", red.Store.S3.AccessKeyID)
	assert.Empty(t, red.Store.SQL.Postgres.Password)
	assert.Equal(t, "s3cr3t", cfg.Store.S3.SecretAccessKey, "original is untouched")
}
