package config

import (
	"testing"
	"time"

	"github.com/marmos91/asyncload/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestConfigWarnings(t *testing.T) {
	cfg := config.GetDefaultConfig()
	assert.Empty(t, configWarnings(cfg))

	cfg.Store.Type = "memory"
	cfg.Loader.TimeLimit = 0
	cfg.Loader.UseFullTimeLimit = true
	assert.Len(t, configWarnings(cfg), 3)

	cfg.Loader.Multithreaded = true
	cfg.Loader.TimeLimit = time.Millisecond
	assert.Len(t, configWarnings(cfg), 1)
}
