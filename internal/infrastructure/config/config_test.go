package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSubject(t *testing.T) {
	valid := []string{
		"customer.events.>",
		"customer.events.*.purchase",
		"customer.*.*",
		"events",
		">",
	}
	for _, s := range valid {
		assert.NoError(t, ValidateSubject(s), "subject %q", s)
	}

	invalid := []string{
		"",
		"customer..events",
		".customer.events",
		"customer.events.",
		"customer.>.events",
		"customer.ev*nts",
		"customer.e>e",
		"customer events",
	}
	for _, s := range invalid {
		assert.Error(t, ValidateSubject(s), "subject %q", s)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Database.Port = 5432
		cfg.Redis.Port = 6379
		return cfg
	}

	t.Run("defaults pass", func(t *testing.T) {
		assert.NoError(t, base().validate())
	})

	t.Run("invalid subject pattern is fatal", func(t *testing.T) {
		cfg := base()
		cfg.Nats.Subjects = []string{"customer..events"}
		assert.Error(t, cfg.validate())
	})

	t.Run("invalid nats url is fatal", func(t *testing.T) {
		cfg := base()
		cfg.Nats.URLs = []string{"http://localhost:4222"}
		assert.Error(t, cfg.validate())
	})

	t.Run("summary length cannot exceed threshold", func(t *testing.T) {
		cfg := base()
		cfg.Processor.NoteSummaryLength = 600
		cfg.Processor.NoteLengthThreshold = 500
		assert.Error(t, cfg.validate())
	})
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "profilehub-consumer", cfg.App.Name)
	assert.Equal(t, []string{"customer.events.>"}, cfg.Nats.Subjects)
	assert.Equal(t, "CUSTOMER_EVENTS", cfg.Nats.Stream)
	assert.Equal(t, "profile-consumers", cfg.Nats.QueueGroup)
	assert.Equal(t, -1, cfg.Nats.MaxReconnects)
	assert.Equal(t, 500, cfg.Processor.NoteLengthThreshold)
	assert.Equal(t, 280, cfg.Processor.NoteSummaryLength)
	assert.Equal(t, 20, cfg.Context.EventLimit)
}
