package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_TYPE", "")
	t.Setenv("ENV", "dev")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("NOTIFY_BROKER", "")
	t.Setenv("POLICY_CATEGORY_CODE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.DBType)
	assert.Equal(t, "log", cfg.NotifyBroker)
	assert.Equal(t, "TI", cfg.PolicyCategoryCode)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"mongo without uri", map[string]string{"DB_TYPE": "mongo", "MONGO_URI": "", "MONGODB_URI": ""}},
		{"postgres without dsn", map[string]string{"DB_TYPE": "postgres", "POSTGRES_DSN": ""}},
		{"unknown store", map[string]string{"DB_TYPE": "sqlite"}},
		{"unknown broker", map[string]string{"DB_TYPE": "memory", "NOTIFY_BROKER": "sqs"}},
		{"prod without secret", map[string]string{"DB_TYPE": "memory", "ENV": "prod", "JWT_SECRET": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	assert.Equal(t, []string{"a:9092", "b:9092"}, getEnvAsSlice("KAFKA_BROKERS", nil))
}
