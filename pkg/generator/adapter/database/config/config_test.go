package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAcceptsStringsFromEnvironment(t *testing.T) {
	cfg, err := Decode(map[string]interface{}{
		"type": "mysql",
		"host": "db",
		"port": "3307",
		"pool": map[string]interface{}{"max_open_conns": 4},
	})
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Type)
	assert.Equal(t, 3307, cfg.Port)
	assert.Equal(t, 4, cfg.Pool.MaxOpenConns)
}

func TestDecodeRejectsWrongShape(t *testing.T) {
	_, err := Decode("not a map")
	assert.Error(t, err)
}
