package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equiptrack-backend/internal/config"
	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/notify"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 8080},
		Database: config.DatabaseConfig{Driver: "memory"},
		JWT:      config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
		Notify:   config.NotifyConfig{Sinks: []string{"log"}},
	}
	return cfg
}

func TestNew_MemoryStore(t *testing.T) {
	cfg := memoryConfig()
	require.NoError(t, cfg.Validate())

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Ping)
	assert.NotNil(t, a.Checkout)
	assert.NotNil(t, a.Circulation)
	assert.NotNil(t, a.Inventory)

	ctx := context.Background()
	_, err = a.Inventory.CreateEquipment(ctx, &domain.Equipment{ID: "X1", Name: "Camera", SerialNumber: "SN-1", TotalQuantity: 1})
	require.NoError(t, err)
	res, err := a.Inventory.Resolve(ctx, "sn-1")
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "X1", res.Match.Equipment.ID)
}

func TestNew_RejectsUnknownRecoveryPolicy(t *testing.T) {
	cfg := memoryConfig()
	require.NoError(t, cfg.Validate())
	cfg.Ledger.RecoveryPolicy = "shrug"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuildSink(t *testing.T) {
	a := &App{Config: memoryConfig()}
	assert.Equal(t, "log", a.buildSink().Name())

	a.Config.Notify.Sinks = []string{"log", "smtp"}
	sink := a.buildSink()
	multi, ok := sink.(notify.MultiSink)
	require.True(t, ok)
	assert.Len(t, multi, 2)
}
