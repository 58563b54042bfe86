package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equiptrack-backend/internal/app"
	"equiptrack-backend/internal/config"
)

func TestPopulate_MemoryStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - id: U1
    first_name: Ada
    last_name: Lovelace
equipment:
  - id: L1
    name: LED Panel
    serial_number: SN-LED
    total: 2
    qr_type: individual
`), 0o600))

	data, err := readSeedFile(path)
	require.NoError(t, err)

	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 8080},
		Database: config.DatabaseConfig{Driver: "memory"},
		JWT:      config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
	}
	require.NoError(t, cfg.Validate())

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, populate(ctx, a, data))

	u, err := a.Repos.Users.GetByID(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.DisplayName())

	eq, instances, err := a.Inventory.GetEquipment(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), eq.AvailableQuantity)
	assert.Len(t, instances, 2)
}

func TestPopulate_RejectsNamelessUser(t *testing.T) {
	a := &app.App{}
	err := populate(context.Background(), a, &SeedData{Users: []SeedUser{{ID: "U9"}}})
	assert.Error(t, err)
}
