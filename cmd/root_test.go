package cmd

import (
	"testing"

	"valve/pkg/units"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConfigDefaultsToUnlimited(t *testing.T) {
	viper.Set("limit", "")
	defer viper.Set("limit", "")

	cfg, err := buildConfig(&RootFlags{})
	require.NoError(t, err)

	assert.True(t, cfg.Rate.Unlimited)
}

func TestBuildConfigParsesLimit(t *testing.T) {
	viper.Set("limit", "2MiB")
	defer viper.Set("limit", "")

	cfg, err := buildConfig(&RootFlags{})
	require.NoError(t, err)

	assert.False(t, cfg.Rate.Unlimited)
	assert.Equal(t, 2.0, cfg.Rate.Magnitude)
	assert.Equal(t, units.Mebibyte, cfg.Rate.Unit)
}

func TestBuildConfigAcceptsUnlimitedToken(t *testing.T) {
	viper.Set("limit", "unlimited")
	defer viper.Set("limit", "")

	cfg, err := buildConfig(&RootFlags{})
	require.NoError(t, err)

	assert.True(t, cfg.Rate.Unlimited)
}

func TestBuildConfigRejectsMalformedLimit(t *testing.T) {
	viper.Set("limit", "fast")
	defer viper.Set("limit", "")

	_, err := buildConfig(&RootFlags{})
	assert.Error(t, err)
}

func TestBuildConfigCarriesFlags(t *testing.T) {
	viper.Set("limit", "")
	defer viper.Set("limit", "")

	cfg, err := buildConfig(&RootFlags{Paused: true, NoUI: true, Size: 4096})
	require.NoError(t, err)

	assert.True(t, cfg.Transfer.StartPaused)
	assert.True(t, cfg.UI.NoUI)
	assert.Equal(t, int64(4096), cfg.Transfer.TotalSize)
}
