package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings(t *testing.T) {
	database, ctx := setup(t)

	_, ok, err := GetSetting(ctx, database, SettingWarningDays)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetSetting(ctx, database, SettingWarningDays, "21"))
	require.NoError(t, SetSetting(ctx, database, SettingWarningDays, "20"))
	require.NoError(t, SetSetting(ctx, database, SettingLowStockDefault, "0"))

	v, ok, err := GetSetting(ctx, database, SettingWarningDays)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "20", v)

	all, err := ListSettings(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		SettingWarningDays:     "20",
		SettingLowStockDefault: "0",
	}, all)
}

func TestEvents(t *testing.T) {
	database, ctx := setup(t)

	require.NoError(t, LogEvent(ctx, database, "product.add", map[string]any{"id": 1, "name": "Lait"}))
	require.NoError(t, LogEvent(ctx, database, "lot.consume", nil))
	require.NoError(t, LogEvent(ctx, database, "lot.delete", map[string]any{"id": 3}))

	events, err := ListEvents(ctx, database, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "lot.delete", events[0].Kind)
	assert.Equal(t, 3.0, events[0].Details["id"])
	assert.Equal(t, "lot.consume", events[1].Kind)
	assert.Empty(t, events[1].Details)

	events, err = ListEvents(ctx, database, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "Lait", events[2].Details["name"])
}
