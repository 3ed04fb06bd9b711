package services

import (
	"context"
	"testing"
	"time"

	"github.com/anjiri1684/tutor_marketplace/cache"
	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFallBackToEnvironment(t *testing.T) {
	db := setup(t)
	config.Set("PLATFORM_COMMISSION_RATE", "0.20")

	rate, err := commissionRate(db)
	require.NoError(t, err)
	assertAmount(t, "0.20", rate)

	assert.Equal(t, 48*60, int(modificationExpiry(db).Minutes()))
}

func TestSettingsReadThroughCache(t *testing.T) {
	db := setup(t)
	mem := cache.NewMemory()
	repo := NewSettingsRepository(mem, 0)

	_, err := repo.Set(db, "support_email", "help@example.com", "")
	require.NoError(t, err)
	val, err := repo.Get(db, "support_email")
	require.NoError(t, err)
	assert.Equal(t, "help@example.com", val)

	cached, err := mem.Get(context.Background(), settingsCachePrefix+"support_email")
	require.NoError(t, err)
	assert.Equal(t, "help@example.com", cached)

	// a direct table write is invisible until the key is invalidated
	require.NoError(t, db.Model(&models.Setting{}).Where("key = ?", "support_email").Update("value", "ops@example.com").Error)
	val, err = repo.Get(db, "support_email")
	require.NoError(t, err)
	assert.Equal(t, "help@example.com", val)

	repo.Invalidate(context.Background(), "support_email")
	val, err = repo.Get(db, "support_email")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", val)
}

func TestSettingsSetInvalidatesCache(t *testing.T) {
	db := setup(t)

	rate, err := commissionRate(db)
	require.NoError(t, err)
	assertAmount(t, "0.20", rate)

	setting, err := Settings.Set(db, models.SettingCommissionRate, "0.15", "")
	require.NoError(t, err)
	assert.Equal(t, "general", setting.Group)

	rate, err = commissionRate(db)
	require.NoError(t, err)
	assertAmount(t, "0.15", rate)

	_, err = Settings.Set(db, models.SettingCommissionRate, "0.10", "payouts")
	require.NoError(t, err)
	listed, err := Settings.List(db, "payouts")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "0.10", listed[0].Value)
}

// watchedCache reports every invalidation to onDelete before applying it.
type watchedCache struct {
	*cache.Memory
	onDelete func()
}

func (w *watchedCache) Delete(ctx context.Context, keys ...string) error {
	w.onDelete()
	return w.Memory.Delete(ctx, keys...)
}

func TestSettingsInvalidateAfterCommit(t *testing.T) {
	db := setup(t)
	var seen []string
	watched := &watchedCache{Memory: cache.NewMemory()}
	watched.onDelete = func() {
		var stored models.Setting
		require.NoError(t, db.Where("key = ?", "support_email").Take(&stored).Error)
		seen = append(seen, stored.Value)
	}
	repo := NewSettingsRepository(watched, time.Minute)

	_, err := repo.Set(db, "support_email", "help@example.com", "")
	require.NoError(t, err)
	_, err = repo.Set(db, "support_email", "ops@example.com", "")
	require.NoError(t, err)

	// the row read from outside the write sees the committed value at invalidation time
	assert.Equal(t, []string{"help@example.com", "ops@example.com"}, seen)
	val, err := repo.Get(db, "support_email")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", val)
}

func TestCheckSetting(t *testing.T) {
	cases := []struct {
		key   string
		value string
		ok    bool
	}{
		{models.SettingCommissionRate, "0.3", true},
		{models.SettingCommissionRate, "1", true},
		{models.SettingCommissionRate, "1.5", false},
		{models.SettingCommissionRate, "-0.1", false},
		{models.SettingCommissionRate, "a lot", false},
		{models.SettingMinPayoutAmount, "0", true},
		{models.SettingMinPayoutAmount, "-1", false},
		{models.SettingModificationExpiryHours, "24", true},
		{models.SettingModificationExpiryHours, "0", false},
		{models.SettingModificationExpiryHours, "1.5", false},
		{"welcome_banner", "anything goes", true},
	}
	for _, tc := range cases {
		err := checkSetting(tc.key, tc.value)
		if tc.ok {
			assert.NoError(t, err, "%s=%s", tc.key, tc.value)
		} else {
			assert.ErrorIs(t, err, ErrInvalidSetting, "%s=%s", tc.key, tc.value)
		}
	}
}
