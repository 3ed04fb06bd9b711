package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/anjiri1684/tutor_marketplace/cache"
	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/logging"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const settingsCachePrefix = "setting:"

// SettingsRepository reads platform settings from the settings table through a cache.
// Keys missing from the table fall back to the environment (key upper-cased).
// Every write invalidates the cached value.
type SettingsRepository struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewSettingsRepository(c cache.Cache, ttl time.Duration) *SettingsRepository {
	if c == nil {
		c = cache.NewMemory()
	}
	return &SettingsRepository{cache: c, ttl: ttl}
}

// Settings is the process-wide repository; main swaps in the redis cache when configured.
var Settings = NewSettingsRepository(cache.NewMemory(), 10*time.Minute)

func UseSettingsCache(c cache.Cache) {
	Settings = NewSettingsRepository(c, config.Duration("SETTINGS_CACHE_TTL"))
}

func ctxOf(db *gorm.DB) context.Context {
	if db.Statement != nil && db.Statement.Context != nil {
		return db.Statement.Context
	}
	return context.Background()
}

func (r *SettingsRepository) Get(db *gorm.DB, key string) (string, error) {
	ctx := ctxOf(db)
	if val, err := r.cache.Get(ctx, settingsCachePrefix+key); err == nil {
		return val, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		logging.Warn("settings cache read failed", err, map[string]interface{}{"key": key})
	}

	var s models.Setting
	err := db.Where("key = ?", key).Take(&s).Error
	var val string
	switch {
	case err == nil:
		val = s.Value
	case errors.Is(err, gorm.ErrRecordNotFound):
		val = config.Config(strings.ToUpper(key))
	default:
		return "", errors.Wrapf(err, "load setting %s", key)
	}

	if err := r.cache.Set(ctx, settingsCachePrefix+key, val, r.ttl); err != nil {
		logging.Warn("settings cache write failed", err, map[string]interface{}{"key": key})
	}
	return val, nil
}

func (r *SettingsRepository) GetDecimal(db *gorm.DB, key string) (decimal.Decimal, error) {
	val, err := r.Get(db, key)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(val))
	return d, errors.Wrapf(err, "setting %s is not a number", key)
}

func (r *SettingsRepository) GetInt(db *gorm.DB, key string) (int, error) {
	val, err := r.Get(db, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	return n, errors.Wrapf(err, "setting %s is not an integer", key)
}

// checkSetting rejects values the core settings cannot be read back as.
func checkSetting(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case models.SettingCommissionRate:
		d, err := decimal.NewFromString(value)
		if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
			return errors.Wrapf(ErrInvalidSetting, "%s must be a decimal between 0 and 1", key)
		}
	case models.SettingMinPayoutAmount:
		d, err := decimal.NewFromString(value)
		if err != nil || d.IsNegative() {
			return errors.Wrapf(ErrInvalidSetting, "%s must be a non-negative amount", key)
		}
	case models.SettingModificationExpiryHours:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return errors.Wrapf(ErrInvalidSetting, "%s must be a positive number of hours", key)
		}
	}
	return nil
}

// Set upserts a setting in its own transaction and drops the cached value once
// that transaction has committed, so a concurrent Get cannot re-cache the old value.
func (r *SettingsRepository) Set(db *gorm.DB, key, value, group string) (*models.Setting, error) {
	if err := checkSetting(key, value); err != nil {
		return nil, err
	}
	if group == "" {
		group = "general"
	}
	s := models.Setting{Key: key, Value: value, Group: group, UpdatedAt: clock()}
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "setting_group", "updated_at"}),
		}).Create(&s).Error
	})
	if err != nil {
		return nil, errors.Wrapf(err, "save setting %s", key)
	}
	r.Invalidate(ctxOf(db), key)
	return &s, nil
}

func (r *SettingsRepository) List(db *gorm.DB, group string) ([]models.Setting, error) {
	var settings []models.Setting
	q := db.Order("key")
	if group != "" {
		q = q.Where("setting_group = ?", group)
	}
	return settings, errors.Wrap(q.Find(&settings).Error, "list settings")
}

func (r *SettingsRepository) Invalidate(ctx context.Context, keys ...string) {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = settingsCachePrefix + k
	}
	if err := r.cache.Delete(ctx, prefixed...); err != nil {
		logging.Warn("settings cache invalidation failed", err, map[string]interface{}{"keys": keys})
	}
}

func commissionRate(db *gorm.DB) (decimal.Decimal, error) {
	rate, err := Settings.GetDecimal(db, models.SettingCommissionRate)
	if err != nil {
		return decimal.Zero, err
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, errors.Errorf("commission rate %s out of range", rate)
	}
	return rate, nil
}

func modificationExpiry(db *gorm.DB) time.Duration {
	hours, err := Settings.GetInt(db, models.SettingModificationExpiryHours)
	if err != nil || hours <= 0 {
		hours = 48
	}
	return time.Duration(hours) * time.Hour
}
