package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heritagewatch/monitorbackend/models"
)

// RegistryStoreRepository handles database operations for durable store entries
type RegistryStoreRepository struct {
	DB         *gorm.DB
	QuotaBytes int64
}

// NewRegistryStoreRepository creates a new instance of RegistryStoreRepository.
// quotaBytes caps the total stored bytes (keys plus values); a non-positive
// quota disables the ceiling.
func NewRegistryStoreRepository(db *gorm.DB, quotaBytes int64) *RegistryStoreRepository {
	return &RegistryStoreRepository{DB: db, QuotaBytes: quotaBytes}
}

// Get retrieves the value stored under key
func (r *RegistryStoreRepository) Get(key string) (string, error) {
	var entry models.StoreEntry
	err := r.DB.Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrStoreKeyNotFound
		}
		return "", fmt.Errorf("failed to get store entry %s: %w", key, err)
	}
	return entry.Value, nil
}

// Set inserts or replaces the value stored under key, enforcing the byte quota
func (r *RegistryStoreRepository) Set(key, value string) error {
	if r.QuotaBytes > 0 {
		otherBytes, err := r.bytesExcluding(key)
		if err != nil {
			return err
		}
		if otherBytes+int64(len(key))+int64(len(value)) > r.QuotaBytes {
			return fmt.Errorf("writing %d bytes under key %s: %w", len(value), key, ErrQuotaExceeded)
		}
	}

	entry := models.StoreEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().Unix(),
	}
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to set store entry %s: %w", key, err)
	}
	return nil
}

// UsedBytes reports the total bytes currently held by the store
func (r *RegistryStoreRepository) UsedBytes() (int64, error) {
	var used int64
	err := r.DB.Model(&models.StoreEntry{}).
		Select("COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0)").
		Scan(&used).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum store entry sizes: %w", err)
	}
	return used, nil
}

func (r *RegistryStoreRepository) bytesExcluding(key string) (int64, error) {
	var used int64
	err := r.DB.Model(&models.StoreEntry{}).
		Where("key <> ?", key).
		Select("COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0)").
		Scan(&used).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum store entry sizes: %w", err)
	}
	return used, nil
}
