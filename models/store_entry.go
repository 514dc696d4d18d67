package models

// StoreEntry represents one row of the string-keyed durable store using GORM.
// It corresponds to the 'store_entries' table. The baseline registry
// serializes its full record list as JSON text under a fixed key; binary
// image payloads never reach this table.
type StoreEntry struct {
	Key       string `gorm:"primaryKey" json:"key"`
	Value     string `gorm:"not null" json:"value"`
	UpdatedAt int64  `gorm:"not null" json:"updated_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (StoreEntry) TableName() string {
	return "store_entries"
}
