package store

import (
	"time"

	"gorm.io/datatypes"
)

// KVModel is the GORM row for one stored document.
type KVModel struct {
	Key       string         `gorm:"primaryKey"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (KVModel) TableName() string {
	return "smartaset_kv"
}
