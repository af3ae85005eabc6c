package model

import "time"

// ScanWatermark records the last block fully processed by the passive scanner
// for a chain. It must survive restarts: an in-memory watermark either loses
// deposits made during downtime or rescans already-processed ranges.
type ScanWatermark struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	Chain       Chain     `json:"chain" gorm:"column:chain;type:varchar(20);uniqueIndex"`
	BlockHeight uint64    `json:"block_height" gorm:"column:block_height"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ScanWatermark) TableName() string {
	return "scan_watermarks"
}
