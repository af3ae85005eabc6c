package model

import "time"

// ProcessedReference marks a (chain, tx ref) pair as credited. The row is
// written in the same database transaction as the balance credit, so its
// existence is the single source of truth for "already credited".
type ProcessedReference struct {
	ID         int       `json:"id" gorm:"primaryKey"`
	Chain      Chain     `json:"chain" gorm:"column:chain;type:varchar(20);uniqueIndex:idx_processed_references_chain_tx_ref"`
	TxRef      string    `json:"tx_ref" gorm:"column:tx_ref;type:varchar(255);uniqueIndex:idx_processed_references_chain_tx_ref"`
	CreditedAt time.Time `json:"credited_at" gorm:"column:credited_at"`
}

func (ProcessedReference) TableName() string {
	return "processed_references"
}
