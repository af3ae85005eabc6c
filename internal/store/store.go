package store

import (
	"github.com/novaluna/payment-engine/internal/store/ledgertransaction"
	"github.com/novaluna/payment-engine/internal/store/processedreference"
	"github.com/novaluna/payment-engine/internal/store/scanwatermark"
	"github.com/novaluna/payment-engine/internal/store/user"
)

type Store struct {
	LedgerTransaction  ledgertransaction.IStore
	ProcessedReference processedreference.IStore
	ScanWatermark      scanwatermark.IStore
	User               user.IStore
}

func New() *Store {
	return &Store{
		LedgerTransaction:  ledgertransaction.New(),
		ProcessedReference: processedreference.New(),
		ScanWatermark:      scanwatermark.New(),
		User:               user.New(),
	}
}
