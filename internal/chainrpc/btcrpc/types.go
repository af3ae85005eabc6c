package btcrpc

// Esplora-style explorer response types.

type Transaction struct {
	TxID   string   `json:"txid"`
	Status TxStatus `json:"status"`
	Vin    []Vin    `json:"vin"`
	Vout   []Vout   `json:"vout"`
}

type TxStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint64 `json:"block_height"`
}

type Vin struct {
	Prevout *Vout `json:"prevout"`
}

type Vout struct {
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               int64  `json:"value"`
}
