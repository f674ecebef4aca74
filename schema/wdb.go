package schema

import "time"

// OpRecord is one submitted mutating operation, kept for history.
type OpRecord struct {
	ID        uint   `gorm:"primarykey" json:"-"`
	TxHash    string `gorm:"index:idx_op_txhash,unique" json:"txHash"`
	Kind      string `json:"kind"`
	Sender    string `json:"sender"`
	BatchSize int    `json:"batchSize"`
	Status    string `json:"status"` // pending / confirmed / failed
	ErrMsg    string `json:"errMsg,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
