package schema

const (
	OpKindMint     = "mint"
	OpKindUpdate   = "update"
	OpKindBatch    = "batch"
	OpKindCompose  = "compose"
	OpKindDelegate = "delegate"
	OpKindRevoke   = "revoke"
)

const (
	OpStatusPending   = "pending"
	OpStatusConfirmed = "confirmed"
	OpStatusFailed    = "failed"
)

type PendingOp struct {
	TxHash    string   `json:"txHash"`
	Kind      string   `json:"kind"`
	Cells     []string `json:"cells"` // cell keys "x-y"
	BatchSize int      `json:"batchSize"`
	Timestamp int64    `json:"timestamp"`
}

type NotifyType = string

const (
	NotifySuccess NotifyType = "success"
	NotifyError   NotifyType = "error"
	NotifyInfo    NotifyType = "info"
)

type Notification struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	TxHash    string `json:"txHash,omitempty"`
}
