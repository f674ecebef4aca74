package schema

type RespErr struct {
	Err string `json:"error"`
}

func (r RespErr) Error() string {
	return r.Err
}

type RespTx struct {
	TxHash string `json:"txHash"`
}

type CellReq struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color,omitempty"`
}

type BatchReq struct {
	Cells []CellReq `json:"cells"`
}

type DelegateReq struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Operator  string    `json:"operator,omitempty"`
	Cells     []CellReq `json:"cells,omitempty"`
	Operators []string  `json:"operators,omitempty"`
}

type ComposeReq struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

type ViewportResp struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Size int `json:"size"`
}

type DelegationResp struct {
	X         int      `json:"x"`
	Y         int      `json:"y"`
	Count     int64    `json:"count"`
	Addresses []string `json:"addresses"`
}
