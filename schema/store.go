package schema

var (
	// bucket
	CellBucket        = "cell-bucket"         // key: cellKey("x-y"), val: json.marshal(Cell)
	LoadedChunkBucket = "loaded-chunk-bucket" // key: chunkKey("x0-y0-x1-y1"), val: "0x01"
	ConstantsBucket   = "constants-bucket"
)

const (
	// ConstantsBucket keys
	KeyTotalMinted = "total-minted"
)
