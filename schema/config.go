package schema

type Config struct {
	RpcUrl       string
	WsUrl        string
	ContractAddr string
	PrvKeyHex    string // signer key; reads work without it

	BoltDirPath string
	SqliteDir   string

	IndexerUrl    string
	IndexerApiKey string
	Collection    string

	HealthUrl string

	Port string
}
