package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/moonpixels/pxgated"
	"github.com/moonpixels/pxgated/schema"
)

func main() {
	app := &cli.App{
		Name: "pxgated",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "rpc_url", Value: "https://testnet-rpc.monad.xyz", Usage: "chain json-rpc url", EnvVars: []string{"RPC_URL"}},
			&cli.StringFlag{Name: "ws_url", Value: "", Usage: "chain websocket url for event subscriptions", EnvVars: []string{"WS_URL"}},
			&cli.StringFlag{Name: "contract", Value: "", Usage: "pixel contract address", EnvVars: []string{"CONTRACT"}},
			&cli.StringFlag{Name: "prv_key", Value: "", Usage: "signer private key hex; reads only when empty", EnvVars: []string{"PRV_KEY"}},

			&cli.StringFlag{Name: "db_dir", Value: "./data/bolt", Usage: "bolt db dir path", EnvVars: []string{"DB_DIR"}},
			&cli.StringFlag{Name: "sqlite_dir", Value: "./data/sqlite", Usage: "sqlite dir path", EnvVars: []string{"SQLITE_DIR"}},

			&cli.StringFlag{Name: "indexer_url", Value: "", Usage: "nft indexer api url", EnvVars: []string{"INDEXER_URL"}},
			&cli.StringFlag{Name: "indexer_api_key", Value: "", EnvVars: []string{"INDEXER_API_KEY"}},
			&cli.StringFlag{Name: "collection", Value: "", Usage: "nft collection contract for listings", EnvVars: []string{"COLLECTION"}},

			&cli.StringFlag{Name: "health_url", Value: "", Usage: "backend health probe url", EnvVars: []string{"HEALTH_URL"}},
			&cli.StringFlag{Name: "port", Value: ":8080", EnvVars: []string{"PORT"}},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	s := pxgated.New(&schema.Config{
		RpcUrl:        c.String("rpc_url"),
		WsUrl:         c.String("ws_url"),
		ContractAddr:  c.String("contract"),
		PrvKeyHex:     c.String("prv_key"),
		BoltDirPath:   c.String("db_dir"),
		SqliteDir:     c.String("sqlite_dir"),
		IndexerUrl:    c.String("indexer_url"),
		IndexerApiKey: c.String("indexer_api_key"),
		Collection:    c.String("collection"),
		HealthUrl:     c.String("health_url"),
		Port:          c.String("port"),
	})
	s.Run(c.String("port"))

	<-signals
	s.Close()

	return nil
}
