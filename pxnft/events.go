package pxnft

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrNoWsEndpoint = errors.New("ws_endpoint_not_configured")

// MintEvent is a Transfer from the zero address.
type MintEvent struct {
	TokenId uint64
	Owner   string
	TxHash  string
}

type ColorEvent struct {
	TokenId uint64
	X, Y    int
	Color   string
	Owner   string
	TxHash  string
}

// WatchMints subscribes to Transfer logs filtered on from == 0x0 and feeds
// decoded mint events into sink until the subscription dies or ctx ends.
func (c *Client) WatchMints(ctx context.Context, sink chan<- MintEvent) (ethereum.Subscription, error) {
	if c.ws == nil {
		return nil, ErrNoWsEndpoint
	}
	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.addr},
		Topics: [][]common.Hash{
			{c.cAbi.Events["Transfer"].ID},
			{common.Hash{}}, // from == zero address, mints only
		},
	}
	logs := make(chan types.Log)
	sub, err := c.ws.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				sub.Unsubscribe()
				return
			case <-sub.Err():
				return
			case l := <-logs:
				if len(l.Topics) < 4 {
					continue
				}
				sink <- MintEvent{
					TokenId: l.Topics[3].Big().Uint64(),
					Owner:   common.BytesToAddress(l.Topics[2].Bytes()).Hex(),
					TxHash:  l.TxHash.Hex(),
				}
			}
		}
	}()
	return sub, nil
}

// WatchColorUpdates subscribes to ColorUpdated logs.
func (c *Client) WatchColorUpdates(ctx context.Context, sink chan<- ColorEvent) (ethereum.Subscription, error) {
	if c.ws == nil {
		return nil, ErrNoWsEndpoint
	}
	event := c.cAbi.Events["ColorUpdated"]
	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.addr},
		Topics:    [][]common.Hash{{event.ID}},
	}
	logs := make(chan types.Log)
	sub, err := c.ws.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				sub.Unsubscribe()
				return
			case <-sub.Err():
				return
			case l := <-logs:
				ev, err := c.decodeColorUpdated(l)
				if err != nil {
					continue
				}
				sink <- ev
			}
		}
	}()
	return sub, nil
}

func (c *Client) decodeColorUpdated(l types.Log) (ColorEvent, error) {
	if len(l.Topics) < 2 {
		return ColorEvent{}, errors.New("short topics")
	}
	out, err := c.cAbi.Unpack("ColorUpdated", l.Data)
	if err != nil {
		return ColorEvent{}, err
	}
	return ColorEvent{
		TokenId: l.Topics[1].Big().Uint64(),
		X:       int(out[0].(*big.Int).Int64()),
		Y:       int(out[1].(*big.Int).Int64()),
		Color:   out[2].(string),
		Owner:   out[3].(common.Address).Hex(),
		TxHash:  l.TxHash.Hex(),
	}, nil
}
