package pxnft

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/everFinance/goether"
	"github.com/stretchr/testify/assert"
)

func testAbi(t *testing.T) abi.ABI {
	cAbi, err := abi.JSON(strings.NewReader(contractABI))
	assert.NoError(t, err)
	return cAbi
}

func TestReadRangeRejectsOutOfCanvas(t *testing.T) {
	c := &Client{cAbi: testAbi(t)}

	_, _, _, err := c.ReadRange(context.Background(), -1, 0, 4, 4)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, _, _, err = c.ReadRange(context.Background(), 0, 0, 150, 4)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, _, _, err = c.ReadRange(context.Background(), 10, 10, 5, 5)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSendTxWithoutSigner(t *testing.T) {
	c := &Client{cAbi: testAbi(t)}
	_, err := c.Mint(context.Background(), 1, 2, "#ff0000")
	assert.ErrorIs(t, err, ErrNoSigner)
}

func TestSignContractCall(t *testing.T) {
	signer, err := goether.NewSigner("4646464646464646464646464646464646464646464646464646464646464646")
	assert.NoError(t, err)

	data, err := testAbi(t).Pack("mint", big.NewInt(3), big.NewInt(4), "#ff0000")
	assert.NoError(t, err)

	to := common.HexToAddress("0x82D0B70aD6Fcdb8aAD6048f86afca83D69F556b9")
	tip := big.NewInt(1000000000)
	feeCap := big.NewInt(30000000000)
	tx, err := signer.SignTx(7, to, big.NewInt(0), 120000, tip, feeCap, data, big.NewInt(10143))
	assert.NoError(t, err)
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Zero(t, tx.GasTipCap().Cmp(tip))
	assert.Zero(t, tx.GasFeeCap().Cmp(feeCap))
	assert.Equal(t, data, tx.Data())
}

func TestDecodeColorUpdated(t *testing.T) {
	cAbi := testAbi(t)
	c := &Client{cAbi: cAbi}

	event := cAbi.Events["ColorUpdated"]
	owner := common.HexToAddress("0x82D0B70aD6Fcdb8aAD6048f86afca83D69F556b9")
	data, err := event.Inputs.NonIndexed().Pack(
		big.NewInt(10), big.NewInt(20), "#e50000", owner)
	assert.NoError(t, err)

	tokenId := common.BigToHash(big.NewInt(3010))
	l := types.Log{
		Topics: []common.Hash{event.ID, tokenId},
		Data:   data,
	}

	ev, err := c.decodeColorUpdated(l)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3010), ev.TokenId)
	assert.Equal(t, 10, ev.X)
	assert.Equal(t, 20, ev.Y)
	assert.Equal(t, "#e50000", ev.Color)
	assert.Equal(t, owner.Hex(), ev.Owner)
}

func TestToBigInts(t *testing.T) {
	bs := ToBigInts([]int{1, 2, 3})
	assert.Len(t, bs, 3)
	assert.Equal(t, int64(3), bs[2].Int64())
}
