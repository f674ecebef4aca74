package pxnft

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/everFinance/goether"

	"github.com/moonpixels/pxgated/schema"
)

var (
	ErrOutOfRange = errors.New("range_out_of_canvas")
	ErrNoSigner   = errors.New("signer_not_configured")
	ErrTxReverted = errors.New("tx_reverted")
)

const (
	receiptPollInterval = 2 * time.Second
	gasLimitMargin      = 120 // percent of the estimate
)

// Client wraps the PXNFT contract. Reads go through the http RPC endpoint;
// event subscriptions need the websocket endpoint; writes need a signer.
type Client struct {
	rpc  *ethclient.Client
	ws   *ethclient.Client
	cAbi abi.ABI
	addr common.Address

	signer  *goether.Signer
	chainID *big.Int
}

func NewClient(rpcUrl, wsUrl, contractAddr, prvHex string) (*Client, error) {
	rpc, err := ethclient.Dial(rpcUrl)
	if err != nil {
		return nil, err
	}

	cAbi, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, err
	}

	c := &Client{
		rpc:  rpc,
		cAbi: cAbi,
		addr: common.HexToAddress(contractAddr),
	}

	if wsUrl != "" {
		ws, err := ethclient.Dial(wsUrl)
		if err != nil {
			return nil, err
		}
		c.ws = ws
	}

	if prvHex != "" {
		signer, err := goether.NewSigner(prvHex)
		if err != nil {
			return nil, err
		}
		c.signer = signer
		chainID, err := rpc.ChainID(context.Background())
		if err != nil {
			return nil, err
		}
		c.chainID = chainID
	}

	return c, nil
}

func (c *Client) SenderAddress() string {
	if c.signer == nil {
		return ""
	}
	return c.signer.Address.Hex()
}

func (c *Client) Close() {
	c.rpc.Close()
	if c.ws != nil {
		c.ws.Close()
	}
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.cAbi.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &c.addr, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return c.cAbi.Unpack(method, out)
}

func (c *Client) OwnerOf(ctx context.Context, tokenId uint64) (string, error) {
	out, err := c.call(ctx, "ownerOf", new(big.Int).SetUint64(tokenId))
	if err != nil {
		return "", err
	}
	return out[0].(common.Address).Hex(), nil
}

func (c *Client) GetColor(ctx context.Context, x, y int) (string, error) {
	out, err := c.call(ctx, "getColor", big.NewInt(int64(x)), big.NewInt(int64(y)))
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

// ReadRange fetches the minted cells of an inclusive rectangle as parallel
// arrays. The rectangle must lie fully inside the canvas.
func (c *Client) ReadRange(ctx context.Context, x0, y0, x1, y1 int) ([]uint64, []string, []string, error) {
	if x0 < 0 || y0 < 0 || x1 >= schema.CanvasWidth || y1 >= schema.CanvasHeight || x0 > x1 || y0 > y1 {
		return nil, nil, nil, ErrOutOfRange
	}
	out, err := c.call(ctx, "getMintedPixelsInRange",
		big.NewInt(int64(x0)), big.NewInt(int64(y0)), big.NewInt(int64(x1)), big.NewInt(int64(y1)))
	if err != nil {
		return nil, nil, nil, err
	}

	rawIds := out[0].([]*big.Int)
	rawOwners := out[1].([]common.Address)
	colors := out[2].([]string)

	ids := make([]uint64, len(rawIds))
	for i, id := range rawIds {
		ids[i] = id.Uint64()
	}
	owners := make([]string, len(rawOwners))
	for i, o := range rawOwners {
		owners[i] = o.Hex()
	}
	return ids, owners, colors, nil
}

func (c *Client) TotalMinted(ctx context.Context) (int64, error) {
	out, err := c.call(ctx, "totalMinted")
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Int64(), nil
}

func (c *Client) CalculateUpdateFee(ctx context.Context, x, y int, updater string) (*big.Int, bool, error) {
	out, err := c.call(ctx, "calculateUpdateFee",
		big.NewInt(int64(x)), big.NewInt(int64(y)), common.HexToAddress(updater))
	if err != nil {
		return nil, false, err
	}
	return out[0].(*big.Int), out[1].(bool), nil
}

func (c *Client) CalculateBatchUpdateFee(ctx context.Context, xs, ys []*big.Int, updater string) (*big.Int, int64, error) {
	out, err := c.call(ctx, "calculateBatchUpdateFee", xs, ys, common.HexToAddress(updater))
	if err != nil {
		return nil, 0, err
	}
	return out[0].(*big.Int), out[1].(*big.Int).Int64(), nil
}

func (c *Client) IsPixelAuthorized(ctx context.Context, x, y int, operator string) (bool, error) {
	out, err := c.call(ctx, "isPixelAuthorized",
		big.NewInt(int64(x)), big.NewInt(int64(y)), common.HexToAddress(operator))
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (c *Client) HasExemption(ctx context.Context, account string) (bool, error) {
	out, err := c.call(ctx, "hasExemption", common.HexToAddress(account))
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (c *Client) GetPixelApprovalCount(ctx context.Context, x, y int) (int64, error) {
	out, err := c.call(ctx, "getPixelApprovalCount", big.NewInt(int64(x)), big.NewInt(int64(y)))
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Int64(), nil
}

func (c *Client) GetPixelApprovedAddressesList(ctx context.Context, x, y int) ([]string, error) {
	out, err := c.call(ctx, "getPixelApprovedAddressesList", big.NewInt(int64(x)), big.NewInt(int64(y)))
	if err != nil {
		return nil, err
	}
	raw := out[0].([]common.Address)
	addrs := make([]string, len(raw))
	for i, a := range raw {
		addrs[i] = a.Hex()
	}
	return addrs, nil
}

func (c *Client) GetOwnedPixelsInArea(ctx context.Context, x0, y0, x1, y1 int, owner string) ([]uint64, error) {
	out, err := c.call(ctx, "getOwnedPixelsInArea",
		big.NewInt(int64(x0)), big.NewInt(int64(y0)), big.NewInt(int64(x1)), big.NewInt(int64(y1)),
		common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	raw := out[0].([]*big.Int)
	ids := make([]uint64, len(raw))
	for i, id := range raw {
		ids[i] = id.Uint64()
	}
	return ids, nil
}

// sendTx packs, signs and broadcasts a contract call, returning the tx hash.
func (c *Client) sendTx(ctx context.Context, value *big.Int, method string, args ...interface{}) (string, error) {
	if c.signer == nil {
		return "", ErrNoSigner
	}
	if value == nil {
		value = big.NewInt(0)
	}

	data, err := c.cAbi.Pack(method, args...)
	if err != nil {
		return "", err
	}

	nonce, err := c.rpc.PendingNonceAt(ctx, c.signer.Address)
	if err != nil {
		return "", err
	}
	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return "", err
	}
	gasTip, err := c.rpc.SuggestGasTipCap(ctx)
	if err != nil {
		// nodes without eip-1559 fee history still accept tip == price
		gasTip = gasPrice
	}
	gasLimit, err := c.rpc.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.signer.Address,
		To:    &c.addr,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return "", err
	}
	gasLimit = gasLimit * gasLimitMargin / 100

	tx, err := c.signer.SignTx(int(nonce), c.addr, value, int(gasLimit), gasTip, gasPrice, data, c.chainID)
	if err != nil {
		return "", err
	}
	if err := c.rpc.SendTransaction(ctx, tx); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

func (c *Client) Mint(ctx context.Context, x, y int, color string) (string, error) {
	return c.sendTx(ctx, nil, "mint", big.NewInt(int64(x)), big.NewInt(int64(y)), color)
}

func (c *Client) BatchMint(ctx context.Context, xs, ys []*big.Int, colors []string) (string, error) {
	return c.sendTx(ctx, nil, "batchMint", xs, ys, colors)
}

func (c *Client) UpdateColor(ctx context.Context, x, y int, color string, fee *big.Int) (string, error) {
	return c.sendTx(ctx, fee, "updateColor", big.NewInt(int64(x)), big.NewInt(int64(y)), color)
}

func (c *Client) BatchUpdateColor(ctx context.Context, xs, ys []*big.Int, colors []string, fee *big.Int) (string, error) {
	return c.sendTx(ctx, fee, "batchUpdateColor", xs, ys, colors)
}

func (c *Client) ComposePixels(ctx context.Context, x0, y0, x1, y1 int) (string, error) {
	return c.sendTx(ctx, nil, "composePixels",
		big.NewInt(int64(x0)), big.NewInt(int64(y0)), big.NewInt(int64(x1)), big.NewInt(int64(y1)))
}

func (c *Client) DecomposePixels(ctx context.Context, compositeId uint64) (string, error) {
	return c.sendTx(ctx, nil, "decomposePixels", new(big.Int).SetUint64(compositeId))
}

func (c *Client) ApprovePixelMulti(ctx context.Context, x, y int, operator string) (string, error) {
	return c.sendTx(ctx, nil, "approvePixelMulti",
		big.NewInt(int64(x)), big.NewInt(int64(y)), common.HexToAddress(operator))
}

func (c *Client) BatchApprovePixelMulti(ctx context.Context, xs, ys []*big.Int, operators []string) (string, error) {
	return c.sendTx(ctx, nil, "batchApprovePixelMulti", xs, ys, toAddresses(operators))
}

func (c *Client) RevokePixelMulti(ctx context.Context, x, y int, operator string) (string, error) {
	return c.sendTx(ctx, nil, "revokePixelMulti",
		big.NewInt(int64(x)), big.NewInt(int64(y)), common.HexToAddress(operator))
}

func (c *Client) BatchRevokePixelMulti(ctx context.Context, xs, ys []*big.Int, operators []string) (string, error) {
	return c.sendTx(ctx, nil, "batchRevokePixelMulti", xs, ys, toAddresses(operators))
}

// WaitMined polls for the receipt of a tx until it lands or ctx expires.
// A mined-but-reverted tx returns ErrTxReverted.
func (c *Client) WaitMined(ctx context.Context, txHash string) error {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return ErrTxReverted
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func toAddresses(in []string) []common.Address {
	out := make([]common.Address, len(in))
	for i, s := range in {
		out[i] = common.HexToAddress(s)
	}
	return out
}

func ToBigInts(in []int) []*big.Int {
	out := make([]*big.Int, len(in))
	for i, v := range in {
		out[i] = big.NewInt(int64(v))
	}
	return out
}
