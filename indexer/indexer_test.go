package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const listingBody = `{
  "tokens": [
    {"token": {"tokenId": "3010", "name": "Pixel (10, 20)", "image": "https://img/3010.png", "owner": "0xaa", "contract": "0xc0ffee", "rarity": 1.2, "rarityRank": 7, "mintedAt": "2026-01-02T00:00:00Z"},
     "ownership": {"acquiredAt": "2026-01-03T00:00:00Z"}},
    {"token": {"tokenId": "100001", "name": "Composite #1", "image": "https://img/100001.png", "owner": "0xbb", "contract": "0xc0ffee"}},
    {"token": {"tokenId": "42", "name": null, "contract": "0xc0ffee"}},
    {"token": {"tokenId": "9", "name": "Other Thing", "owner": "0xcc", "contract": "0xdead"}}
  ]
}`

func TestDecodeTokensPixels(t *testing.T) {
	cli, err := New("http://127.0.0.1:1", "", "0xc0ffee")
	assert.NoError(t, err)

	tokens := cli.decodeTokens([]byte(listingBody), FilterPixels, "")
	assert.Equal(t, 1, len(tokens))
	tok := tokens[0]
	assert.Equal(t, uint64(3010), tok.TokenId)
	assert.Equal(t, 10, tok.X)
	assert.Equal(t, 20, tok.Y)
	assert.False(t, tok.Composite)
	assert.Equal(t, "0xaa", tok.Owner)
	assert.Equal(t, "2026-01-03T00:00:00Z", tok.AcquiredAt)
}

func TestDecodeTokensComposed(t *testing.T) {
	cli, err := New("http://127.0.0.1:1", "", "0xc0ffee")
	assert.NoError(t, err)

	tokens := cli.decodeTokens([]byte(listingBody), FilterComposed, "")
	assert.Equal(t, 1, len(tokens))
	assert.Equal(t, uint64(100001), tokens[0].TokenId)
	assert.True(t, tokens[0].Composite)
	assert.Equal(t, 0, tokens[0].X)
}

func TestDecodeTokensContractFilter(t *testing.T) {
	cli, err := New("http://127.0.0.1:1", "", "0xc0ffee")
	assert.NoError(t, err)

	tokens := cli.decodeTokens([]byte(listingBody), FilterPixels, "0xC0FFEE")
	assert.Equal(t, 1, len(tokens))

	tokens = cli.decodeTokens([]byte(listingBody), FilterPixels, "0xdead")
	assert.Equal(t, 0, len(tokens))
}

func TestListingCache(t *testing.T) {
	cli, err := New("http://127.0.0.1:1", "", "0xc0ffee")
	assert.NoError(t, err)

	want := []Token{{TokenId: 3010, Name: "Pixel (10, 20)", X: 10, Y: 20}}
	cli.setCached("minted-all-pixels", want)

	got, ok := cli.cached("minted-all-pixels")
	assert.True(t, ok)
	assert.Equal(t, want, got)

	assert.NoError(t, cli.ClearCache("minted-all-pixels"))
	_, ok = cli.cached("minted-all-pixels")
	assert.False(t, ok)
}

func TestMatchFilter(t *testing.T) {
	assert.True(t, matchFilter("Pixel (3, 4)", FilterPixels))
	assert.False(t, matchFilter("Composite #9", FilterPixels))
	assert.True(t, matchFilter("Composite #9", FilterComposed))
	assert.False(t, matchFilter("Pixel (3, 4)", FilterComposed))
}
