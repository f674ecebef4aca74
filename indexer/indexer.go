package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/h2non/gentleman.v2"

	"github.com/moonpixels/pxgated/cache"
	"github.com/moonpixels/pxgated/schema"
)

const (
	cacheTTL     = 60 * time.Second
	defaultLimit = 50

	// composite tokens start above the plain pixel id space
	compositeIdFloor = 100000
)

const (
	FilterPixels   = "pixels"
	FilterComposed = "composed"
)

// Token is one listed NFT of the canvas collection.
type Token struct {
	TokenId    uint64  `json:"tokenId"`
	Name       string  `json:"name"`
	Image      string  `json:"image"`
	Owner      string  `json:"owner"`
	Rarity     float64 `json:"rarity,omitempty"`
	RarityRank int64   `json:"rarityRank,omitempty"`
	MintedAt   string  `json:"mintedAt,omitempty"`
	AcquiredAt string  `json:"acquiredAt,omitempty"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Composite  bool    `json:"composite"`
}

// Client talks to the reservoir-style NFT indexing API (paginated token
// listing by collection and by owner) with a short response cache in front.
type Client struct {
	SCli       *gentleman.Client
	apiKey     string
	collection string
	cache      *cache.Cache
}

func New(indexerUrl, apiKey, collection string) (*Client, error) {
	c, err := cache.NewLocalCache(cacheTTL)
	if err != nil {
		return nil, err
	}
	return &Client{
		SCli:       gentleman.New().URL(indexerUrl),
		apiKey:     apiKey,
		collection: collection,
		cache:      c,
	}, nil
}

// CollectionTokens lists the collection's tokens, filtered to plain pixels
// or composites by name pattern.
func (c *Client) CollectionTokens(filter string, limit int) ([]Token, error) {
	cacheKey := fmt.Sprintf("minted-all-%s", filter)
	if tokens, ok := c.cached(cacheKey); ok {
		return tokens, nil
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	req := c.SCli.Get()
	req.AddPath("/tokens/v6")
	req.SetQuery("collection", c.collection)
	req.SetQuery("sortBy", "floorAskPrice")
	req.SetQuery("limit", strconv.Itoa(limit))
	req.SetHeader("x-api-key", c.apiKey)

	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, errors.New(fmt.Sprintf("indexer resp failed: %s", resp.String()))
	}

	tokens := c.decodeTokens(resp.Bytes(), filter, "")
	c.setCached(cacheKey, tokens)
	return tokens, nil
}

// UserTokens lists one owner's tokens of the collection.
func (c *Client) UserTokens(owner, filter string, limit int) ([]Token, error) {
	cacheKey := fmt.Sprintf("user-%s-%s", owner, filter)
	if tokens, ok := c.cached(cacheKey); ok {
		return tokens, nil
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	req := c.SCli.Get()
	req.AddPath(fmt.Sprintf("/users/%s/tokens/v7", owner))
	req.SetQuery("limit", strconv.Itoa(limit))
	req.SetHeader("x-api-key", c.apiKey)

	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, errors.New(fmt.Sprintf("indexer resp failed: %s", resp.String()))
	}

	tokens := c.decodeTokens(resp.Bytes(), filter, c.collection)
	c.setCached(cacheKey, tokens)
	return tokens, nil
}

// ClearCache drops one cached listing, or everything when key is empty.
func (c *Client) ClearCache(key string) error {
	if key == "" {
		return c.cache.Cache.Reset()
	}
	return c.cache.Cache.Delete(key)
}

// decodeTokens extracts the token array out of a listing response. Tokens
// with a null name are skipped; when contractFilter is set, tokens of other
// collections are dropped (the by-owner endpoint returns everything the
// address holds).
func (c *Client) decodeTokens(body []byte, filter, contractFilter string) []Token {
	out := make([]Token, 0)
	gjson.GetBytes(body, "tokens").ForEach(func(_, item gjson.Result) bool {
		tok := item.Get("token")
		name := tok.Get("name").String()
		if name == "" {
			return true
		}
		if contractFilter != "" && !strings.EqualFold(tok.Get("contract").String(), contractFilter) {
			return true
		}
		if !matchFilter(name, filter) {
			return true
		}

		id := tok.Get("tokenId").Uint()
		t := Token{
			TokenId:    id,
			Name:       name,
			Image:      tok.Get("image").String(),
			Owner:      tok.Get("owner").String(),
			Rarity:     tok.Get("rarity").Float(),
			RarityRank: tok.Get("rarityRank").Int(),
			MintedAt:   tok.Get("mintedAt").String(),
			AcquiredAt: item.Get("ownership.acquiredAt").String(),
			Composite:  id >= compositeIdFloor,
		}
		if !t.Composite {
			t.X = int(id % schema.CanvasWidth)
			t.Y = int(id / schema.CanvasWidth)
		}
		out = append(out, t)
		return true
	})
	return out
}

func matchFilter(name, filter string) bool {
	isComposite := strings.Contains(name, "Composite")
	if filter == FilterComposed {
		return isComposite
	}
	return strings.Contains(name, "Pixel (") && !isComposite
}

func (c *Client) cached(key string) ([]Token, bool) {
	data, err := c.cache.Cache.Get(key)
	if err != nil {
		return nil, false
	}
	tokens := make([]Token, 0)
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, false
	}
	return tokens, true
}

func (c *Client) setCached(key string, tokens []Token) {
	data, err := json.Marshal(tokens)
	if err != nil {
		return
	}
	_ = c.cache.Cache.Set(key, data)
}
