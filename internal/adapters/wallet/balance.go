package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/sirupsen/logrus"

	"nymctl/internal/core"
	"nymctl/internal/ports"
)

const (
	DefaultBalanceAPI = "https://api.nymtech.net/cosmos/bank/v1beta1/balances"
	QueryTimeout      = 15 * time.Second
	Denom             = "unym"
	unymPerNym        = 1_000_000
	maxBodySize       = 1 << 20
)

// Client queries account balances over the cosmos bank REST API
type Client struct {
	client *http.Client
	api    string
	log    *logrus.Entry
}

func NewClient(api string, log *logrus.Entry) *Client {
	if api == "" {
		api = DefaultBalanceAPI
	}
	return &Client{client: cleanhttp.DefaultClient(), api: strings.TrimSuffix(api, "/"), log: log}
}

var _ ports.BalanceQuerier = (*Client)(nil)

type coin struct {
	Denom  string          `json:"denom"`
	Amount json.RawMessage `json:"amount"`
}

// two shapes are seen in the wild: a list of coins or a single nested coin
type balanceDoc struct {
	Balances []coin `json:"balances"`
	Balance  *coin  `json:"balance"`
}

// Balance returns the NYM balance of address
func (c *Client) Balance(ctx context.Context, address string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.api+"/"+address, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("balance query failed: %v: %w", err, core.ErrNetworkUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("balance query returned %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, fmt.Errorf("unable to read balance response: %w", err)
	}
	nym, err := ParseBalance(body)
	if err != nil {
		return 0, err
	}
	c.log.WithFields(logrus.Fields{"address": address, "nym": nym}).Debug("balance")
	return nym, nil
}

// ParseBalance extracts the unym amount from a balance response and converts it to NYM.
// A response without the unym denomination is a zero balance
func ParseBalance(body []byte) (float64, error) {
	var doc balanceDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return 0, fmt.Errorf("unable to decode balance response: %w", err)
	}
	coins := doc.Balances
	if doc.Balance != nil {
		coins = append(coins, *doc.Balance)
	}
	for _, c := range coins {
		if c.Denom != Denom {
			continue
		}
		unym, err := parseAmount(c.Amount)
		if err != nil {
			return 0, err
		}
		return unym / unymPerNym, nil
	}
	return 0, nil
}

// parseAmount accepts "123" as well as 123. A coin without an amount holds nothing
func parseAmount(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q: %w", string(raw), core.ErrMalformedAmount)
	}
	return v, nil
}
