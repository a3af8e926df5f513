package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// FearGreedIndex reads the alternative.me crypto fear & greed index
type FearGreedIndex struct {
	client *Client
}

func NewFearGreedIndex(client *Client) *FearGreedIndex {
	return &FearGreedIndex{client: client}
}

type fearGreedResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
	} `json:"data"`
}

// Latest returns today's reading
func (f *FearGreedIndex) Latest(ctx context.Context) (market.FearGreed, error) {
	params := url.Values{}
	params.Set("limit", "1")

	var resp fearGreedResponse
	if err := f.client.getJSON(ctx, "/fng/", params, &resp); err != nil {
		return market.FearGreed{}, err
	}
	if len(resp.Data) == 0 {
		return market.FearGreed{}, fmt.Errorf("fear greed: empty response")
	}
	v, err := strconv.Atoi(resp.Data[0].Value)
	if err != nil {
		return market.FearGreed{}, fmt.Errorf("fear greed value %q: %w", resp.Data[0].Value, err)
	}
	if v < 0 || v > 100 {
		return market.FearGreed{}, fmt.Errorf("fear greed value %d out of range", v)
	}
	return market.FearGreed{Value: v, Classification: resp.Data[0].Classification}, nil
}
