package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rxtech-lab/argo-decision/internal/types"
	"github.com/rxtech-lab/argo-decision/pkg/errors"
)

// DefaultFearGreedURL is the public alternative.me Fear & Greed endpoint.
const DefaultFearGreedURL = "https://api.alternative.me/fng/?limit=1"

// AlternativeMeFetcher reads the Fear & Greed index from alternative.me and
// optionally merges on-chain metrics from a user-supplied aggregator
// endpoint. Without an on-chain endpoint the NUPL/MVRV/reserve fields stay
// zero and the sentiment engine scores from Fear & Greed alone.
type AlternativeMeFetcher struct {
	httpClient   *http.Client
	fearGreedURL string
	onChainURL   string
}

func NewAlternativeMeFetcher(onChainURL string) *AlternativeMeFetcher {
	return &AlternativeMeFetcher{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		fearGreedURL: DefaultFearGreedURL,
		onChainURL:   onChainURL,
	}
}

type fearGreedResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
	} `json:"data"`
}

type onChainResponse struct {
	NUPL                  float64 `json:"nupl"`
	MVRV                  float64 `json:"mvrv"`
	ExchangeReserveChange float64 `json:"exchange_reserve_change"`
	Whale                 string  `json:"whale"`
}

func (f *AlternativeMeFetcher) FetchSentiment(ctx context.Context) (types.SentimentData, error) {
	data := types.SentimentData{
		Whale: types.WhaleNeutral,
		Time:  time.Now().UTC(),
	}

	var fg fearGreedResponse
	if err := f.getJSON(ctx, f.fearGreedURL, &fg); err != nil {
		return types.SentimentData{}, err
	}

	if len(fg.Data) == 0 {
		return types.SentimentData{}, errors.New(errors.ErrCodeDataNotFound,
			"fear & greed response carried no data")
	}

	value, err := strconv.Atoi(fg.Data[0].Value)
	if err != nil {
		return types.SentimentData{}, errors.Wrap(errors.ErrCodeFeedParseFailed,
			"failed to parse fear & greed value", err)
	}

	data.FearGreedIndex = value
	data.FearGreedClass = fg.Data[0].ValueClassification

	if f.onChainURL != "" {
		var onChain onChainResponse
		if err := f.getJSON(ctx, f.onChainURL, &onChain); err != nil {
			// On-chain enrichment is best-effort; Fear & Greed alone is
			// still a usable signal.
			return data, nil
		}

		data.NUPL = onChain.NUPL
		data.MVRV = onChain.MVRV
		data.ExchangeReserveChange = onChain.ExchangeReserveChange
		if onChain.Whale != "" {
			data.Whale = types.WhaleSignal(onChain.Whale)
		}
	}

	return data, nil
}

func (f *AlternativeMeFetcher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFeedFetchFailed, "failed to build request", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeFeedFetchFailed, err, "request to %s failed", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrCodeFeedFetchFailed, "%s returned status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(errors.ErrCodeFeedParseFailed, err, "failed to decode response from %s", url)
	}

	return nil
}
