package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rxtech-lab/argo-decision/internal/types"
	"github.com/rxtech-lab/argo-decision/pkg/errors"
)

// HTTPMacroFetcher reads macro-fundamental data from a user-supplied
// aggregator endpoint returning JSON. Free public sources for DXY, yields,
// ETF flows and the economic calendar vary too much to hardcode one; the
// endpoint contract below keeps the engine source-agnostic.
type HTTPMacroFetcher struct {
	httpClient *http.Client
	url        string
}

func NewHTTPMacroFetcher(url string) (*HTTPMacroFetcher, error) {
	if url == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "macro endpoint url is required")
	}

	return &HTTPMacroFetcher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
	}, nil
}

type macroResponse struct {
	DollarIndex      float64 `json:"dollar_index"`
	DollarIndexTrend string  `json:"dollar_index_trend"`
	Yield10Y         float64 `json:"yield_10y"`
	Yield10YTrend    string  `json:"yield_10y_trend"`
	ETFNetFlow       float64 `json:"etf_net_flow"`
	Events           []struct {
		Name       string    `json:"name"`
		Time       time.Time `json:"time"`
		Importance string    `json:"importance"`
	} `json:"events"`
}

func (f *HTTPMacroFetcher) FetchMacro(ctx context.Context) (types.MacroData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return types.MacroData{}, errors.Wrap(errors.ErrCodeFeedFetchFailed,
			"failed to build macro request", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return types.MacroData{}, errors.Wrapf(errors.ErrCodeFeedFetchFailed, err,
			"macro request to %s failed", f.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.MacroData{}, errors.Newf(errors.ErrCodeFeedFetchFailed,
			"macro endpoint returned status %d", resp.StatusCode)
	}

	var payload macroResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return types.MacroData{}, errors.Wrap(errors.ErrCodeFeedParseFailed,
			"failed to decode macro response", err)
	}

	data := types.MacroData{
		DollarIndex:      payload.DollarIndex,
		DollarIndexTrend: types.Trend(payload.DollarIndexTrend),
		Yield10Y:         payload.Yield10Y,
		Yield10YTrend:    types.Trend(payload.Yield10YTrend),
		ETFNetFlow:       payload.ETFNetFlow,
		Events:           make([]types.EconomicEvent, 0, len(payload.Events)),
		Time:             time.Now().UTC(),
	}

	for _, e := range payload.Events {
		data.Events = append(data.Events, types.EconomicEvent{
			Name:       e.Name,
			Time:       e.Time,
			Importance: e.Importance,
		})
	}

	return data, nil
}
