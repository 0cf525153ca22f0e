package feed

import (
	"context"
	"strconv"
	"sync"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"

	"github.com/rxtech-lab/argo-decision/internal/types"
	"github.com/rxtech-lab/argo-decision/pkg/errors"
)

const (
	// snapshotBars is how many hourly klines each snapshot carries; enough
	// for every indicator window with headroom.
	snapshotBars = 200
	// bookDepth is the number of levels fetched per side.
	bookDepth = 20
)

// BinanceMarketSource builds market snapshots from Binance spot klines and
// the order book.
type BinanceMarketSource struct {
	client   *binance.Client
	symbol   string
	interval string
}

func NewBinanceMarketSource(symbol, interval string) *BinanceMarketSource {
	return &BinanceMarketSource{
		client:   binance.NewClient("", ""),
		symbol:   symbol,
		interval: interval,
	}
}

func (s *BinanceMarketSource) Snapshot(ctx context.Context) (*types.MarketSnapshot, error) {
	klines, err := s.client.NewKlinesService().
		Symbol(s.symbol).
		Interval(s.interval).
		Limit(snapshotBars).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFeedFetchFailed, err,
			"failed to fetch %s klines", s.symbol)
	}

	bars := make([]types.Bar, 0, len(klines))
	for _, k := range klines {
		bar, err := barFromKline(k)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	depth, err := s.client.NewDepthService().
		Symbol(s.symbol).
		Limit(bookDepth).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFeedFetchFailed, err,
			"failed to fetch %s depth", s.symbol)
	}

	book, err := bookFromDepth(depth)
	if err != nil {
		return nil, err
	}

	snapshot := &types.MarketSnapshot{
		Symbol: s.symbol,
		Bars:   bars,
		Book:   book,
	}

	if len(bars) > 0 {
		last := bars[len(bars)-1]
		snapshot.Time = last.Time
		snapshot.Price = last.Close
	}

	return snapshot, nil
}

func barFromKline(k *binance.Kline) (types.Bar, error) {
	open, err1 := strconv.ParseFloat(k.Open, 64)
	high, err2 := strconv.ParseFloat(k.High, 64)
	low, err3 := strconv.ParseFloat(k.Low, 64)
	closePrice, err4 := strconv.ParseFloat(k.Close, 64)
	volume, err5 := strconv.ParseFloat(k.Volume, 64)

	for _, err := range []error{err1, err2, err3, err4, err5} {
		if err != nil {
			return types.Bar{}, errors.Wrap(errors.ErrCodeFeedParseFailed,
				"failed to parse kline", err)
		}
	}

	return types.Bar{
		Time:   millisToTime(k.OpenTime),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}

func bookFromDepth(depth *binance.DepthResponse) (types.OrderBook, error) {
	book := types.OrderBook{
		Bids: make([]types.BookLevel, 0, len(depth.Bids)),
		Asks: make([]types.BookLevel, 0, len(depth.Asks)),
	}

	for _, b := range depth.Bids {
		price, qty, err := parseLevel(b.Price, b.Quantity)
		if err != nil {
			return types.OrderBook{}, err
		}
		book.Bids = append(book.Bids, types.BookLevel{Price: price, Quantity: qty})
	}

	for _, a := range depth.Asks {
		price, qty, err := parseLevel(a.Price, a.Quantity)
		if err != nil {
			return types.OrderBook{}, err
		}
		book.Asks = append(book.Asks, types.BookLevel{Price: price, Quantity: qty})
	}

	return book, nil
}

func parseLevel(priceStr, qtyStr string) (float64, float64, error) {
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeFeedParseFailed, "failed to parse book level", err)
	}

	qty, err := strconv.ParseFloat(qtyStr, 64)
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeFeedParseFailed, "failed to parse book level", err)
	}

	return price, qty, nil
}

// BinanceOrderFlowFetcher reads funding rate and open interest from Binance
// futures plus order-book volumes from spot. Open-interest change is
// derived from the previous fetch, so the first reading reports zero.
type BinanceOrderFlowFetcher struct {
	futuresClient *futures.Client
	spotClient    *binance.Client

	mu     sync.Mutex
	prevOI float64
}

func NewBinanceOrderFlowFetcher() *BinanceOrderFlowFetcher {
	return &BinanceOrderFlowFetcher{
		futuresClient: futures.NewClient("", ""),
		spotClient:    binance.NewClient("", ""),
	}
}

func (f *BinanceOrderFlowFetcher) FetchOrderFlow(ctx context.Context, symbol string) (types.OrderFlowData, error) {
	premium, err := f.futuresClient.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.OrderFlowData{}, errors.Wrapf(errors.ErrCodeFeedFetchFailed, err,
			"failed to fetch %s premium index", symbol)
	}
	if len(premium) == 0 {
		return types.OrderFlowData{}, errors.Newf(errors.ErrCodeDataNotFound,
			"no premium index for %s", symbol)
	}

	fundingRate, err := strconv.ParseFloat(premium[0].LastFundingRate, 64)
	if err != nil {
		return types.OrderFlowData{}, errors.Wrap(errors.ErrCodeFeedParseFailed,
			"failed to parse funding rate", err)
	}

	oi, err := f.futuresClient.NewGetOpenInterestService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.OrderFlowData{}, errors.Wrapf(errors.ErrCodeFeedFetchFailed, err,
			"failed to fetch %s open interest", symbol)
	}

	openInterest, err := strconv.ParseFloat(oi.OpenInterest, 64)
	if err != nil {
		return types.OrderFlowData{}, errors.Wrap(errors.ErrCodeFeedParseFailed,
			"failed to parse open interest", err)
	}

	depth, err := f.spotClient.NewDepthService().Symbol(symbol).Limit(bookDepth).Do(ctx)
	if err != nil {
		return types.OrderFlowData{}, errors.Wrapf(errors.ErrCodeFeedFetchFailed, err,
			"failed to fetch %s depth", symbol)
	}

	book, err := bookFromDepth(depth)
	if err != nil {
		return types.OrderFlowData{}, err
	}

	f.mu.Lock()
	oiChange := 0.0
	if f.prevOI > 0 {
		oiChange = (openInterest - f.prevOI) / f.prevOI * 100
	}
	f.prevOI = openInterest
	f.mu.Unlock()

	data := types.OrderFlowData{
		FundingRate:        fundingRate,
		OpenInterest:       openInterest,
		OpenInterestChange: oiChange,
		BidVolume:          sumVolume(book.Bids),
		AskVolume:          sumVolume(book.Asks),
		SpreadPercent:      spreadPercent(book),
		Time:               time.Now().UTC(),
	}

	return data, nil
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func sumVolume(levels []types.BookLevel) float64 {
	var total float64
	for _, l := range levels {
		total += l.Quantity
	}

	return total
}

func spreadPercent(book types.OrderBook) float64 {
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return 0
	}

	bestBid := book.Bids[0].Price
	bestAsk := book.Asks[0].Price
	mid := (bestBid + bestAsk) / 2
	if mid == 0 {
		return 0
	}

	return (bestAsk - bestBid) / mid * 100
}
