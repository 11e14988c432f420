package market

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/rs/zerolog"

	"github.com/kazetani/hekla/pkg/model"
)

// maxKlinesPerRequest is the Binance futures API page limit.
const maxKlinesPerRequest = 1500

// BinanceSource fetches candles from the Binance futures klines API.
// Public endpoints need no credentials.
type BinanceSource struct {
	client *futures.Client
	logger zerolog.Logger
}

// NewBinanceSource creates a Binance-backed candle source.
func NewBinanceSource(apiKey, secretKey string, logger zerolog.Logger) *BinanceSource {
	return &BinanceSource{
		client: futures.NewClient(apiKey, secretKey),
		logger: logger.With().Str("component", "binance").Logger(),
	}
}

var _ Source = (*BinanceSource)(nil)

// GetData fetches candles fully closed by target, oldest first.
// Large requests are paged backwards from the target.
func (s *BinanceSource) GetData(ctx context.Context, symbol string, target time.Time, interval string, totalRows int) ([]model.Candle, error) {
	if totalRows <= 0 {
		return nil, nil
	}

	var candles []model.Candle
	end := closedEndBound(target)

	for len(candles) < totalRows {
		limit := totalRows - len(candles)
		if limit > maxKlinesPerRequest {
			limit = maxKlinesPerRequest
		}

		klines, err := s.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			EndTime(end).
			Limit(limit).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch klines: %w", err)
		}
		if len(klines) == 0 {
			break
		}

		batch := make([]model.Candle, 0, len(klines))
		for _, k := range klines {
			batch = append(batch, klineToCandle(k))
		}

		// Prepend the older page.
		candles = append(batch, candles...)

		if len(klines) < limit {
			break // Exchange has no older data
		}
		end = klines[0].OpenTime - 1
	}

	s.logger.Debug().
		Str("symbol", symbol).
		Str("interval", interval).
		Time("target", target).
		Int("candles", len(candles)).
		Msg("fetched history")

	if len(candles) > totalRows {
		candles = candles[len(candles)-totalRows:]
	}
	return candles, nil
}

// closedEndBound converts target into the millisecond request bound that
// excludes the kline opening exactly at target. That kline does not
// close until one interval later, so at target its close is still
// forming.
func closedEndBound(target time.Time) int64 {
	return target.UnixMilli() - 1
}

func klineToCandle(k *futures.Kline) model.Candle {
	return model.Candle{
		Time:   time.UnixMilli(k.OpenTime),
		Open:   model.ParsePrice(k.Open),
		High:   model.ParsePrice(k.High),
		Low:    model.ParsePrice(k.Low),
		Close:  model.ParsePrice(k.Close),
		Volume: model.ParsePrice(k.Volume),
	}
}
