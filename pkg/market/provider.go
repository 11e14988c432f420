// Package market fetches candle history from exchanges, CSV exports,
// or memory, always anchored to a target timestamp.
package market

import (
	"context"
	"time"

	"github.com/kazetani/hekla/pkg/model"
)

// Source supplies candle history ending at a target timestamp.
type Source interface {
	// GetData returns up to totalRows candles for the symbol and
	// interval whose times are at or before target, oldest first.
	// Sources backed by a live exchange return only candles already
	// closed at target; offline sources hold final candles and may
	// include one opening exactly at target.
	GetData(ctx context.Context, symbol string, target time.Time, interval string, totalRows int) ([]model.Candle, error)
}
