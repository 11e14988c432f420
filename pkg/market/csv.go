package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/kazetani/hekla/pkg/model"
)

// CSVSource reads candle history from a CSV export. Loading is lazy
// and happens once.
type CSVSource struct {
	filePath string
	candles  []model.Candle
	loaded   bool
}

// NewCSVSource creates a CSV-backed candle source.
func NewCSVSource(filePath string) *CSVSource {
	return &CSVSource{filePath: filePath}
}

var _ Source = (*CSVSource)(nil)

func (s *CSVSource) loadIfNeeded() error {
	if s.loaded {
		return nil
	}

	file, err := os.Open(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int)
	for i, col := range header {
		colMap[col] = i
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		candle, err := parseRecord(record, colMap)
		if err != nil {
			continue // Skip invalid records
		}
		s.candles = append(s.candles, candle)
	}

	sort.Slice(s.candles, func(i, j int) bool {
		return s.candles[i].Time.Before(s.candles[j].Time)
	})

	s.loaded = true
	return nil
}

func parseRecord(record []string, colMap map[string]int) (model.Candle, error) {
	getValue := func(name string) string {
		if idx, ok := colMap[name]; ok && idx < len(record) {
			return record[idx]
		}
		return ""
	}

	// Timestamps may be unix millis (open_time) or RFC3339 (time).
	var t time.Time
	if raw := getValue("open_time"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("invalid open_time: %w", err)
		}
		t = time.UnixMilli(ms)
	} else if raw := getValue("time"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return model.Candle{}, fmt.Errorf("invalid time: %w", err)
		}
		t = parsed
	} else {
		return model.Candle{}, fmt.Errorf("record has no timestamp column")
	}

	return model.Candle{
		Time:   t,
		Open:   model.ParsePrice(getValue("open")),
		High:   model.ParsePrice(getValue("high")),
		Low:    model.ParsePrice(getValue("low")),
		Close:  model.ParsePrice(getValue("close")),
		Volume: model.ParsePrice(getValue("volume")),
	}, nil
}

// GetData returns candles at or before target, oldest first. Symbol
// and interval are accepted for interface parity; a CSV file holds a
// single series.
func (s *CSVSource) GetData(ctx context.Context, symbol string, target time.Time, interval string, totalRows int) ([]model.Candle, error) {
	if err := s.loadIfNeeded(); err != nil {
		return nil, err
	}

	var filtered []model.Candle
	for _, c := range s.candles {
		if c.Time.After(target) {
			continue
		}
		filtered = append(filtered, c)
	}

	if len(filtered) > totalRows {
		filtered = filtered[len(filtered)-totalRows:]
	}
	return filtered, nil
}
