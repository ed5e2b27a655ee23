package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"BarVault/internal/market"
)

const seriesHeader = "timestamp,date,open,high,low,close,volume"

// SeriesPath returns the CSV location of one (instrument, timeframe) series.
func (s *FileStore) SeriesPath(exchange, symbol string, tf market.Timeframe) string {
	return s.Path(exchange, symbol, string(tf), "csv")
}

// ReadSeries loads a persisted series. A missing file is a normal state
// (never synchronized) and yields a nil slice without error.
func (s *FileStore) ReadSeries(exchange, symbol string, tf market.Timeframe) ([]market.Bar, error) {
	f, err := os.Open(s.SeriesPath(exchange, symbol, tf))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open series: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read series header: %w", err)
	}

	var bars []market.Bar
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read series row: %w", err)
		}
		if len(rec) < 7 {
			return nil, fmt.Errorf("short series row: %v", rec)
		}
		ts, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse row timestamp %q: %w", rec[0], err)
		}
		bar := market.Bar{Time: timeFromUnix(ts)}
		for i, dst := range []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume} {
			v, err := strconv.ParseFloat(rec[i+2], 64)
			if err != nil {
				return nil, fmt.Errorf("parse row value %q: %w", rec[i+2], err)
			}
			*dst = v
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// WriteSeries persists a full series atomically.
func (s *FileStore) WriteSeries(exchange, symbol string, tf market.Timeframe, bars []market.Bar) error {
	var buf bytes.Buffer
	buf.WriteString(seriesHeader + "\n")
	for _, b := range bars {
		fmt.Fprintf(&buf, "%d,%s,%.4f,%.4f,%.4f,%.4f,%.0f\n",
			b.Time.Unix(),
			b.Time.Format("2006-01-02"),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
	}
	return s.writeAtomic(s.SeriesPath(exchange, symbol, tf), buf.Bytes())
}

func timeFromUnix(ts int64) time.Time {
	return time.Unix(ts, 0).In(market.Reference)
}
