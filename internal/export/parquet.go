package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"BarVault/internal/market"
)

// barRow is the parquet row layout for an exported series.
type barRow struct {
	Symbol    string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Timestamp int64   `parquet:"name=timestamp, type=INT64, encoding=DELTA_BINARY_PACKED"`
	Date      string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Open      float64 `parquet:"name=open, type=DOUBLE, encoding=PLAIN"`
	High      float64 `parquet:"name=high, type=DOUBLE, encoding=PLAIN"`
	Low       float64 `parquet:"name=low, type=DOUBLE, encoding=PLAIN"`
	Close     float64 `parquet:"name=close, type=DOUBLE, encoding=PLAIN"`
	Volume    int64   `parquet:"name=volume, type=INT64, encoding=DELTA_BINARY_PACKED"`
}

// ParquetExporter mirrors synchronized series into columnar files for
// downstream analytics tooling.
type ParquetExporter struct {
	Dir string
}

func NewParquetExporter(dir string) *ParquetExporter {
	return &ParquetExporter{Dir: dir}
}

// Path returns the export location for one symbol/timeframe series.
func (e *ParquetExporter) Path(exchange, symbol string, tf market.Timeframe) string {
	return filepath.Join(e.Dir, strings.ToLower(exchange),
		fmt.Sprintf("%s_%s.parquet", strings.ToUpper(symbol), string(tf)))
}

// WriteSeries writes the full series to a parquet file, replacing any
// previous export.
func (e *ParquetExporter) WriteSeries(exchange, symbol string, tf market.Timeframe, bars []market.Bar) error {
	path := e.Path(exchange, symbol, tf)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(barRow), 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_GZIP

	upper := strings.ToUpper(symbol)
	for _, b := range bars {
		row := barRow{
			Symbol:    upper,
			Timestamp: b.Time.Unix(),
			Date:      b.Time.Format("2006-01-02"),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    int64(b.Volume),
		}
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("write parquet row: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}
	return nil
}
