// Package export writes bar series to Parquet files for offline analysis.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"wse-scanner/internal/errors"
	"wse-scanner/internal/models"
)

// BarRecord is one Parquet row.
type BarRecord struct {
	Symbol    string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Timestamp int64   `parquet:"name=timestamp, type=INT64, encoding=DELTA_BINARY_PACKED"`
	Date      string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Year      int32   `parquet:"name=year, type=INT32, encoding=PLAIN_DICTIONARY"`
	Week      int32   `parquet:"name=week, type=INT32, encoding=PLAIN_DICTIONARY"`
	Open      float64 `parquet:"name=open, type=DOUBLE, encoding=PLAIN"`
	High      float64 `parquet:"name=high, type=DOUBLE, encoding=PLAIN"`
	Low       float64 `parquet:"name=low, type=DOUBLE, encoding=PLAIN"`
	Close     float64 `parquet:"name=close, type=DOUBLE, encoding=PLAIN"`
	Volume    float64 `parquet:"name=volume, type=DOUBLE, encoding=PLAIN"`
}

// FileName returns the export path for a symbol at the given granularity.
func FileName(dir, symbol string, g models.Granularity) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.parquet", strings.ToUpper(symbol), g))
}

// NewBarRecord converts a candle. Year and Week are the ISO week of the bar date.
func NewBarRecord(symbol string, c models.Candle) (BarRecord, error) {
	t, err := time.Parse(models.DateLayout, c.Date)
	if err != nil {
		return BarRecord{}, errors.NewDataIntegrityError(symbol, c.Date, "unparseable date")
	}
	year, week := t.ISOWeek()
	return BarRecord{
		Symbol:    symbol,
		Timestamp: t.Unix(),
		Date:      c.Date,
		Year:      int32(year),
		Week:      int32(week),
		Open:      c.Open,
		High:      c.High,
		Low:       c.Low,
		Close:     c.Close,
		Volume:    c.Volume,
	}, nil
}

// WriteParquet writes candles for one symbol to path with GZIP compression.
// The parent directory is created when missing.
func WriteParquet(path, symbol string, candles []models.Candle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(BarRecord), 4)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_GZIP
	pw.PageSize = 8 * 1024

	for _, c := range candles {
		rec, err := NewBarRecord(symbol, c)
		if err != nil {
			pw.WriteStop()
			return err
		}
		if err := pw.Write(rec); err != nil {
			pw.WriteStop()
			return fmt.Errorf("failed to write parquet data: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}
