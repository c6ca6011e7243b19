package store

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"cryptosnap/internal/models"
)

type candleParquetRecord struct {
	Timeframe    string   `parquet:"name=timeframe, type=BYTE_ARRAY, convertedtype=UTF8"`
	Symbol       string   `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Exchanges    string   `parquet:"name=exchanges, type=BYTE_ARRAY, convertedtype=UTF8"`
	Category     int32    `parquet:"name=category, type=INT32"`
	OpenTime     int64    `parquet:"name=open_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	CloseTime    int64    `parquet:"name=close_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Open         float64  `parquet:"name=open, type=DOUBLE"`
	High         float64  `parquet:"name=high, type=DOUBLE"`
	Low          float64  `parquet:"name=low, type=DOUBLE"`
	Close        float64  `parquet:"name=close, type=DOUBLE"`
	Volume       float64  `parquet:"name=volume, type=DOUBLE"`
	QuoteVolume  float64  `parquet:"name=quote_volume, type=DOUBLE"`
	OpenInterest *float64 `parquet:"name=open_interest, type=DOUBLE, repetitiontype=OPTIONAL"`
	FundingRate  *float64 `parquet:"name=funding_rate, type=DOUBLE, repetitiontype=OPTIONAL"`
}

type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, fmt.Errorf("read not supported") }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

// encodeParquet flattens a snapshot into one row per candle.
func encodeParquet(snap models.MarketSnapshot, compression string) ([]byte, error) {
	mem := newMemFile()
	pw, err := writer.NewParquetWriter(mem, new(candleParquetRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("new parquet writer: %w", err)
	}

	switch strings.ToLower(compression) {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, coin := range snap.Data {
		exchanges := strings.Join(coin.Exchanges, ",")
		for _, c := range coin.Candles {
			rec := candleParquetRecord{
				Timeframe:    snap.Timeframe.String(),
				Symbol:       coin.Symbol,
				Exchanges:    exchanges,
				Category:     int32(coin.Category),
				OpenTime:     c.OpenTime,
				CloseTime:    c.CloseTime,
				Open:         c.Open,
				High:         c.High,
				Low:          c.Low,
				Close:        c.Close,
				Volume:       c.Volume,
				QuoteVolume:  c.QuoteVolume,
				OpenInterest: c.OpenInterest,
				FundingRate:  c.FundingRate,
			}
			if err := pw.Write(rec); err != nil {
				pw.WriteStop()
				return nil, fmt.Errorf("write parquet record: %w", err)
			}
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet: %w", err)
	}
	return mem.Bytes(), nil
}
