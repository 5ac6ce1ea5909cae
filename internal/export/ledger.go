package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/seoulquant/arbstreamer/internal/domain"
)

// LedgerExporter archives the final ledger record of a settled session as a
// CSV object, keyed by market pair and settlement date.
type LedgerExporter struct {
	client *S3Client
	prefix string
	logger *slog.Logger
}

// NewLedgerExporter creates a LedgerExporter writing under the given key
// prefix, e.g. "ledger".
func NewLedgerExporter(client *S3Client, prefix string, logger *slog.Logger) *LedgerExporter {
	return &LedgerExporter{
		client: client,
		prefix: prefix,
		logger: logger.With(slog.String("component", "ledger_exporter")),
	}
}

// Export uploads the record. The object key embeds pair, currency, and
// settlement timestamp so repeated sessions never overwrite each other.
func (e *LedgerExporter) Export(ctx context.Context, rec domain.RevenueLedgerRecord) error {
	body, err := ledgerCSV(rec)
	if err != nil {
		return fmt.Errorf("export: render ledger csv: %w", err)
	}

	settledAt := time.Unix(rec.Time, 0).UTC()
	key := fmt.Sprintf("%s/%s-%s-%s/%s.csv",
		e.prefix, rec.MM1Name, rec.MM2Name, rec.TargetCurrency,
		settledAt.Format("2006-01-02T15-04-05Z"),
	)

	if err := e.client.Put(ctx, key, bytes.NewReader(body), "text/csv"); err != nil {
		return err
	}
	e.logger.Info("ledger archived",
		slog.String("key", key),
		slog.Int("bytes", len(body)),
	)
	return nil
}

func ledgerCSV(rec domain.RevenueLedgerRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"id", "time", "mode", "target_currency", "mm1_name", "mm2_name",
		"initial_krw_mm1", "initial_krw_mm2", "initial_krw_total",
		"initial_coin_mm1", "initial_coin_mm2", "initial_coin_total",
		"current_krw_mm1", "current_krw_mm2", "current_krw_total",
		"current_coin_mm1", "current_coin_mm2", "current_coin_total",
	}
	row := []string{
		rec.ID,
		strconv.FormatInt(rec.Time, 10),
		string(rec.Mode),
		rec.TargetCurrency,
		rec.MM1Name,
		rec.MM2Name,
		f(rec.InitialBalance.KRW.MM1), f(rec.InitialBalance.KRW.MM2), f(rec.InitialBalance.KRW.Total),
		f(rec.InitialBalance.Coin.MM1), f(rec.InitialBalance.Coin.MM2), f(rec.InitialBalance.Coin.Total),
		f(rec.CurrentBalance.KRW.MM1), f(rec.CurrentBalance.KRW.MM2), f(rec.CurrentBalance.KRW.Total),
		f(rec.CurrentBalance.Coin.MM1), f(rec.CurrentBalance.Coin.MM2), f(rec.CurrentBalance.Coin.Total),
	}

	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.Write(row); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
