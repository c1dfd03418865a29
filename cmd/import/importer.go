package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sushiloyalty/loyalty-backend/internal/models"
	"github.com/sushiloyalty/loyalty-backend/internal/services"
	"github.com/sushiloyalty/loyalty-backend/internal/utils"
	"golang.org/x/exp/slog"
)

var requiredColumns = []string{"customeremail", "ordertotal", "externalorderid"}

// summary counts what an import did
type summary struct {
	Processed  int
	Credited   int
	Pending    int
	Duplicates int
	Failed     int
	Points     int
}

func (s summary) String() string {
	return fmt.Sprintf("processed=%d credited=%d pending=%d duplicates=%d failed=%d points=%d",
		s.Processed, s.Credited, s.Pending, s.Duplicates, s.Failed, s.Points)
}

type importOptions struct {
	StopOnError   bool
	ProgressEvery int
}

// importOrders replays historical order-completed events from CSV through
// the same path as the webhook, so re-running a file credits nothing twice.
func importOrders(ctx context.Context, svc services.LoyaltyService, r io.Reader, opts importOptions) (summary, error) {
	var sum summary

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return sum, errors.New("CSV file is empty")
	}
	if err != nil {
		return sum, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns, err := columnIndex(header)
	if err != nil {
		return sum, err
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("line %d: %w", line, err)
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		sum.Processed++
		event, err := parseRecord(record, columns)
		if err == nil {
			err = applyEvent(ctx, svc, event, &sum)
		}
		if err != nil {
			sum.Failed++
			slog.Warn("Skipping CSV record", "line", line, "error", err)
			if opts.StopOnError {
				return sum, fmt.Errorf("line %d: %w", line, err)
			}
		}

		if opts.ProgressEvery > 0 && sum.Processed%opts.ProgressEvery == 0 {
			slog.Info("Import progress", "summary", sum.String())
		}
	}
	return sum, nil
}

func applyEvent(ctx context.Context, svc services.LoyaltyService, event models.OrderCompletedEvent, sum *summary) error {
	result, err := svc.ApplyPurchase(ctx, event)
	if err != nil {
		return fmt.Errorf("order %s for %s: %w", event.ExternalOrderID, utils.MaskEmail(event.CustomerEmail), err)
	}
	switch {
	case result.Duplicate:
		sum.Duplicates++
	case result.Status == models.TransactionStatusCredited:
		sum.Credited++
		sum.Points += result.PointsEarned
	default:
		sum.Pending++
		sum.Points += result.PointsEarned
	}
	return nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("CSV header is missing column %q", name)
		}
	}
	return idx, nil
}

func parseRecord(record []string, columns map[string]int) (models.OrderCompletedEvent, error) {
	field := func(name string) string {
		i := columns[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	total, err := decimal.NewFromString(field("ordertotal"))
	if err != nil {
		return models.OrderCompletedEvent{}, fmt.Errorf("invalid orderTotal %q", field("ordertotal"))
	}
	orderID := field("externalorderid")
	if orderID == "" {
		// Without an order id the import could not be re-run safely.
		return models.OrderCompletedEvent{}, errors.New("externalOrderId is required for imports")
	}
	return models.OrderCompletedEvent{
		CustomerEmail:   field("customeremail"),
		OrderTotal:      total,
		ExternalOrderID: orderID,
	}, nil
}
