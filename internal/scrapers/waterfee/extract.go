package waterfee

import (
	"context"
	"strconv"
	"strings"
	"waterbill/internal/components/telemetry"
	"waterbill/lib/textutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// markers identifying the list item of each field
const (
	MarkerBalance      = "余额"
	MarkerUnpaidCount  = "未缴费笔数"
	MarkerUnpaidAmount = "未缴费金额"
)

const (
	report_extract_balance       = "extract.balance"
	report_extract_unpaid_count  = "extract.unpaid-count"
	report_extract_unpaid_amount = "extract.unpaid-amount"
)

var meter = otel.Meter("waterbill/scrapers/waterfee")
var extractFailureCounter, _ = meter.Int64Counter("waterfee.extract_failures")

func countExtractFailure(field string) {
	extractFailureCounter.Add(
		context.Background(), 1,
		metric.WithAttributes(attribute.String("field", field)),
	)
}

// findItem returns the first item containing `marker`.
func findItem(items []string, marker string) (string, bool) {
	for _, item := range items {
		if strings.Contains(item, marker) {
			return item, true
		}
	}
	return "", false
}

// ParseDecimal keeps the digits and decimal points of `text` and parses them
// as a float, text without any of them is 0.
func ParseDecimal(text string) (float64, error) {
	digits := textutil.KeepDecimal(textutil.Narrow(text))
	if digits == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, err
	}
	return value, nil
}

// ParseCount keeps the digits of `text` and parses them as an integer, text
// without any digits is 0.
func ParseCount(text string) (int, error) {
	digits := textutil.KeepDigits(textutil.Narrow(text))
	if digits == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(digits)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func ExtractBalance(items []string) (float64, error) {
	item, ok := findItem(items, MarkerBalance)
	if !ok {
		return 0, nil
	}
	return ParseDecimal(item)
}

func ExtractUnpaidCount(items []string) (int, error) {
	item, ok := findItem(items, MarkerUnpaidCount)
	if !ok {
		return 0, nil
	}
	return ParseCount(item)
}

func ExtractUnpaidAmount(items []string) (float64, error) {
	item, ok := findItem(items, MarkerUnpaidAmount)
	if !ok {
		return 0, nil
	}
	return ParseDecimal(item)
}

// SnapshotFromItems extracts every field of a BillingSnapshot from the list
// item texts. A field that fails to parse is reported and left at 0, it never
// affects the other fields.
func SnapshotFromItems(items []string, tel telemetry.API) BillingSnapshot {
	var snapshot BillingSnapshot

	balance, err := ExtractBalance(items)
	if err != nil {
		tel.ReportWarning(report_extract_balance, err)
		countExtractFailure("balance")
	} else {
		snapshot.Balance = balance
	}

	count, err := ExtractUnpaidCount(items)
	if err != nil {
		tel.ReportWarning(report_extract_unpaid_count, err)
		countExtractFailure("unpaid_count")
	} else {
		snapshot.UnpaidCount = count
	}

	amount, err := ExtractUnpaidAmount(items)
	if err != nil {
		tel.ReportWarning(report_extract_unpaid_amount, err)
		countExtractFailure("unpaid_amount")
	} else {
		snapshot.UnpaidAmount = amount
	}

	return snapshot
}
