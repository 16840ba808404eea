package waterfee

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormTokens are the ASP.NET hidden fields of the billing form, the site
// rejects a submission whose tokens were already used so they are fetched
// again before every submission.
type FormTokens struct {
	ViewState          string
	ViewStateGenerator string
	EventValidation    string
}

// QueryWindow is the billing month used as both the start and the end of a
// query.
type QueryWindow struct {
	Year  int
	Month time.Month
}

// WindowOf returns the window containing `t`, in t's location.
func WindowOf(t time.Time) QueryWindow {
	return QueryWindow{Year: t.Year(), Month: t.Month()}
}

// Previous returns the month before w, January rolls back to December of the
// year before.
func (w QueryWindow) Previous() QueryWindow {
	if w.Month == time.January {
		return QueryWindow{Year: w.Year - 1, Month: time.December}
	}
	return QueryWindow{Year: w.Year, Month: w.Month - 1}
}

// String formats the window the way the site expects it, year and month
// without padding, ex. "2024/3".
func (w QueryWindow) String() string {
	return fmt.Sprintf("%d/%d", w.Year, int(w.Month))
}

// ParseWindow parses "2024/3" (or "2024/03") into a QueryWindow.
func ParseWindow(text string) (QueryWindow, error) {
	yearText, monthText, ok := strings.Cut(strings.TrimSpace(text), "/")
	if !ok {
		return QueryWindow{}, fmt.Errorf("invalid window %q: expected <year>/<month>", text)
	}
	year, err := strconv.Atoi(yearText)
	if err != nil || year <= 0 {
		return QueryWindow{}, fmt.Errorf("invalid window %q: bad year", text)
	}
	month, err := strconv.Atoi(monthText)
	if err != nil || month < 1 || month > 12 {
		return QueryWindow{}, fmt.Errorf("invalid window %q: bad month", text)
	}
	return QueryWindow{Year: year, Month: time.Month(month)}, nil
}

// BillingSnapshot is what one form submission yields. Fields that could not
// be found (or parsed) are zero.
type BillingSnapshot struct {
	Balance      float64 `json:"balance"`
	UnpaidCount  int     `json:"unpaid_count"`
	UnpaidAmount float64 `json:"unpaid_amount"`
}
