package waterfee

import (
	"math/rand"
	"strconv"
	"testing"
	"waterbill/internal/components/telemetry"
	"waterbill/lib/htmlutil"
	"waterbill/lib/testutil"

	_ "embed"

	"github.com/stretchr/testify/require"
)

//go:embed testdata/result_page.html
var resultPage []byte

//go:embed testdata/form_page.html
var formPage []byte

func TestParseDecimal(t *testing.T) {
	testCases := []struct {
		text   string
		expect float64
		fails  bool
	}{
		{text: "本期余额:12.50元", expect: 12.50},
		{text: "本期余额： 128.35 元", expect: 128.35},
		{text: "余额：１２．５元", expect: 12.5},
		{text: "余额:0", expect: 0},
		{text: "余额:无", expect: 0},
		{text: "", expect: 0},
		{text: "余额:-3.10", expect: 3.10},
		{text: "余额:1.2.3", fails: true},
		{text: "余额:.", fails: true},
	}

	for _, test := range testCases {
		value, err := ParseDecimal(test.text)
		if test.fails {
			require.Error(t, err, test.text)
			continue
		}
		require.NoError(t, err, test.text)
		require.InDelta(t, test.expect, value, 1e-9, test.text)
	}
}

func TestParseCount(t *testing.T) {
	testCases := []struct {
		text   string
		expect int
		fails  bool
	}{
		{text: "未缴费笔数:2笔", expect: 2},
		{text: "未缴费笔数:无", expect: 0},
		{text: "未缴费笔数：１２笔", expect: 12},
		{text: "未缴费笔数:1.0笔", expect: 10},
		{text: "未缴费笔数:99999999999999999999999", fails: true},
	}

	for _, test := range testCases {
		value, err := ParseCount(test.text)
		if test.fails {
			require.Error(t, err, test.text)
			continue
		}
		require.NoError(t, err, test.text)
		require.Equal(t, test.expect, value, test.text)
	}
}

func TestExtractMissingMarkersAreZero(t *testing.T) {
	items := []string{"户号：0123456", "户名：张**", "抄表日期：2024/3", ""}

	balance, err := ExtractBalance(items)
	require.NoError(t, err)
	require.Equal(t, 0.0, balance)

	count, err := ExtractUnpaidCount(items)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	amount, err := ExtractUnpaidAmount(items)
	require.NoError(t, err)
	require.Equal(t, 0.0, amount)

	require.Equal(t, BillingSnapshot{}, SnapshotFromItems(nil, telemetry.NewRecorder()))
}

func TestExtractUsesFirstMatchingItem(t *testing.T) {
	items := []string{
		"上期余额:1.00元",
		"本期余额:2.00元",
		"未缴费笔数:3笔",
		"未缴费笔数:4笔",
	}

	balance, err := ExtractBalance(items)
	require.NoError(t, err)
	require.Equal(t, 1.0, balance)

	count, err := ExtractUnpaidCount(items)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestExtractNoiseProperty(t *testing.T) {
	rndm := rand.New(rand.NewSource(20240301))

	for range 500 {
		whole := testutil.RandomDigits(rndm, 1+rndm.Intn(5))
		fraction := testutil.RandomDigits(rndm, rndm.Intn(3))
		number := whole
		if fraction != "" {
			number += "." + fraction
		}
		expectedDecimal, err := strconv.ParseFloat(number, 64)
		require.NoError(t, err)
		expectedCount, err := strconv.Atoi(whole)
		require.NoError(t, err)

		noisy := testutil.Interleave(rndm, number, 3)
		noisyCount := testutil.Interleave(rndm, whole, 3)
		items := []string{
			testutil.RandomNoise(rndm, 5),
			MarkerBalance + noisy,
			testutil.RandomNoise(rndm, 5) + MarkerUnpaidCount + noisyCount,
			MarkerUnpaidAmount + noisy,
		}

		snapshot := SnapshotFromItems(items, telemetry.NewRecorder())
		require.InDelta(t, expectedDecimal, snapshot.Balance, 1e-9, items[1])
		require.Equal(t, expectedCount, snapshot.UnpaidCount, items[2])
		require.InDelta(t, expectedDecimal, snapshot.UnpaidAmount, 1e-9, items[3])
	}
}

func TestSnapshotFieldsAreIsolated(t *testing.T) {
	rec := telemetry.NewRecorder()
	snapshot := SnapshotFromItems([]string{
		"本期余额:12.5.0元",
		"未缴费笔数:2笔",
		"未缴费金额:30.00元",
	}, rec)

	require.Equal(t, BillingSnapshot{
		Balance:      0,
		UnpaidCount:  2,
		UnpaidAmount: 30,
	}, snapshot)
	require.True(t, rec.Has(telemetry.KindWarning, report_extract_balance))
	require.False(t, rec.Has(telemetry.KindWarning, report_extract_unpaid_count))
	require.False(t, rec.Has(telemetry.KindWarning, report_extract_unpaid_amount))
}

func TestSnapshotFromResultPage(t *testing.T) {
	doc, err := htmlutil.ParseDocument(resultPage, "text/html; charset=utf-8")
	require.NoError(t, err)

	items := htmlutil.Texts(doc.Find(listSelector).Find("li"))
	require.Len(t, items, 6)

	snapshot := SnapshotFromItems(items, telemetry.NewRecorder())
	require.Equal(t, BillingSnapshot{
		Balance:      128.35,
		UnpaidCount:  1,
		UnpaidAmount: 46.20,
	}, snapshot)

	tokens, missing := tokensFromDocument(doc)
	require.Empty(t, missing)
	require.Equal(t, "51114EE5", tokens.ViewStateGenerator)
	require.Equal(t, "/wEPDwUJMTMwNTkwMjI4ZGRzSpW4QQXIKjbNWAPa1WXtaK/mwTcYmTjvG8fbktlMgQ==", tokens.ViewState)
}

func TestTokensFromFormPageMissingEventValidation(t *testing.T) {
	doc, err := htmlutil.ParseDocument(formPage, "")
	require.NoError(t, err)

	_, missing := tokensFromDocument(doc)
	require.Equal(t, []string{fieldEventValidation}, missing)
}

func FuzzParseDecimal(f *testing.F) {
	f.Add("本期余额:12.50元")
	f.Add("余额：１２．５元")
	f.Add("1.2.3")
	f.Add("")

	f.Fuzz(func(t *testing.T, text string) {
		value, err := ParseDecimal(text)
		if err != nil {
			require.Equal(t, 0.0, value)
			return
		}
		require.GreaterOrEqual(t, value, 0.0)

		count, err := ParseCount(text)
		if err == nil {
			require.GreaterOrEqual(t, count, 0)
		}
	})
}
