package waterfee

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueryWindow(t *testing.T) {
	testCases := []struct {
		window   QueryWindow
		text     string
		previous QueryWindow
	}{
		{
			window:   QueryWindow{Year: 2024, Month: time.March},
			text:     "2024/3",
			previous: QueryWindow{Year: 2024, Month: time.February},
		},
		{
			window:   QueryWindow{Year: 2024, Month: time.January},
			text:     "2024/1",
			previous: QueryWindow{Year: 2023, Month: time.December},
		},
		{
			window:   QueryWindow{Year: 2023, Month: time.December},
			text:     "2023/12",
			previous: QueryWindow{Year: 2023, Month: time.November},
		},
	}

	for _, test := range testCases {
		require.Equal(t, test.text, test.window.String())
		require.Equal(t, test.previous, test.window.Previous())

		parsed, err := ParseWindow(test.text)
		require.NoError(t, err)
		require.Equal(t, test.window, parsed)
	}
}

func TestParseWindow(t *testing.T) {
	window, err := ParseWindow(" 2024/03 ")
	require.NoError(t, err)
	require.Equal(t, QueryWindow{Year: 2024, Month: time.March}, window)

	for _, text := range []string{"", "2024", "2024/0", "2024/13", "abc/3", "0/3", "2024-03"} {
		_, err := ParseWindow(text)
		require.Error(t, err, text)
	}
}

func TestWindowOfUsesLocation(t *testing.T) {
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	// 2024-02-29 18:00 UTC is already March 1st in Shanghai
	instant := time.Date(2024, time.February, 29, 18, 0, 0, 0, time.UTC)
	require.Equal(t, QueryWindow{Year: 2024, Month: time.February}, WindowOf(instant))
	require.Equal(t, QueryWindow{Year: 2024, Month: time.March}, WindowOf(instant.In(shanghai)))
}
