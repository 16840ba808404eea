package host

import (
	"fmt"
	"time"
)

const lastUpdateLayout = "2006-01-02 15:04:05"

const (
	SensorBalance      = "balance"
	SensorConsumption  = "consumption"
	SensorUnpaidCount  = "unpaid_count"
	SensorUnpaidAmount = "unpaid_amount"
)

type SensorAttributes struct {
	AccountNumber string `json:"account_number"`
	Month         string `json:"month"`
	LastUpdate    string `json:"last_update"`
}

// Sensor is one named reading as it is shown to the user.
type Sensor struct {
	Key        string           `json:"key"`
	Name       string           `json:"name"`
	UniqueId   string           `json:"unique_id"`
	Unit       string           `json:"unit"`
	Icon       string           `json:"icon"`
	Value      float64          `json:"value"`
	Available  bool             `json:"available"`
	Stale      bool             `json:"stale"`
	Attributes SensorAttributes `json:"attributes"`
}

// Title is the display name of the account.
func Title(account string) string {
	return fmt.Sprintf("水费账户 %s", account)
}

func formatLastUpdate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(lastUpdateLayout)
}

// Sensors derives the four sensors of an account from its state. Values are
// 0 until a reading exists.
func Sensors(account string, state State) []Sensor {
	reading := state.Reading
	lastUpdate := formatLastUpdate(state.LastSuccess)

	sensor := func(key, name, unit, icon, month string, value float64) Sensor {
		return Sensor{
			Key:       key,
			Name:      name,
			UniqueId:  fmt.Sprintf("%s_%s", account, key),
			Unit:      unit,
			Icon:      icon,
			Value:     value,
			Available: state.HasReading,
			Stale:     state.Stale,
			Attributes: SensorAttributes{
				AccountNumber: account,
				Month:         month,
				LastUpdate:    lastUpdate,
			},
		}
	}

	return []Sensor{
		sensor(SensorBalance, "水费余额", "元", "mdi:water", reading.CurrentMonth, reading.CurrentBalance),
		sensor(SensorConsumption, "上月水费消费", "元", "mdi:water-percent", reading.LastMonth, reading.LastMonthConsumption),
		sensor(SensorUnpaidCount, "未缴费笔数", "笔", "mdi:alert-circle", reading.CurrentMonth, float64(reading.UnpaidCount)),
		sensor(SensorUnpaidAmount, "未缴费金额", "元", "mdi:alert-circle-outline", reading.CurrentMonth, reading.UnpaidAmount),
	}
}
