package tapo

import (
	"context"
	"encoding/base64"
)

// PowerReader is the single capability the sampling and monitoring loops
// consume. The concrete Device satisfies it; tests substitute fakes.
type PowerReader interface {
	// CurrentPower returns the instantaneous power draw in watts.
	CurrentPower(ctx context.Context) (float64, error)
}

// CurrentPowerResult is the payload of get_current_power.
type CurrentPowerResult struct {
	CurrentPower uint64 `json:"current_power"` // Watts
}

// DeviceInfo is the payload of get_device_info.
type DeviceInfo struct {
	DeviceID    string `json:"device_id"`
	Type        string `json:"type"`
	Model       string `json:"model"`
	FWVersion   string `json:"fw_ver"`
	HWVersion   string `json:"hw_ver"`
	MAC         string `json:"mac"`
	IP          string `json:"ip"`
	SSID        string `json:"ssid"`     // base64 encoded
	Nickname    string `json:"nickname"` // base64 encoded
	RSSI        int    `json:"rssi"`
	SignalLevel int    `json:"signal_level"`
	DeviceOn    bool   `json:"device_on"`
	OnTime      int64  `json:"on_time"` // Seconds since the relay was switched on
	Overheated  bool   `json:"overheated"`
}

// DecodedNickname returns the user-assigned device name, which the device
// reports base64 encoded.
func (i *DeviceInfo) DecodedNickname() string {
	return decodeBase64Field(i.Nickname)
}

// DecodedSSID returns the WiFi network name, which the device reports
// base64 encoded.
func (i *DeviceInfo) DecodedSSID() string {
	return decodeBase64Field(i.SSID)
}

// EnergyUsage is the payload of get_energy_usage.
type EnergyUsage struct {
	TodayRuntime int64  `json:"today_runtime"` // Minutes
	MonthRuntime int64  `json:"month_runtime"` // Minutes
	TodayEnergy  int64  `json:"today_energy"`  // Watt-hours
	MonthEnergy  int64  `json:"month_energy"`  // Watt-hours
	LocalTime    string `json:"local_time"`
	CurrentPower int64  `json:"current_power"` // Milliwatts, unlike get_current_power
}

func decodeBase64Field(value string) string {
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return value
	}

	return string(decoded)
}
