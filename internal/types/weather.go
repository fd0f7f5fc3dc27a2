package types

import "time"

type WeatherReading struct {
	Date            time.Time `json:"date"`
	TemperatureC    float64   `json:"temperature_c"`
	TemperatureMinC float64   `json:"temperature_min_c,omitempty"`
	TemperatureMaxC float64   `json:"temperature_max_c,omitempty"`
	PrecipitationMM float64   `json:"precipitation_mm"`
	WindSpeedKmh    float64   `json:"wind_speed_kmh"`
	WeatherCode     int       `json:"weather_code"`
	Description     string    `json:"description"`
}

type WeatherPayload struct {
	Location string           `json:"location"`
	Current  *WeatherReading  `json:"current,omitempty"`
	Forecast []WeatherReading `json:"forecast,omitempty"`
}

type WaterTemperature struct {
	Location        string    `json:"location"`
	WaterBody       string    `json:"water_body,omitempty"`
	TemperatureC    float64   `json:"temperature_c"`
	TemperatureMinC float64   `json:"temperature_min_c"`
	TemperatureMaxC float64   `json:"temperature_max_c"`
	Season          string    `json:"season"`
	Confidence      string    `json:"confidence"`
	Advice          string    `json:"advice,omitempty"`
	Source          string    `json:"source"`
	MeasuredAt      time.Time `json:"measured_at"`
}
