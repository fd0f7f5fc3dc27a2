// Package weather fetches forecasts and water temperatures for the
// territories the guide covers.
package weather

import (
	"context"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

type Provider interface {
	Current(ctx context.Context, location string) (*types.WeatherPayload, error)
	Forecast(ctx context.Context, location string, days int) (*types.WeatherPayload, error)
}

type WaterTemperatureProvider interface {
	Estimate(ctx context.Context, location, territory string) (*types.WaterTemperature, error)
}
