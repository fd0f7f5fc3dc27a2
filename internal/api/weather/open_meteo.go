package weather

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const (
	DefaultOpenMeteoBaseURL = "https://api.open-meteo.com"
	DefaultTimeout          = 10 * time.Second
	DefaultForecastDays     = 5

	maxForecastDays = 14
	timezone        = "Europe/Paris"
)

var _ Provider = (*OpenMeteoClient)(nil)

type currentResponse struct {
	Current struct {
		Time          string  `json:"time"`
		Temperature   float64 `json:"temperature_2m"`
		Precipitation float64 `json:"precipitation"`
		WeatherCode   int     `json:"weather_code"`
		WindSpeed     float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

type dailyResponse struct {
	Daily struct {
		Time             []string  `json:"time"`
		WeatherCode      []int     `json:"weather_code"`
		TemperatureMax   []float64 `json:"temperature_2m_max"`
		TemperatureMin   []float64 `json:"temperature_2m_min"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
		WindSpeedMax     []float64 `json:"wind_speed_10m_max"`
	} `json:"daily"`
}

type openMeteoError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// OpenMeteoClient reads current conditions and daily forecasts from the
// Open-Meteo forecast API.
type OpenMeteoClient struct {
	client *resty.Client
	logger *slog.Logger
}

func NewOpenMeteoClient(baseURL string, timeout time.Duration, logger *slog.Logger) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &OpenMeteoClient{client: client, logger: logger}
}

func (c *OpenMeteoClient) Current(ctx context.Context, location string) (*types.WeatherPayload, error) {
	p, _ := resolve(location)
	ctx, span := otel.Tracer("Weather").Start(ctx, "OpenMeteo.Current", trace.WithAttributes(
		attribute.String("weather.location", p.name),
	))
	defer span.End()

	var out currentResponse
	err := c.get(ctx, p, map[string]string{
		"current": "temperature_2m,precipitation,weather_code,wind_speed_10m",
	}, &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, err
	}

	observed, _ := time.Parse("2006-01-02T15:04", out.Current.Time)
	return &types.WeatherPayload{
		Location: p.name,
		Current: &types.WeatherReading{
			Date:            observed,
			TemperatureC:    out.Current.Temperature,
			PrecipitationMM: out.Current.Precipitation,
			WindSpeedKmh:    out.Current.WindSpeed,
			WeatherCode:     out.Current.WeatherCode,
			Description:     Describe(out.Current.WeatherCode),
		},
	}, nil
}

func (c *OpenMeteoClient) Forecast(ctx context.Context, location string, days int) (*types.WeatherPayload, error) {
	if days <= 0 {
		days = DefaultForecastDays
	}
	days = min(days, maxForecastDays)
	p, _ := resolve(location)
	ctx, span := otel.Tracer("Weather").Start(ctx, "OpenMeteo.Forecast", trace.WithAttributes(
		attribute.String("weather.location", p.name),
		attribute.Int("weather.days", days),
	))
	defer span.End()

	var out dailyResponse
	err := c.get(ctx, p, map[string]string{
		"daily":         "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,wind_speed_10m_max",
		"forecast_days": strconv.Itoa(days),
	}, &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, err
	}

	d := out.Daily
	payload := &types.WeatherPayload{Location: p.name}
	for i, day := range d.Time {
		date, err := time.Parse(time.DateOnly, day)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping forecast day with bad date", slog.String("date", day))
			continue
		}
		r := types.WeatherReading{
			Date:            date,
			TemperatureMinC: at(d.TemperatureMin, i),
			TemperatureMaxC: at(d.TemperatureMax, i),
			PrecipitationMM: at(d.PrecipitationSum, i),
			WindSpeedKmh:    at(d.WindSpeedMax, i),
		}
		r.TemperatureC = (r.TemperatureMinC + r.TemperatureMaxC) / 2
		if i < len(d.WeatherCode) {
			r.WeatherCode = d.WeatherCode[i]
		}
		r.Description = Describe(r.WeatherCode)
		payload.Forecast = append(payload.Forecast, r)
	}
	return payload, nil
}

func (c *OpenMeteoClient) get(ctx context.Context, p place, params map[string]string, out any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("latitude", strconv.FormatFloat(p.coords.Latitude, 'f', 6, 64)).
		SetQueryParam("longitude", strconv.FormatFloat(p.coords.Longitude, 'f', 6, 64)).
		SetQueryParam("timezone", timezone).
		SetResult(out).
		SetError(&openMeteoError{}).
		Get("/v1/forecast")
	if err != nil {
		return fmt.Errorf("%w: open-meteo: %v", types.ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		reason := resp.String()
		if apiErr, ok := resp.Error().(*openMeteoError); ok && apiErr.Reason != "" {
			reason = apiErr.Reason
		}
		return fmt.Errorf("%w: open-meteo: status %d: %s", types.ErrProviderUnavailable, resp.StatusCode(), reason)
	}
	return nil
}

func at(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

// Describe turns a WMO weather code into a short French description.
func Describe(code int) string {
	switch {
	case code == 0:
		return "Ciel dégagé"
	case code <= 2:
		return "Peu nuageux"
	case code == 3:
		return "Couvert"
	case code == 45 || code == 48:
		return "Brouillard"
	case code >= 51 && code <= 57:
		return "Bruine"
	case code >= 61 && code <= 67:
		return "Pluie"
	case code >= 71 && code <= 77:
		return "Neige"
	case code >= 80 && code <= 82:
		return "Averses"
	case code == 85 || code == 86:
		return "Averses de neige"
	case code >= 95:
		return "Orage"
	default:
		return "Conditions variables"
	}
}
