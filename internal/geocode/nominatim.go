package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/movitrak/avl/internal/models"
)

// NominatimBackend reverse geocodes through a Nominatim (OpenStreetMap)
// instance. Requests against the public instance are rate limited to one per
// second, per its usage policy.
type NominatimBackend struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

// NewNominatimBackend creates a backend against the given base URL, e.g.
// "https://nominatim.openstreetmap.org".
func NewNominatimBackend(baseURL string, logger *zap.Logger) *NominatimBackend {
	return &NominatimBackend{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road    string `json:"road"`
		Suburb  string `json:"suburb"`
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		County  string `json:"county"`
		State   string `json:"state"`
	} `json:"address"`
}

// ReverseGeocode resolves coordinates into address/city/department.
func (b *NominatimBackend) ReverseGeocode(ctx context.Context, lat, lon float64) (*models.Geolocation, error) {
	b.throttle()

	apiURL := fmt.Sprintf("%s/reverse?lat=%.6f&lon=%.6f&format=json&accept-language=es",
		b.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "avl/1.0 (fleet telemetry processor)")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// The city may come back in city/town/village depending on the place.
	city := result.Address.City
	if city == "" {
		city = result.Address.Town
	}
	if city == "" {
		city = result.Address.Village
	}

	address := result.Address.Road
	if address == "" {
		address = result.DisplayName
	}

	info := &models.Geolocation{
		Address:    address,
		City:       city,
		Department: result.Address.State,
	}

	b.logger.Debug("geocoded via nominatim",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.String("address", info.Address),
		zap.String("city", info.City))

	return info, nil
}

func (b *NominatimBackend) throttle() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if elapsed := time.Since(b.lastRequest); elapsed < time.Second {
		time.Sleep(time.Second - elapsed)
	}
	b.lastRequest = time.Now()
}
