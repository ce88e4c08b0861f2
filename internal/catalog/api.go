package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultAPITimeout = 10 * time.Second

// APISource queries a remote vehicle catalog over HTTP. The endpoint is
// expected to answer GET {baseURL}/vehicles?make=..&model=..&year=.. with a
// JSON array of matching vehicles.
type APISource struct {
	baseURL string
	client  *http.Client
}

// NewAPISource builds a source against the given base URL. A nil client gets
// a default with a sane timeout.
func NewAPISource(baseURL string, client *http.Client) *APISource {
	if client == nil {
		client = &http.Client{Timeout: defaultAPITimeout}
	}
	return &APISource{baseURL: baseURL, client: client}
}

// Lookup queries the remote catalog and returns the first match.
func (s *APISource) Lookup(ctx context.Context, vehicleMake, model string, year int) (*Vehicle, error) {
	query := url.Values{}
	query.Set("make", vehicleMake)
	query.Set("model", model)
	if year != 0 {
		query.Set("year", strconv.Itoa(year))
	}

	endpoint := fmt.Sprintf("%s/vehicles?%s", s.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s %d: %w", vehicleMake, model, year, ErrVehicleNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var matches []Vehicle
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%s %s %d: %w", vehicleMake, model, year, ErrVehicleNotFound)
	}

	return &matches[0], nil
}
