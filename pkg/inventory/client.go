// Package inventory talks to the dealer inventory search API (contract v2:
// nested listings[] with a dealer object per listing).
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const searchPath = "/search/v2/vehicles"

type SearchParams struct {
	Make        string
	Model       string
	Version     string
	ZipCode     string
	RadiusMiles int
}

type SearchArea struct {
	Zip    string `json:"zip"`
	Radius int    `json:"radius"`
	City   string `json:"city"`
	State  string `json:"state"`
}

type Dealer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

type FirstPhoto struct {
	Large string `json:"large"`
}

type Images struct {
	Large      []string   `json:"large"`
	FirstPhoto FirstPhoto `json:"firstPhoto"`
}

type Listing struct {
	ID               string  `json:"id"`
	VIN              string  `json:"vin"`
	Year             int     `json:"year"`
	Make             string  `json:"make"`
	Model            string  `json:"model"`
	Trim             string  `json:"trim"`
	Mileage          int     `json:"mileage"`
	ListPrice        float64 `json:"listPrice"`
	CurrentPrice     float64 `json:"currentPrice"`
	MSRP             float64 `json:"msrp"`
	MpgCity          float64 `json:"mpgCity"`
	MpgHighway       float64 `json:"mpgHighway"`
	MpgCombined      float64 `json:"mpgCombined"`
	DistanceToDealer float64 `json:"distanceToDealer"`
	VdpURL           string  `json:"vdpUrl"`
	Images           Images  `json:"images"`
	Dealer           *Dealer `json:"dealer"`
}

type SearchResponse struct {
	SearchArea SearchArea `json:"searchArea"`
	Listings   []Listing  `json:"listings"`
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	rows    int
	http    *http.Client
}

func NewClient(baseURL string, rows int, timeout time.Duration) *Client {
	if rows <= 0 {
		rows = 24
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rows:    rows,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) searchURL(p SearchParams) string {
	params := url.Values{}
	params.Set("zip", p.ZipCode)
	params.Set("radius", strconv.Itoa(p.RadiusMiles))
	params.Set("make", p.Make)
	params.Set("model", p.Model)
	if p.Version != "" {
		params.Set("trim", p.Version)
	}
	params.Set("vehicleCondition", "NEW")
	params.Set("sort", "BEST")
	params.Set("rows", strconv.Itoa(c.rows))
	return c.baseURL + searchPath + "?" + params.Encode()
}

// Search returns the raw listings for p. A non-2xx status or a payload
// without a listings array is an error.
func (c *Client) Search(ctx context.Context, p SearchParams) (*SearchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(p), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("inventory API returned status %d: %s", resp.StatusCode, truncate(string(body), 256))
	}

	var raw struct {
		SearchArea SearchArea       `json:"searchArea"`
		Listings   *json.RawMessage `json:"listings"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if raw.Listings == nil {
		return nil, fmt.Errorf("parse response: listings array missing")
	}
	out := &SearchResponse{SearchArea: raw.SearchArea}
	if err := json.Unmarshal(*raw.Listings, &out.Listings); err != nil {
		return nil, fmt.Errorf("parse listings: %w", err)
	}
	return out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
