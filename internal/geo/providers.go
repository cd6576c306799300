package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardbook/models"
)

const (
	ProviderIPAPICo  = "ipapi.co"
	ProviderIPAPICom = "ip-api.com"
	ProviderGoogle   = "google-geocoding"

	userAgent       = "cardbook-geo/1.0"
	maxResponseSize = 1 << 20
)

var (
	// ErrProviderUnavailable marks a provider that is not configured.
	ErrProviderUnavailable = errors.New("geo provider unavailable")
	// ErrMalformedResponse marks a 2xx reply that could not be mapped to a Location.
	ErrMalformedResponse = errors.New("malformed geo provider response")
)

// Provider resolves one IP through a single external API.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, ip string) (*models.Location, error)
}

// getJSON performs a GET and decodes a JSON body. Any non-2xx status is an error.
func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return fmt.Errorf("unexpected status: HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// wellFormed checks that a mapped location carries usable coordinates and a country.
func wellFormed(loc *models.Location) error {
	if loc == nil {
		return ErrMalformedResponse
	}
	if loc.Country == "" && loc.CountryCode == "" {
		return fmt.Errorf("%w: missing country", ErrMalformedResponse)
	}
	if math.IsNaN(loc.Latitude) || math.IsNaN(loc.Longitude) ||
		math.Abs(loc.Latitude) > 90 || math.Abs(loc.Longitude) > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrMalformedResponse)
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return fmt.Errorf("%w: missing coordinates", ErrMalformedResponse)
	}
	return nil
}

// IPAPICo is the primary free provider (https://ipapi.co).
type IPAPICo struct {
	client  *http.Client
	baseURL string
}

func NewIPAPICo(client *http.Client, baseURL string) *IPAPICo {
	return &IPAPICo{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *IPAPICo) Name() string { return ProviderIPAPICo }

type ipapiCoResponse struct {
	Error       bool     `json:"error"`
	Reason      string   `json:"reason"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	CountryName string   `json:"country_name"`
	CountryCode string   `json:"country_code"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Timezone    string   `json:"timezone"`
}

func (p *IPAPICo) Lookup(ctx context.Context, ip string) (*models.Location, error) {
	var body ipapiCoResponse
	if err := getJSON(ctx, p.client, fmt.Sprintf("%s/%s/json/", p.baseURL, url.PathEscape(ip)), &body); err != nil {
		return nil, err
	}
	if body.Error {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, body.Reason)
	}
	if body.Latitude == nil || body.Longitude == nil {
		return nil, fmt.Errorf("%w: missing coordinates", ErrMalformedResponse)
	}

	loc := &models.Location{
		Latitude:    *body.Latitude,
		Longitude:   *body.Longitude,
		City:        body.City,
		Region:      body.Region,
		Country:     body.CountryName,
		CountryCode: strings.ToUpper(body.CountryCode),
		Timezone:    optionalString(body.Timezone),
		Provider:    ProviderIPAPICo,
	}
	return loc, wellFormed(loc)
}

// IPAPICom is the secondary free provider (http://ip-api.com).
type IPAPICom struct {
	client  *http.Client
	baseURL string
}

func NewIPAPICom(client *http.Client, baseURL string) *IPAPICom {
	return &IPAPICom{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *IPAPICom) Name() string { return ProviderIPAPICom }

type ipAPIComResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	Country     string   `json:"country"`
	CountryCode string   `json:"countryCode"`
	RegionName  string   `json:"regionName"`
	City        string   `json:"city"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	Timezone    string   `json:"timezone"`
}

const ipAPIComFields = "status,message,country,countryCode,regionName,city,lat,lon,timezone"

func (p *IPAPICom) Lookup(ctx context.Context, ip string) (*models.Location, error) {
	endpoint := fmt.Sprintf("%s/json/%s?fields=%s", p.baseURL, url.PathEscape(ip), ipAPIComFields)

	var body ipAPIComResponse
	if err := getJSON(ctx, p.client, endpoint, &body); err != nil {
		return nil, err
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("%w: status %q %s", ErrMalformedResponse, body.Status, body.Message)
	}
	if body.Lat == nil || body.Lon == nil {
		return nil, fmt.Errorf("%w: missing coordinates", ErrMalformedResponse)
	}

	loc := &models.Location{
		Latitude:    *body.Lat,
		Longitude:   *body.Lon,
		City:        body.City,
		Region:      body.RegionName,
		Country:     body.Country,
		CountryCode: strings.ToUpper(body.CountryCode),
		Timezone:    optionalString(body.Timezone),
		Provider:    ProviderIPAPICom,
	}
	return loc, wellFormed(loc)
}

// GoogleReverseGeocoder is the paid last-resort tier. It takes coarse
// coordinates from a free provider and asks the Google Geocoding API for the
// authoritative city, region and country breakdown.
type GoogleReverseGeocoder struct {
	client   *http.Client
	endpoint string
	apiKey   string
	coarse   Provider
}

func NewGoogleReverseGeocoder(client *http.Client, endpoint, apiKey string, coarse Provider) *GoogleReverseGeocoder {
	return &GoogleReverseGeocoder{client: client, endpoint: endpoint, apiKey: apiKey, coarse: coarse}
}

func (p *GoogleReverseGeocoder) Name() string { return ProviderGoogle }

type googleGeocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

func (p *GoogleReverseGeocoder) Lookup(ctx context.Context, ip string) (*models.Location, error) {
	if p.apiKey == "" || p.coarse == nil {
		return nil, ErrProviderUnavailable
	}

	coarse, err := p.coarse.Lookup(ctx, ip)
	if err != nil {
		return nil, fmt.Errorf("coarse coordinates: %w", err)
	}

	query := url.Values{}
	query.Set("latlng", fmt.Sprintf("%f,%f", coarse.Latitude, coarse.Longitude))
	query.Set("key", p.apiKey)

	var body googleGeocodeResponse
	if err := getJSON(ctx, p.client, p.endpoint+"?"+query.Encode(), &body); err != nil {
		return nil, err
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("%w: status %q %s", ErrMalformedResponse, body.Status, body.ErrorMessage)
	}

	loc := &models.Location{
		Latitude:  coarse.Latitude,
		Longitude: coarse.Longitude,
		Timezone:  coarse.Timezone,
		Provider:  ProviderGoogle,
	}
	for _, result := range body.Results {
		for _, component := range result.AddressComponents {
			for _, kind := range component.Types {
				switch {
				case kind == "locality" && loc.City == "":
					loc.City = component.LongName
				case kind == "postal_town" && loc.City == "":
					loc.City = component.LongName
				case kind == "administrative_area_level_1" && loc.Region == "":
					loc.Region = component.LongName
				case kind == "country" && loc.Country == "":
					loc.Country = component.LongName
					loc.CountryCode = strings.ToUpper(component.ShortName)
				}
			}
		}
	}
	return loc, wellFormed(loc)
}

// NewHTTPClient returns the client shared by all providers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
