package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cardbook/internal/config"
	"cardbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	calls atomic.Int32
	fn    func(ip string) (*models.Location, error)
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Lookup(_ context.Context, ip string) (*models.Location, error) {
	s.calls.Add(1)
	return s.fn(ip)
}

func failing(name string) *stubProvider {
	return &stubProvider{name: name, fn: func(string) (*models.Location, error) {
		return nil, errors.New("HTTP 503")
	}}
}

func answering(name, city string) *stubProvider {
	return &stubProvider{name: name, fn: func(string) (*models.Location, error) {
		return &models.Location{Latitude: 1, Longitude: 1, City: city, Country: "X", CountryCode: "XC", Provider: name}, nil
	}}
}

func TestResolver_PrivateAddressesNeverCallProviders(t *testing.T) {
	p := answering("p1", "Nowhere")
	r := NewResolver(NewMemoryCache(10, time.Hour), p)

	for _, ip := range []string{"127.0.0.1", "10.0.0.5", "172.16.4.4", "172.31.0.1", "192.168.0.10", "::1", "::ffff:192.168.1.1", "garbage", ""} {
		assert.Nil(t, r.Resolve(context.Background(), ip), ip)
	}
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestResolver_FallbackOrder(t *testing.T) {
	p1, p2, p3 := failing("p1"), failing("p2"), answering("p3", "Tembisa")
	r := NewResolver(NewMemoryCache(10, time.Hour), p1, p2, p3)

	loc := r.Resolve(context.Background(), "196.25.1.1")
	require.NotNil(t, loc)
	assert.Equal(t, "p3", loc.Provider)
	assert.Equal(t, int32(1), p1.calls.Load())
	assert.Equal(t, int32(1), p2.calls.Load(), "a failed tier is not retried")
	assert.Equal(t, int32(1), p3.calls.Load())
	assert.False(t, loc.ResolvedAt.IsZero())
}

func TestResolver_FirstSuccessWins(t *testing.T) {
	p1, p2 := failing("p1"), answering("p2", "Pretoria")
	p3 := answering("p3", "Tembisa")
	r := NewResolver(NewMemoryCache(10, time.Hour), p1, p2, p3)

	loc := r.Resolve(context.Background(), "196.25.1.1")
	require.NotNil(t, loc)
	assert.Equal(t, "Pretoria", loc.City)
	assert.Equal(t, int32(0), p3.calls.Load())
}

func TestResolver_AllProvidersFail(t *testing.T) {
	panicking := &stubProvider{name: "p2", fn: func(string) (*models.Location, error) { panic("boom") }}
	empty := &stubProvider{name: "p3", fn: func(string) (*models.Location, error) { return nil, nil }}
	cache := NewMemoryCache(10, time.Hour)
	r := NewResolver(cache, failing("p1"), panicking, empty)

	assert.NotPanics(t, func() {
		assert.Nil(t, r.Resolve(context.Background(), "196.25.1.1"))
	})
	assert.Equal(t, 0, cache.Len(), "failures are not cached")
}

func TestResolver_CachesByNormalizedIP(t *testing.T) {
	p := answering("p1", "Tembisa")
	r := NewResolver(NewMemoryCache(10, time.Hour), p)

	first := r.Resolve(context.Background(), "::ffff:196.25.1.1")
	second := r.Resolve(context.Background(), "196.25.1.1")

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.City, second.City)
	assert.Equal(t, int32(1), p.calls.Load())

	// Callers get their own copy.
	first.City = "mutated"
	assert.Equal(t, "Tembisa", r.Resolve(context.Background(), "196.25.1.1").City)
}

func TestResolver_ConcurrentFirstLookupsShareOneCall(t *testing.T) {
	release := make(chan struct{})
	p := &stubProvider{name: "p1", fn: func(string) (*models.Location, error) {
		<-release
		return &models.Location{Latitude: 1, Longitude: 1, Country: "X"}, nil
	}}
	r := NewResolver(NewMemoryCache(10, time.Hour), p)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotNil(t, r.Resolve(context.Background(), "196.25.1.1"))
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
}

// fakeProviders serves the three provider APIs from one httptest server and
// counts every request.
type fakeProviders struct {
	server  *httptest.Server
	calls   atomic.Int32
	ipapiCo http.HandlerFunc
	ipAPI   http.HandlerFunc
	google  http.HandlerFunc
}

func newFakeProviders(t *testing.T) *fakeProviders {
	f := &fakeProviders{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ipapi/", func(w http.ResponseWriter, r *http.Request) { f.calls.Add(1); f.ipapiCo(w, r) })
	mux.HandleFunc("/ipapicom/", func(w http.ResponseWriter, r *http.Request) { f.calls.Add(1); f.ipAPI(w, r) })
	mux.HandleFunc("/google", func(w http.ResponseWriter, r *http.Request) { f.calls.Add(1); f.google(w, r) })
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	unavailable := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }
	f.ipapiCo, f.ipAPI, f.google = unavailable, unavailable, unavailable
	return f
}

func (f *fakeProviders) config(apiKey string) config.GeoConfig {
	return config.GeoConfig{
		HTTPTimeout:      time.Second,
		CacheSize:        100,
		CacheTTL:         time.Hour,
		GoogleMapsAPIKey: apiKey,
		IPAPICoURL:       f.server.URL + "/ipapi",
		IPAPIComURL:      f.server.URL + "/ipapicom",
		GoogleGeocodeURL: f.server.URL + "/google",
	}
}

func TestResolverFromConfig_PrimaryProviderScenario(t *testing.T) {
	f := newFakeProviders(t)
	f.ipapiCo = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipapi/196.25.1.1/json/", r.URL.Path)
		fmt.Fprint(w, `{"ip":"196.25.1.1","city":"Tembisa","region":"Gauteng","country_name":"South Africa","country_code":"ZA","latitude":-25.98,"longitude":28.25,"timezone":"Africa/Johannesburg"}`)
	}
	r := NewResolverFromConfig(f.config(""), nil)
	assert.Equal(t, []string{ProviderIPAPICo, ProviderIPAPICom}, r.Providers(), "no key, no paid tier")

	loc := r.Resolve(context.Background(), "196.25.1.1")
	require.NotNil(t, loc)
	assert.Equal(t, -25.98, loc.Latitude)
	assert.Equal(t, 28.25, loc.Longitude)
	assert.Equal(t, "Tembisa", loc.City)
	assert.Equal(t, "South Africa", loc.Country)
	assert.Equal(t, "ZA", loc.CountryCode)
	assert.Equal(t, ProviderIPAPICo, loc.Provider)
	require.NotNil(t, loc.Timezone)
	assert.Equal(t, "Africa/Johannesburg", *loc.Timezone)
	assert.Equal(t, int32(1), f.calls.Load())

	again := r.Resolve(context.Background(), "196.25.1.1")
	require.NotNil(t, again)
	assert.Equal(t, "Tembisa", again.City)
	assert.Equal(t, int32(1), f.calls.Load(), "cache hit makes no HTTP call")
}

func TestResolverFromConfig_PaidTierAfterFreeProvidersFail(t *testing.T) {
	f := newFakeProviders(t)
	var ipAPICalls atomic.Int32
	f.ipAPI = func(w http.ResponseWriter, r *http.Request) {
		// The secondary tier fails once as a provider, then serves coarse coordinates.
		if ipAPICalls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"status":"success","country":"South Africa","countryCode":"ZA","regionName":"Gauteng","city":"Johannesburg","lat":-25.98,"lon":28.25,"timezone":"Africa/Johannesburg"}`)
	}
	f.google = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "-25.980000,28.250000", r.URL.Query().Get("latlng"))
		fmt.Fprint(w, `{"status":"OK","results":[{"address_components":[
			{"long_name":"Tembisa","short_name":"Tembisa","types":["locality","political"]},
			{"long_name":"Gauteng","short_name":"GP","types":["administrative_area_level_1","political"]},
			{"long_name":"South Africa","short_name":"ZA","types":["country","political"]}]}]}`)
	}

	r := NewResolverFromConfig(f.config("secret"), nil)
	loc := r.Resolve(context.Background(), "196.25.1.1")

	require.NotNil(t, loc)
	assert.Equal(t, ProviderGoogle, loc.Provider)
	assert.Equal(t, "Tembisa", loc.City)
	assert.Equal(t, "Gauteng", loc.Region)
	assert.Equal(t, "ZA", loc.CountryCode)
	assert.Equal(t, int32(4), f.calls.Load())
}

func TestResolverFromConfig_EverythingDown(t *testing.T) {
	f := newFakeProviders(t)
	r := NewResolverFromConfig(f.config("secret"), nil)

	assert.Nil(t, r.Resolve(context.Background(), "196.25.1.1"))
	// ipapi.co, ip-api.com, then ip-api.com again for the paid tier's coarse lookup.
	assert.Equal(t, int32(3), f.calls.Load())
}
