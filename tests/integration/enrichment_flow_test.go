package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cardbook/db"
	"cardbook/internal/api"
	"cardbook/internal/auth"
	"cardbook/internal/config"
	"cardbook/internal/contact"
	"cardbook/internal/enrichment"
	"cardbook/internal/geo"
	"cardbook/models"
	"cardbook/tests/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flow struct {
	server   *testutils.TestServer
	repo     db.ContactListRepository
	entry    enrichment.Enqueuer
	ipapiHit *atomic.Int32
}

// setupFlow wires the serve command's object graph against SQLite and a fake
// ipapi.co / ip-api.com pair.
func setupFlow(t *testing.T, primaryUp bool) *flow {
	var hits atomic.Int32
	providers := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/ipapi/"):
			hits.Add(1)
			if !primaryUp {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, `{"city":"Tembisa","region":"Gauteng","country_name":"South Africa","country_code":"ZA","latitude":-25.98,"longitude":28.25,"timezone":"Africa/Johannesburg"}`)
		case strings.HasPrefix(r.URL.Path, "/ipapicom/"):
			fmt.Fprint(w, `{"status":"success","city":"Johannesburg","regionName":"Gauteng","country":"South Africa","countryCode":"ZA","lat":-26.2,"lon":28.04,"timezone":"Africa/Johannesburg"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(providers.Close)

	factory, cleanup := testutils.SetupTestRepositoryFactory(t)
	t.Cleanup(cleanup)

	cfg := testutils.GetTestConfig()
	cfg.Geo = config.GeoConfig{
		HTTPTimeout: time.Second,
		CacheSize:   64,
		CacheTTL:    time.Hour,
		IPAPICoURL:  providers.URL + "/ipapi",
		IPAPIComURL: providers.URL + "/ipapicom",
	}

	repo := factory.NewContactListRepository()
	manager := db.NewDBManager()
	resolver := geo.NewResolverFromConfig(cfg.Geo, factory.NewGeolocationRepository())
	processor := enrichment.NewProcessor(resolver, contact.NewLocationWriter(repo, manager))
	entry := enrichment.NewEntrypoint(context.Background(), cfg.Enrichment, processor, nil)
	t.Cleanup(func() { entry.Shutdown(time.Second) })

	handlers := contact.NewContactHandlers(contact.NewContactService(repo, manager), entry)
	router := api.NewRouter(cfg, handlers, api.Health{Store: "sqlite", Enrichment: entry.Mode(), Providers: resolver.Providers()})

	token, err := auth.NewAuthHandlers(cfg).GenerateJWT(cfg.Username)
	require.NoError(t, err)

	return &flow{
		server:   testutils.NewTestServer(t, router).WithToken(token),
		repo:     repo,
		entry:    entry,
		ipapiHit: &hits,
	}
}

func (f *flow) addContact(t *testing.T, ownerID, name, ip string) int {
	var body struct {
		Index int `json:"index"`
	}
	resp := f.server.POSTFrom("/api/owners/"+ownerID+"/contacts", ip, map[string]string{"name": name})
	testutils.AssertJSONResponse(t, resp, http.StatusCreated, &body)
	return body.Index
}

func (f *flow) locationAt(t *testing.T, ownerID string, index int) *models.Location {
	list, err := f.repo.Get(context.Background(), ownerID)
	if !assert.NoError(t, err) || !assert.Greater(t, len(list.Contacts), index) {
		return nil
	}
	return list.Contacts[index].Location
}

func TestEnrichmentFlow_TembisaOnThirdContact(t *testing.T) {
	f := setupFlow(t, true)
	assert.Equal(t, "direct", f.entry.Mode())

	f.addContact(t, "U1", "First", "10.0.0.1")
	f.addContact(t, "U1", "Second", "192.168.1.20")
	index := f.addContact(t, "U1", "Third", "196.25.1.1")
	require.Equal(t, 2, index)

	require.Eventually(t, func() bool {
		return f.locationAt(t, "U1", 2) != nil
	}, 3*time.Second, 10*time.Millisecond)

	loc := f.locationAt(t, "U1", 2)
	assert.Equal(t, "Tembisa", loc.City)
	assert.Equal(t, "ZA", loc.CountryCode)
	assert.Equal(t, "ipapi.co", loc.Provider)
	assert.Nil(t, f.locationAt(t, "U1", 0))
	assert.Nil(t, f.locationAt(t, "U1", 1))
}

func TestEnrichmentFlow_FallsBackToSecondProvider(t *testing.T) {
	f := setupFlow(t, false)

	f.addContact(t, "U2", "Only", "196.25.1.1")

	require.Eventually(t, func() bool {
		return f.locationAt(t, "U2", 0) != nil
	}, 3*time.Second, 10*time.Millisecond)

	loc := f.locationAt(t, "U2", 0)
	assert.Equal(t, "Johannesburg", loc.City)
	assert.Equal(t, "ip-api.com", loc.Provider)
	assert.Equal(t, int32(1), f.ipapiHit.Load())
}

func TestEnrichmentFlow_ContactsForSameOwnerAllEnriched(t *testing.T) {
	f := setupFlow(t, true)

	for i := 0; i < 5; i++ {
		f.addContact(t, "U3", fmt.Sprintf("Contact %d", i), "196.25.1.1")
	}

	require.Eventually(t, func() bool {
		for i := 0; i < 5; i++ {
			if f.locationAt(t, "U3", i) == nil {
				return false
			}
		}
		return true
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), f.ipapiHit.Load(), "repeat lookups are served from cache")
}

func TestEnrichmentFlow_ResponseDoesNotWaitForEnrichment(t *testing.T) {
	f := setupFlow(t, true)

	f.addContact(t, "U4", "Private", "127.0.0.1")

	var list models.ContactList
	testutils.AssertJSONResponse(t, f.server.GET("/api/owners/U4/contacts"), http.StatusOK, &list)
	require.Len(t, list.Contacts, 1)
	assert.Nil(t, list.Contacts[0].Location)
	assert.Equal(t, int32(0), f.ipapiHit.Load())
}
