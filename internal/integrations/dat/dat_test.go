package dat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SprintLogistics/sptms/internal/errs"
	"github.com/SprintLogistics/sptms/internal/models"
)

type memCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string][]byte{}
	}
	c.m[key] = value
	return nil
}

type datServer struct {
	*httptest.Server
	tokenCalls int
	rateCalls  int
}

func newDATServer(t *testing.T) *datServer {
	s := &datServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		s.tokenCalls++
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client-id", user)
		require.Equal(t, "client-secret", pass)
		require.NoError(t, r.ParseForm())
		switch r.PostForm.Get("grant_type") {
		case "password":
			require.Equal(t, "user@broker.test", r.PostForm.Get("username"))
			require.Equal(t, "openid loadboard rateview", r.PostForm.Get("scope"))
		case "refresh_token":
			require.NotEmpty(t, r.PostForm.Get("refresh_token"))
		default:
			t.Fatalf("unexpected grant_type %q", r.PostForm.Get("grant_type"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    3600,
		})
	})

	mux.HandleFunc("/loadboard/postings", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "V", body["equipmentType"])
		require.Equal(t, "FULL", body["loadType"])
		json.NewEncoder(w).Encode(map[string]any{"id": "post-1", "matchingAssets": 12})
	})

	mux.HandleFunc("/loadboard/trucks/search", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Dallas", r.URL.Query().Get("originCity"))
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"id":            "truck-1",
					"companyName":   "Lone Star Trucking",
					"equipmentType": "V",
					"location":      map[string]any{"city": "Dallas", "state": "TX"},
					"contact":       map[string]any{"phone": "555-0100"},
				},
			},
			"totalCount": 1,
		})
	})

	mux.HandleFunc("/rateview/rates", func(w http.ResponseWriter, r *http.Request) {
		s.rateCalls++
		json.NewEncoder(w).Encode(map[string]any{
			"spot":    map[string]any{"low": 1800, "average": 2000, "high": 2300, "perMile": 2.75},
			"mileage": 727,
			"trend":   map[string]any{"direction": "up", "percentChange": 3.2},
		})
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newService(srv *datServer, rates *memCache) *Service {
	cfg := Config{
		APIURL:       srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Username:     "user@broker.test",
		Password:     "secret",
		RateCacheTTL: time.Minute,
	}
	if rates == nil {
		return New(cfg, nil)
	}
	return New(cfg, rates)
}

func TestService_IsConfigured(t *testing.T) {
	require.False(t, New(Config{}, nil).IsConfigured())
	require.True(t, New(Config{
		ClientID: "a", ClientSecret: "b", Username: "c", Password: "d",
	}, nil).IsConfigured())
}

func TestService_notConfigured(t *testing.T) {
	s := New(Config{}, nil)
	_, err := s.PostLoad(context.Background(), LoadPosting{})
	require.True(t, errs.IsIntegration(err))
}

func TestService_PostLoad(t *testing.T) {
	srv := newDATServer(t)
	s := newService(srv, nil)

	rate := 2100.0
	res, err := s.PostLoad(context.Background(), LoadPosting{
		ReferenceNumber: "SPTMS-202501-0001",
		Origin:          Place{City: "Dallas", State: "TX"},
		Destination:     Place{City: "Atlanta", State: "GA"},
		PickupDate:      time.Now(),
		EquipmentType:   "dry-van",
		Rate:            &rate,
	})
	require.NoError(t, err)
	require.Equal(t, "post-1", res.PostingID)
	require.Equal(t, 12, res.MatchingAssets)
	// Один токен на всю сессию.
	require.Equal(t, 1, srv.tokenCalls)

	_, err = s.PostLoad(context.Background(), LoadPosting{
		Origin:        Place{City: "Dallas", State: "TX"},
		Destination:   Place{City: "Atlanta", State: "GA"},
		PickupDate:    time.Now(),
		EquipmentType: "dry-van",
	})
	require.NoError(t, err)
	require.Equal(t, 1, srv.tokenCalls)
}

func TestService_SearchTrucks(t *testing.T) {
	srv := newDATServer(t)
	s := newService(srv, nil)

	trucks, total, err := s.SearchTrucks(context.Background(), TruckSearch{
		Origin: Place{City: "Dallas", State: "TX"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, trucks, 1)
	require.Equal(t, "Lone Star Trucking", trucks[0].CarrierName)
	require.Equal(t, "555-0100", trucks[0].Phone)
	require.Equal(t, "Dallas", trucks[0].Location.City)
}

func TestService_GetRates_cached(t *testing.T) {
	srv := newDATServer(t)
	rates := &memCache{}
	s := newService(srv, rates)

	q := RateQuery{
		Origin:        Place{City: "Dallas", State: "TX"},
		Destination:   Place{City: "Atlanta", State: "GA"},
		EquipmentType: "dry-van",
	}

	r1, err := s.GetRates(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, 2000.0, r1.Spot.Average)
	require.Equal(t, 727.0, r1.TotalMiles)
	require.NotNil(t, r1.Trend)
	require.Equal(t, "up", r1.Trend.Direction)
	require.Equal(t, "7d", r1.Trend.Period)

	r2, err := s.GetRates(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, r1.Spot, r2.Spot)
	require.Equal(t, 1, srv.rateCalls)
}

func TestService_SuggestedRate(t *testing.T) {
	srv := newDATServer(t)
	s := newService(srv, nil)

	q := RateQuery{
		Origin:        Place{City: "Dallas", State: "TX"},
		Destination:   Place{City: "Atlanta", State: "GA"},
		EquipmentType: "dry-van",
	}

	sug, err := s.SuggestedRate(context.Background(), q, 20)
	require.NoError(t, err)
	require.Equal(t, 2000.0, sug.CarrierRate)
	require.Equal(t, 2500.0, sug.CustomerRate)
	require.Equal(t, 727.0, sug.Mileage)

	_, err = s.SuggestedRate(context.Background(), q, 100)
	require.True(t, errs.IsComputation(err))
}

func TestBuildPosting(t *testing.T) {
	rate := 1500.0
	l := &models.Load{
		ID:           "l1",
		LoadNumber:   "SPTMS-202501-0001",
		CustomerRate: &rate,
		EquipmentType: "reefer",
		PickupAddress: &models.Address{
			City: "Dallas", State: "TX", ZipCode: "75201",
		},
		DeliveryAddress: &models.Address{
			City: "Atlanta", State: "GA",
		},
		PickupDate:   time.Date(2025, time.January, 20, 8, 0, 0, 0, time.UTC),
		DeliveryDate: time.Date(2025, time.January, 22, 17, 0, 0, 0, time.UTC),
	}

	p := BuildPosting(l, "Dispatch", "555-0101", "dispatch@broker.test")
	require.Equal(t, "SPTMS-202501-0001", p.ReferenceNumber)
	require.Equal(t, "Dallas", p.Origin.City)
	require.Equal(t, "75201", p.Origin.ZipCode)
	require.NotNil(t, p.DeliveryDate)
	require.Equal(t, &rate, p.Rate)

	wire := wirePosting(p)
	require.Equal(t, "R", wire["equipmentType"])
}

func TestEquipmentCode(t *testing.T) {
	require.Equal(t, "V", EquipmentCode("dry-van"))
	require.Equal(t, "SD", EquipmentCode("step-deck"))
	require.Equal(t, "XYZ", EquipmentCode("XYZ"))
}
