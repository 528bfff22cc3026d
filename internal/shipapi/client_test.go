package shipapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eraiiz/shipping/internal/models"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token(ctx context.Context) (string, error) { return string(s), nil }

func TestClient_CalculateRates_OK(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/shipping/rates", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req ratesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Parcels, 1)
		// 2 x 1kg cart aggregation arrives as a 2kg parcel.
		require.Equal(t, 2.0, req.Parcels[0].Weight)
		require.True(t, req.IsInsured)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rates":[
			{"courier_id":"c2","courier_name":"GIG","courier_service_id":"s9","service_name":"Express","total_charge":4300,"currency":"NGN"},
			{"courier_id":"c1","courier_name":"DHL","courier_service_id":"s1","service_name":"Standard","total_charge":2100,"currency":"NGN"}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens("tok-1"))
	quotes, err := c.CalculateRates(context.Background(), models.Address{}, fullAddress(),
		[]models.Parcel{{Length: 14, Width: 14, Height: 14, Weight: 2}}, true)
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// Backend order is preserved, never re-sorted.
	require.Len(t, quotes, 2)
	require.Equal(t, "GIG", quotes[0].CourierName)
	require.Equal(t, "DHL", quotes[1].CourierName)
}

func TestClient_CalculateRates_LocalValidation_NoNetworkCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	c := New(srv.URL, nil)

	_, err := c.CalculateRates(context.Background(), models.Address{}, models.Address{}, []models.Parcel{{Weight: 1}}, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid destination address")

	_, err = c.CalculateRates(context.Background(), models.Address{}, fullAddress(), nil, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parcel")
}

func TestClient_CalculateRates_ParcelFloorsApplied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ratesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, 10.0, req.Parcels[0].Length)
		require.Equal(t, 0.5, req.Parcels[0].Weight)
		require.Equal(t, "box", req.Parcels[0].PackagingType)
		_, _ = w.Write([]byte(`{"rates":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	quotes, err := c.CalculateRates(context.Background(), models.Address{}, fullAddress(), []models.Parcel{{}}, false)
	require.NoError(t, err)
	require.Empty(t, quotes)
}

func TestClient_APIError_MessagePassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"destination state not serviceable"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.CalculateRates(context.Background(), models.Address{}, fullAddress(), []models.Parcel{{Weight: 1}}, false)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.Equal(t, "destination state not serviceable", apiErr.Message)
}

func TestClient_APIError_NonJSONBodyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Couriers(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, "request failed with status 502", apiErr.Message)
}

func TestClient_ListShipments_QueryAndEmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/shipping/shipments", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "3", q.Get("page"))
		require.Equal(t, "20", q.Get("limit"))
		require.Equal(t, "in_transit", q.Get("status"))
		require.Equal(t, "sel-1", q.Get("sellerId"))
		require.Empty(t, q.Get("buyerId"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	ships, pg, err := c.ListShipments(context.Background(), 3, 20,
		models.ShipmentFilters{Status: models.StatusInTransit, SellerID: "sel-1"})
	require.NoError(t, err)
	// Malformed/empty payload means zero results, not a failure.
	require.NotNil(t, ships)
	require.Empty(t, ships)
	require.Equal(t, 3, pg.Page)
	require.Equal(t, 20, pg.Limit)
}

func TestClient_CreateShipment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/shipping/shipments", r.URL.Path)

		var body struct {
			OrderID   string `json:"orderId"`
			CourierID string `json:"courierId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "ord-7", body.OrderID)
		require.Equal(t, "c1", body.CourierID)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"shipment":{"_id":"sh-7","orderId":"ord-7","status":"pending","trackingNumber":"TRK777"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	sh, err := c.CreateShipment(context.Background(), CreateShipmentInput{
		OrderID:   "ord-7",
		CourierID: "c1",
	})
	require.NoError(t, err)
	require.Equal(t, "sh-7", sh.ID)
	require.Equal(t, models.StatusPending, sh.Status)
	require.Equal(t, "TRK777", sh.TrackingNumber)
}

func TestClient_UpdateShipmentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/api/shipping/shipments/sh-9/status", r.URL.Path)

		var body map[string]models.StatusUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, models.StatusPickedUp, body["statusData"].Status)

		_, _ = w.Write([]byte(`{"shipment":{"_id":"sh-9","status":"picked_up"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	sh, err := c.UpdateShipmentStatus(context.Background(), "sh-9", models.StatusUpdate{Status: models.StatusPickedUp})
	require.NoError(t, err)
	require.Equal(t, "sh-9", sh.ID)
	require.Equal(t, models.StatusPickedUp, sh.Status)

	_, err = c.UpdateShipmentStatus(context.Background(), "", models.StatusUpdate{Status: "x"})
	require.Error(t, err)
	_, err = c.UpdateShipmentStatus(context.Background(), "sh-9", models.StatusUpdate{})
	require.Error(t, err)
}

func TestClient_CancelShipment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/shipping/shipments/sh-3/cancel", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "buyer changed mind", body["reason"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	require.NoError(t, c.CancelShipment(context.Background(), "sh-3", "buyer changed mind"))
}

func TestClient_Track_SortsEventsNewestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/shipping/track/TRK123", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"trackingNumber":"TRK123","status":"in_transit","courierName":"GIG",
			"trackingEvents":[
				{"description":"Accepted","timestamp":"2026-08-01T08:00:00Z"},
				{"description":"Out for delivery","timestamp":"2026-08-03T07:30:00Z"},
				{"description":"Departed hub","timestamp":"2026-08-02T15:00:00Z"}
			]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	info, err := c.Track(context.Background(), "TRK123")
	require.NoError(t, err)
	require.Equal(t, models.StatusInTransit, info.Status)
	require.Len(t, info.TrackingEvents, 3)
	require.Equal(t, "Out for delivery", info.TrackingEvents[0].Description)
	require.Equal(t, "Departed hub", info.TrackingEvents[1].Description)
	require.Equal(t, "Accepted", info.TrackingEvents[2].Description)
	require.True(t, info.TrackingEvents[0].Timestamp.After(info.TrackingEvents[2].Timestamp))
}

func TestClient_Track_EmptyInputRejectedLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Track(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyTrackingNumber)
}

func TestClient_PickupSlots_AddressAsJSONQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "2026-09-01", q.Get("date"))
		require.Equal(t, "c1", q.Get("courierId"))

		var a models.Address
		require.NoError(t, json.Unmarshal([]byte(q.Get("address")), &a))
		require.Equal(t, "Lagos", a.City)

		_, _ = w.Write([]byte(`{"pickup_slots":[{"date":"2026-09-01","startTime":"09:00","endTime":"12:00","available":true}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	slots, err := c.PickupSlots(context.Background(), fullAddress(), "2026-09-01", "c1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.True(t, slots[0].Available)
}

func TestClient_SchedulePickup_IdempotencyKey(t *testing.T) {
	seen := map[string]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		require.NotEmpty(t, key)
		seen[key] = true
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	req := models.PickupRequest{Date: "2026-09-01", TimeSlot: "09:00-12:00", ShipmentIDs: []string{"sh-1"}}
	require.NoError(t, c.SchedulePickup(context.Background(), req))
	require.NoError(t, c.SchedulePickup(context.Background(), req))
	require.Len(t, seen, 2) // fresh key per submit

	require.Error(t, c.SchedulePickup(context.Background(), models.PickupRequest{Date: "2026-09-01"}))
}

func TestClient_CouriersAndServices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/shipping/couriers":
			_, _ = w.Write([]byte(`{"couriers":[{"id":"c1","name":"DHL"}]}`))
		case "/api/shipping/couriers/c1/services":
			_, _ = w.Write([]byte(`{"services":[{"id":"s1","courierId":"c1","name":"Standard"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	cs, err := c.Couriers(context.Background())
	require.NoError(t, err)
	require.Len(t, cs, 1)

	svcs, err := c.CourierServices(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, svcs, 1)
	require.Equal(t, "Standard", svcs[0].Name)
}

func TestClient_ShippingStats_EmptyPayloadIsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/shipping/stats", r.URL.Path)
		require.Equal(t, "sel-1", r.URL.Query().Get("sellerId"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	st, err := c.ShippingStats(context.Background(), models.ShipmentFilters{SellerID: "sel-1"})
	require.NoError(t, err)
	require.Zero(t, st.TotalShipments)
	require.Zero(t, st.TotalShippingCost)
}

func TestClient_ShippingLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/shipping/shipments/sh-1/label", r.URL.Path)
		_, _ = w.Write([]byte(`{"label":{"shipmentId":"sh-1","labelUrl":"https://cdn.example.com/l.pdf","format":"pdf"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	l, err := c.ShippingLabel(context.Background(), "sh-1")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/l.pdf", l.LabelURL)
}

func TestClient_Timeout_SurfacesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Couriers(ctx)
	require.Error(t, err)
	var apiErr *APIError
	require.False(t, errors.As(err, &apiErr))
}
