// Package shipapi is the HTTP client for the marketplace shipping backend.
// It covers the whole /api/shipping surface: rate quotes, shipment CRUD,
// tracking, pickups, labels, couriers and aggregate stats.
package shipapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/eraiiz/shipping/internal/estimator"
	"github.com/eraiiz/shipping/internal/models"
)

// TokenSource yields the bearer token attached to every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// APIError is a non-2xx backend response normalized to its message. The
// message is shown to users verbatim, so it is kept exactly as received.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shipping api: %s (http %d)", e.Message, e.StatusCode)
}

var ErrEmptyTrackingNumber = errors.New("tracking number is required")

// ValidationError is a local precondition failure; no request was sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type Client struct {
	baseURL string
	tokens  TokenSource
	httpc   *http.Client
}

// New builds a client. The 30-second timeout matches what the backend
// expects from its frontend callers; there are no retries at this layer.
func New(baseURL string, tokens TokenSource) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:4000"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type ratesRequest struct {
	OriginAddress      models.Address  `json:"originAddress"`
	DestinationAddress models.Address  `json:"destinationAddress"`
	Parcels            []models.Parcel `json:"parcels"`
	IsInsured          bool            `json:"isInsured"`
}

type ratesResponse struct {
	Rates []models.RateQuote `json:"rates"`
}

// CalculateRates validates locally, normalizes parcels, then issues exactly
// one request. Quotes come back in backend order; callers must not re-sort.
func (c *Client) CalculateRates(ctx context.Context, origin, destination models.Address, parcels []models.Parcel, insured bool) ([]models.RateQuote, error) {
	if ok, errs := ValidateAddress(destination); !ok {
		return nil, &ValidationError{Message: "invalid destination address: " + strings.Join(errs, "; ")}
	}
	if len(parcels) == 0 {
		return nil, &ValidationError{Message: "at least one parcel is required"}
	}

	norm := make([]models.Parcel, 0, len(parcels))
	for _, p := range parcels {
		norm = append(norm, estimator.NormalizeParcel(p))
	}

	var out ratesResponse
	err := c.do(ctx, http.MethodPost, "/api/shipping/rates", nil, ratesRequest{
		OriginAddress:      origin,
		DestinationAddress: destination,
		Parcels:            norm,
		IsInsured:          insured,
	}, &out, nil)
	if err != nil {
		return nil, err
	}
	return out.Rates, nil
}

type CreateShipmentInput struct {
	OrderID            string          `json:"orderId"`
	BuyerID            string          `json:"buyerId"`
	SellerID           string          `json:"sellerId"`
	CourierID          string          `json:"courierId"`
	CourierServiceID   string          `json:"courierServiceId"`
	OriginAddress      models.Address  `json:"originAddress"`
	DestinationAddress models.Address  `json:"destinationAddress"`
	Parcels            []models.Parcel `json:"parcels"`
	IsInsured          bool            `json:"isInsured"`
	TotalCost          float64         `json:"totalCost"`
	Currency           string          `json:"currency"`
}

type shipmentResponse struct {
	Shipment models.Shipment `json:"shipment"`
}

func (c *Client) CreateShipment(ctx context.Context, in CreateShipmentInput) (models.Shipment, error) {
	var out shipmentResponse
	if err := c.do(ctx, http.MethodPost, "/api/shipping/shipments", nil, in, &out, nil); err != nil {
		return models.Shipment{}, err
	}
	return out.Shipment, nil
}

type listResponse struct {
	Shipments  []models.Shipment `json:"shipments"`
	Pagination models.Pagination `json:"pagination"`
}

// ListShipments fetches one page. An empty payload is a valid zero-result
// answer, never an error.
func (c *Client) ListShipments(ctx context.Context, page, limit int, f models.ShipmentFilters) ([]models.Shipment, models.Pagination, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	addFilters(q, f)

	var out listResponse
	if err := c.do(ctx, http.MethodGet, "/api/shipping/shipments", q, nil, &out, nil); err != nil {
		return nil, models.Pagination{}, err
	}
	if out.Shipments == nil {
		out.Shipments = []models.Shipment{}
	}
	if out.Pagination.Page == 0 {
		out.Pagination.Page = page
	}
	if out.Pagination.Limit == 0 {
		out.Pagination.Limit = limit
	}
	return out.Shipments, out.Pagination, nil
}

func (c *Client) GetShipment(ctx context.Context, id string) (models.Shipment, error) {
	if id == "" {
		return models.Shipment{}, errors.New("shipment id is required")
	}
	var out shipmentResponse
	if err := c.do(ctx, http.MethodGet, "/api/shipping/shipments/"+url.PathEscape(id), nil, nil, &out, nil); err != nil {
		return models.Shipment{}, err
	}
	return out.Shipment, nil
}

func (c *Client) UpdateShipmentStatus(ctx context.Context, id string, upd models.StatusUpdate) (models.Shipment, error) {
	if id == "" {
		return models.Shipment{}, errors.New("shipment id is required")
	}
	if upd.Status == "" {
		return models.Shipment{}, errors.New("status is required")
	}
	var out shipmentResponse
	err := c.do(ctx, http.MethodPatch, "/api/shipping/shipments/"+url.PathEscape(id)+"/status", nil,
		map[string]models.StatusUpdate{"statusData": upd}, &out, nil)
	if err != nil {
		return models.Shipment{}, err
	}
	return out.Shipment, nil
}

// CancelShipment has no response body; callers who need the resulting
// shipment state re-fetch it.
func (c *Client) CancelShipment(ctx context.Context, id, reason string) error {
	if id == "" {
		return errors.New("shipment id is required")
	}
	return c.do(ctx, http.MethodPost, "/api/shipping/shipments/"+url.PathEscape(id)+"/cancel", nil,
		map[string]string{"reason": reason}, nil, nil)
}

// Track looks up one shipment by tracking number. Every call hits the
// network; nothing is cached. Events are sorted newest-first here because
// the backend does not guarantee any order.
func (c *Client) Track(ctx context.Context, trackingNumber string) (models.TrackingInfo, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return models.TrackingInfo{}, ErrEmptyTrackingNumber
	}

	var out models.TrackingInfo
	if err := c.do(ctx, http.MethodGet, "/api/shipping/track/"+url.PathEscape(trackingNumber), nil, nil, &out, nil); err != nil {
		return models.TrackingInfo{}, err
	}
	if out.TrackingEvents == nil {
		out.TrackingEvents = []models.TrackingEvent{}
	}
	sort.SliceStable(out.TrackingEvents, func(i, j int) bool {
		return out.TrackingEvents[i].Timestamp.After(out.TrackingEvents[j].Timestamp)
	})
	return out, nil
}

type pickupSlotsResponse struct {
	PickupSlots []models.PickupSlot `json:"pickup_slots"`
}

func (c *Client) PickupSlots(ctx context.Context, address models.Address, date, courierID string) ([]models.PickupSlot, error) {
	addrJSON, err := json.Marshal(address)
	if err != nil {
		return nil, errors.Wrap(err, "marshal address")
	}
	q := url.Values{}
	q.Set("address", string(addrJSON))
	q.Set("date", date)
	q.Set("courierId", courierID)

	var out pickupSlotsResponse
	if err := c.do(ctx, http.MethodGet, "/api/shipping/pickup-slots", q, nil, &out, nil); err != nil {
		return nil, err
	}
	if out.PickupSlots == nil {
		out.PickupSlots = []models.PickupSlot{}
	}
	return out.PickupSlots, nil
}

// SchedulePickup carries an idempotency key so a repeated submit cannot book
// the courier twice.
func (c *Client) SchedulePickup(ctx context.Context, req models.PickupRequest) error {
	if len(req.ShipmentIDs) == 0 {
		return errors.New("at least one shipment id is required")
	}
	headers := map[string]string{"Idempotency-Key": uuid.NewString()}
	return c.do(ctx, http.MethodPost, "/api/shipping/pickups", nil, req, nil, headers)
}

type labelResponse struct {
	Label models.Label `json:"label"`
}

func (c *Client) ShippingLabel(ctx context.Context, shipmentID string) (models.Label, error) {
	if shipmentID == "" {
		return models.Label{}, errors.New("shipment id is required")
	}
	var out labelResponse
	if err := c.do(ctx, http.MethodGet, "/api/shipping/shipments/"+url.PathEscape(shipmentID)+"/label", nil, nil, &out, nil); err != nil {
		return models.Label{}, err
	}
	return out.Label, nil
}

type couriersResponse struct {
	Couriers []models.Courier `json:"couriers"`
}

func (c *Client) Couriers(ctx context.Context) ([]models.Courier, error) {
	var out couriersResponse
	if err := c.do(ctx, http.MethodGet, "/api/shipping/couriers", nil, nil, &out, nil); err != nil {
		return nil, err
	}
	if out.Couriers == nil {
		out.Couriers = []models.Courier{}
	}
	return out.Couriers, nil
}

type courierServicesResponse struct {
	Services []models.CourierService `json:"services"`
}

func (c *Client) CourierServices(ctx context.Context, courierID string) ([]models.CourierService, error) {
	if courierID == "" {
		return nil, errors.New("courier id is required")
	}
	var out courierServicesResponse
	if err := c.do(ctx, http.MethodGet, "/api/shipping/couriers/"+url.PathEscape(courierID)+"/services", nil, nil, &out, nil); err != nil {
		return nil, err
	}
	if out.Services == nil {
		out.Services = []models.CourierService{}
	}
	return out.Services, nil
}

type statsResponse struct {
	ShippingStats models.ShippingStats `json:"shippingStats"`
}

// ShippingStats are aggregated server-side over everything matching the
// filters; the paginated list is never a source for them.
func (c *Client) ShippingStats(ctx context.Context, f models.ShipmentFilters) (models.ShippingStats, error) {
	q := url.Values{}
	addFilters(q, f)

	var out statsResponse
	if err := c.do(ctx, http.MethodGet, "/api/shipping/stats", q, nil, &out, nil); err != nil {
		return models.ShippingStats{}, err
	}
	return out.ShippingStats, nil
}

func addFilters(q url.Values, f models.ShipmentFilters) {
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.SellerID != "" {
		q.Set("sellerId", f.SellerID)
	}
	if f.BuyerID != "" {
		q.Set("buyerId", f.BuyerID)
	}
	if f.DateFrom != "" {
		q.Set("dateFrom", f.DateFrom)
	}
	if f.DateTo != "" {
		q.Set("dateTo", f.DateTo)
	}
}

type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, headers map[string]string) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return errors.Wrap(err, "parse url")
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return errors.Wrap(err, "load auth token")
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if eb.Message == "" {
			eb.Message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: eb.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
