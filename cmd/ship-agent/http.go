package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/eraiiz/shipping/config"
	"github.com/eraiiz/shipping/internal/estimator"
	"github.com/eraiiz/shipping/internal/models"
	"github.com/eraiiz/shipping/internal/shipapi"
	"github.com/eraiiz/shipping/internal/status"
	"github.com/eraiiz/shipping/internal/store"
)

type agentHTTPOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)

	store     *store.Store
	refresher *store.Refresher
	client    *shipapi.Client
	cfg       *config.Config
}

func runAgentHTTPServer(ctx context.Context, opts agentHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}
	if opts.swaggerPath == "" {
		return fmt.Errorf("agent swagger_path config value is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("agent swagger file not found: %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(opts.refresher.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Operational settings only; the config struct itself may grow secrets.
		out := map[string]any{
			"refreshIntervalSeconds":    opts.cfg.Agent.RefreshIntervalSeconds,
			"refreshRateLimitPerMinute": opts.cfg.Agent.RefreshRateLimitPerMinute,
			"pageSize":                  opts.cfg.Agent.PageSize,
			"sellerId":                  opts.cfg.Agent.SellerID,
			"buyerId":                   opts.cfg.Agent.BuyerID,
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		opts.refresher.Trigger()
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	r.Get("/shipments", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ships := opts.store.Shipments()
		views := make([]shipmentView, 0, len(ships))
		for _, sh := range ships {
			views = append(views, toView(sh))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"shipments":  views,
			"pagination": opts.store.Pagination(),
		})
	})

	r.Get("/shipments/current", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		sh, ok := opts.store.CurrentShipment()
		if !ok {
			writeError(w, http.StatusNotFound, "no shipment in focus")
			return
		}
		_ = json.NewEncoder(w).Encode(toView(sh))
	})

	r.Get("/stats/shipping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(opts.store.Stats())
	})

	r.Get("/track/{trackingNumber}", func(w http.ResponseWriter, r *http.Request) {
		info, err := opts.client.Track(r.Context(), chi.URLParam(r, "trackingNumber"))
		if err != nil {
			writeAPIError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	})

	r.Post("/rates", func(w http.ResponseWriter, r *http.Request) {
		var req rateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		parcels := req.Parcels
		if len(parcels) == 0 && len(req.Items) > 0 {
			parcels = []models.Parcel{estimator.Estimate(req.Items)}
		}
		quotes, err := opts.client.CalculateRates(r.Context(), req.OriginAddress, req.DestinationAddress, parcels, req.IsInsured)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"rates": quotes})
	})

	// Serve swagger with no-cache + cachebuster so the UI picks up edits.
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, opts.swaggerPath)
	})

	swaggerURL := "/swagger.json"
	if fi, err := os.Stat(opts.swaggerPath); err == nil {
		swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}

type rateRequest struct {
	OriginAddress      models.Address        `json:"originAddress"`
	DestinationAddress models.Address        `json:"destinationAddress"`
	Parcels            []models.Parcel       `json:"parcels,omitempty"`
	Items              []models.CartLineItem `json:"items,omitempty"`
	IsInsured          bool                  `json:"isInsured"`
}

// shipmentView decorates a shipment with its display fields so dashboard
// consumers do not re-implement the status table.
type shipmentView struct {
	models.Shipment
	StatusLabel     string `json:"statusLabel"`
	StatusColor     string `json:"statusColor"`
	ProgressPercent int    `json:"progressPercent"`
	CanCancel       bool   `json:"canCancel"`
}

func toView(sh models.Shipment) shipmentView {
	return shipmentView{
		Shipment:        sh,
		StatusLabel:     status.Label(sh.Status),
		StatusColor:     status.ColorClass(sh.Status),
		ProgressPercent: status.ProgressPercent(sh.Status),
		// A shipment that already reached a final state has nothing to cancel.
		CanCancel: !status.IsTerminal(sh.Status),
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *shipapi.APIError
	var valErr *shipapi.ValidationError
	switch {
	case errors.As(err, &apiErr):
		writeError(w, apiErr.StatusCode, apiErr.Message)
	case errors.As(err, &valErr), errors.Is(err, shipapi.ErrEmptyTrackingNumber):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
