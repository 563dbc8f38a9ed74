// Package upstream polls an external inventory feed and bulk imports what it
// returns.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"asset-booking-backend/config"
	"asset-booking-backend/internal/inventory"
	"asset-booking-backend/internal/model"
)

// SystemActor is the identity imports from the feed run under.
var SystemActor = model.Actor{ID: "system:upstream", Name: "upstream sync", Role: model.RoleAdministrative}

// Importer replaces one kind of resources.
type Importer interface {
	Import(ctx context.Context, actor model.Actor, kind model.Kind, rows []inventory.Row) (inventory.Report, error)
}

// Dispatcher is told about resources that became available.
type Dispatcher interface {
	Dispatch(resourceID string)
}

// Service periodically syncs the resource pool from the feed.
type Service struct {
	cfg        *config.UpstreamConfig
	importer   Importer
	notify     Dispatcher
	invalidate func()
	client     *http.Client
}

// NewService creates a sync service. notify may be nil.
func NewService(cfg *config.UpstreamConfig, importer Importer, notify Dispatcher) *Service {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Upstream sync will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Service{
		cfg:      cfg,
		importer: importer,
		notify:   notify,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
}

// Invalidate registers f to run after every import that changed resources,
// so cached reads do not outlive the data they were built from.
func (s *Service) Invalidate(f func()) {
	s.invalidate = f
}

// Run syncs once, then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Upstream sync is disabled. Not starting.")
		return
	}
	log.Println("Starting upstream sync service...")

	s.SyncOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Upstream sync service shutting down.")
			return
		case <-timer.C:
			s.SyncOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SyncOnce fetches every page of the feed and imports each kind it contains.
// A failed fetch imports nothing, so a flaky feed never wipes a kind.
func (s *Service) SyncOnce(ctx context.Context) {
	log.Println("Executing upstream sync cycle...")

	var allRows []inventory.Row
	total := 1
	pageSize := s.cfg.Request.PageSize
	var fetchErr error
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			log.Printf("Error fetching page %d: %v", page, err)
			fetchErr = err
			break
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		allRows = append(allRows, resp.Data.Items...)
		log.Printf("Fetched page %d, total rows so far: %d/%d", page, len(allRows), total)
	}

	if fetchErr != nil {
		log.Printf("Upstream sync aborted after fetching %d rows. Resources will not be updated.", len(allRows))
		return
	}

	byKind := make(map[model.Kind][]inventory.Row)
	for _, row := range allRows {
		if !row.Kind.Valid() {
			log.Printf("Warning: skipping row %q with unknown kind %q", row.ID, row.Kind)
			continue
		}
		byKind[row.Kind] = append(byKind[row.Kind], row)
	}

	// A kind missing from the feed is left alone rather than cleared.
	for _, kind := range []model.Kind{model.KindSlot, model.KindUnit} {
		rows := byKind[kind]
		if len(rows) == 0 {
			log.Printf("No %s rows in feed; skipping", kind)
			continue
		}
		rep, err := s.importer.Import(ctx, SystemActor, kind, rows)
		if err != nil {
			log.Printf("Error importing %s rows: %v", kind, err)
			continue
		}
		if s.invalidate != nil && rep.Created+rep.Updated+rep.Removed+rep.Reconciled > 0 {
			s.invalidate()
		}
		for _, w := range rep.Warnings {
			log.Printf("Import warning (%s): %s", kind, w)
		}
		if s.notify != nil && len(rep.Freed) > 0 {
			log.Printf("Dispatching notifications for %d resources", len(rep.Freed))
			for _, id := range rep.Freed {
				s.notify.Dispatch(id)
			}
		}
	}

	log.Println("Upstream sync cycle finished.")
}

func (s *Service) fetchPage(ctx context.Context, page int) (*ApiResponse, error) {
	payload := make(map[string]any)
	for k, v := range s.cfg.Request.Payload {
		payload[k] = v
	}
	payload["page"] = page
	payload["pageSize"] = s.cfg.Request.PageSize

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Request.URL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.cfg.Request.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp ApiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api response: %w", err)
	}

	if apiResp.Code != 0 {
		return nil, fmt.Errorf("API returned non-zero application code: %d", apiResp.Code)
	}

	return &apiResp, nil
}
