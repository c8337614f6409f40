// Package bandctl starts and stops motion capture on wristbands. Batch
// commands address each wristband independently and concurrently; a bad
// device degrades the batch instead of failing it.
package bandctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arenalabs/motionduel/pkg/logger"
	"github.com/arenalabs/motionduel/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout     = 5 * time.Second
	defaultService     = "smart"
	defaultServicePath = "/"
)

// BatchResult partitions a batch command into per-wristband outcomes.
type BatchResult struct {
	Succeeded []string
	Failed    []string
}

// AllOK reports whether every wristband in the batch accepted the command.
func (r BatchResult) AllOK() bool { return len(r.Failed) == 0 }

// Device describes a wristband registered with the IoT agent.
type Device struct {
	DeviceID   string `json:"device_id"`
	EntityName string `json:"entity_name"`
	EntityType string `json:"entity_type"`
	Transport  string `json:"transport"`
}

// BandID extracts the short wristband id from the entity name.
func (d Device) BandID() string {
	const prefix = "urn:ngsi-ld:Band:"
	if strings.HasPrefix(d.EntityName, prefix) {
		return strings.TrimPrefix(d.EntityName, prefix)
	}
	return ""
}

// Controller is the capture control contract consumed by the orchestrator.
type Controller interface {
	StartCapture(ctx context.Context, bandIDs []string) BatchResult
	StopCapture(ctx context.Context, bandIDs []string) BatchResult
}

// Client implements Controller against the NGSI entity API, plus device
// discovery against the IoT agent registry.
type Client struct {
	entityURL   string
	deviceURL   string
	httpClient  *http.Client
	service     string
	servicePath string
	logger      logger.Logger
}

// NewClient creates a control client. entityURL receives capture commands;
// deviceURL serves the device registry and may be empty if discovery is
// unused.
func NewClient(entityURL, deviceURL string, opts ...Option) *Client {
	c := &Client{
		entityURL:   strings.TrimSuffix(entityURL, "/"),
		deviceURL:   strings.TrimSuffix(deviceURL, "/"),
		httpClient:  &http.Client{Timeout: defaultTimeout},
		service:     defaultService,
		servicePath: defaultServicePath,
		logger:      logger.Get().Named("bandctl"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartCapture turns capture on for every wristband in the batch.
func (c *Client) StartCapture(ctx context.Context, bandIDs []string) BatchResult {
	return c.command(ctx, bandIDs, "on")
}

// StopCapture turns capture off for every wristband in the batch.
func (c *Client) StopCapture(ctx context.Context, bandIDs []string) BatchResult {
	return c.command(ctx, bandIDs, "off")
}

func (c *Client) command(ctx context.Context, bandIDs []string, action string) BatchResult {
	type outcome struct {
		bandID string
		err    error
	}
	results := make([]outcome, len(bandIDs))

	var wg sync.WaitGroup
	for i, id := range bandIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = outcome{bandID: id, err: c.sendCommand(ctx, id, action)}
		}(i, id)
	}
	wg.Wait()

	var res BatchResult
	for _, r := range results {
		metrics.RecordCaptureCommand(action)
		if r.err != nil {
			metrics.RecordCaptureFailure(action)
			c.logger.Warn(ctx, "capture command failed",
				logger.String("band", r.bandID),
				logger.String("action", action),
				logger.Error(r.err),
			)
			res.Failed = append(res.Failed, r.bandID)
			continue
		}
		res.Succeeded = append(res.Succeeded, r.bandID)
	}
	return res
}

func (c *Client) sendCommand(ctx context.Context, bandID, action string) error {
	body, err := json.Marshal(map[string]any{
		action: map[string]string{"type": "command", "value": ""},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/attrs", c.entityURL, entityID(bandID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status %d", ErrCommandRejected, resp.StatusCode)
	}
	return nil
}

// deviceList mirrors the IoT agent registry response.
type deviceList struct {
	Count   int      `json:"count"`
	Devices []Device `json:"devices"`
}

// Devices lists registered wristbands, excluding non-band entities and the
// bench-test unit.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	if c.deviceURL == "" {
		return nil, ErrNoDeviceRegistry
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.deviceURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list devices: status %d", resp.StatusCode)
	}

	var list deviceList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}

	out := make([]Device, 0, len(list.Devices))
	for _, d := range list.Devices {
		if d.EntityType != "Band" {
			continue
		}
		// Band 001 is the bench-test unit, never handed to players.
		if d.EntityName == "urn:ngsi-ld:Band:001" {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityName < out[j].EntityName })
	return out, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("fiware-service", c.service)
	req.Header.Set("fiware-servicepath", c.servicePath)
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
}

func entityID(bandID string) string {
	id := bandID
	for len(id) < 3 {
		id = "0" + id
	}
	return "urn:ngsi-ld:Band:" + id
}
