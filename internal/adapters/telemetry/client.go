// Package telemetry reads motion-derived scores from the wristband entity
// API. One readout fans out into three per-axis attribute requests; values
// come back already scaled by the configured points multiplier.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/arenalabs/motionduel/internal/domain/model"
	"github.com/arenalabs/motionduel/internal/domain/scoring"
	"github.com/arenalabs/motionduel/pkg/logger"
	"github.com/arenalabs/motionduel/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout     = 5 * time.Second
	defaultService     = "smart"
	defaultServicePath = "/"
)

// Reader is the score readout contract consumed by the orchestrator.
type Reader interface {
	// Scores returns the current per-axis magnitudes for a wristband.
	// Failed or missing axes read as zero; the error reports a readout
	// where no axis could be fetched at all.
	Scores(ctx context.Context, bandID string) (scoring.Sample, error)
}

// Client implements Reader against an NGSI entity API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	service     string
	servicePath string
	multiplier  float64
	logger      logger.Logger
}

// NewClient creates a telemetry client for the given entity API base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  &http.Client{Timeout: defaultTimeout},
		service:     defaultService,
		servicePath: defaultServicePath,
		multiplier:  1.0,
		logger:      logger.Get().Named("telemetry"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// attrValue mirrors the entity attribute read shape.
type attrValue struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// Scores fetches scoreX, scoreY, and scoreZ concurrently and applies the
// multiplier. A band that reports nothing scores zero.
func (c *Client) Scores(ctx context.Context, bandID string) (scoring.Sample, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveTelemetryLatency(float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordTelemetryRead()

	axes := []model.Axis{model.AxisX, model.AxisY, model.AxisZ}
	values := make([]float64, len(axes))
	errs := make([]error, len(axes))

	var wg sync.WaitGroup
	for i, axis := range axes {
		wg.Add(1)
		go func(i int, axis model.Axis) {
			defer wg.Done()
			values[i], errs[i] = c.readAxis(ctx, bandID, axis)
		}(i, axis)
	}
	wg.Wait()

	sample := scoring.Sample{X: values[0], Y: values[1], Z: values[2]}

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			c.logger.Debug(ctx, "axis readout failed",
				logger.String("band", bandID),
				logger.String("axis", string(axes[i])),
				logger.Error(err),
			)
		}
	}
	if failed == len(axes) {
		metrics.RecordTelemetryError()
		return sample, fmt.Errorf("%w: band %s", ErrReadFailed, bandID)
	}
	return sample, nil
}

func (c *Client) readAxis(ctx context.Context, bandID string, axis model.Axis) (float64, error) {
	url := fmt.Sprintf("%s/%s/attrs/score%s", c.baseURL, EntityID(bandID), axis)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrReadFailed, resp.StatusCode)
	}

	var attr attrValue
	if err := json.NewDecoder(resp.Body).Decode(&attr); err != nil {
		return 0, fmt.Errorf("decode score%s: %w", axis, err)
	}
	return attr.Value * c.multiplier, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("fiware-service", c.service)
	req.Header.Set("fiware-servicepath", c.servicePath)
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
}

// EntityID maps a short wristband id to its entity name, zero-padding to the
// three digits the device registry uses.
func EntityID(bandID string) string {
	id := bandID
	for len(id) < 3 {
		id = "0" + id
	}
	return "urn:ngsi-ld:Band:" + id
}
