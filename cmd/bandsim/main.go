// bandsim is a local stand-in for the wristband platform: it serves the
// entity API (per-axis score reads, on/off capture commands) and the device
// registry, with simulated motion while capture is on. Point the service at
// it to run matches without hardware.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Default configuration constants.
const (
	defaultAddr     = ":1026"
	defaultBands    = 4
	defaultMaxScore = 15.0
)

type band struct {
	mu        sync.Mutex
	capturing bool
	scores    [3]float64 // X, Y, Z
}

type simulator struct {
	mu       sync.Mutex
	bands    map[string]*band
	maxScore float64
}

func newSimulator(count int, maxScore float64) *simulator {
	s := &simulator{bands: make(map[string]*band), maxScore: maxScore}
	for i := 1; i <= count; i++ {
		s.bands[fmt.Sprintf("urn:ngsi-ld:Band:%03d", i)] = &band{}
	}
	return s
}

func (s *simulator) get(entity string) *band {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bands[entity]
}

// drift nudges every capturing band's scores toward new random values.
func (s *simulator) drift() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bands {
		b.mu.Lock()
		if b.capturing {
			for i := range b.scores {
				b.scores[i] += rand.Float64() * s.maxScore / 5
				if b.scores[i] > s.maxScore {
					b.scores[i] = s.maxScore
				}
			}
		}
		b.mu.Unlock()
	}
}

// handleAttr serves GET /v2/entities/{entity}/attrs/scoreX and
// PATCH /v2/entities/{entity}/attrs.
func (s *simulator) handleAttr(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v2/entities")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[1] != "attrs" {
		http.NotFound(w, r)
		return
	}
	b := s.get(parts[0])
	if b == nil {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if len(parts) != 3 {
			http.NotFound(w, r)
			return
		}
		axis := strings.TrimPrefix(parts[2], "score")
		idx := strings.Index("XYZ", axis)
		if len(axis) != 1 || idx < 0 {
			http.NotFound(w, r)
			return
		}
		b.mu.Lock()
		value := b.scores[idx]
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"type": "Number", "value": value})

	case http.MethodPatch:
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		if _, ok := body["on"]; ok {
			b.capturing = true
			b.scores = [3]float64{}
		}
		if _, ok := body["off"]; ok {
			b.capturing = false
		}
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDevices serves the registry listing the service discovers bands from.
func (s *simulator) handleDevices(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	type device struct {
		DeviceID   string `json:"device_id"`
		EntityName string `json:"entity_name"`
		EntityType string `json:"entity_type"`
		Transport  string `json:"transport"`
	}
	devices := make([]device, 0, len(s.bands))
	for entity := range s.bands {
		id := entity[strings.LastIndex(entity, ":")+1:]
		devices = append(devices, device{
			DeviceID:   "band" + id,
			EntityName: entity,
			EntityType: "Band",
			Transport:  "MQTT",
		})
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"count": len(devices), "devices": devices})
}

func main() {
	var (
		addr     = flag.String("addr", defaultAddr, "Listen address for the simulated APIs")
		bands    = flag.Int("bands", defaultBands, "Number of simulated wristbands")
		maxScore = flag.Float64("max-score", defaultMaxScore, "Per-axis score ceiling")
		interval = flag.Duration("interval", 200*time.Millisecond, "Score drift interval")
	)
	flag.Parse()

	sim := newSimulator(*bands, *maxScore)
	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for range ticker.C {
			sim.drift()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/iot/devices", sim.handleDevices)
	mux.HandleFunc("/v2/entities/", sim.handleAttr)

	fmt.Printf("bandsim: %d wristbands on %s\n", *bands, *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		os.Stderr.WriteString("bandsim failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
