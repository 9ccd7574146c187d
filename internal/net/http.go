package net

import (
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"time"

	"harvest-and-haul/server/internal/harvest"
	"harvest-and-haul/server/internal/telemetry"
)

// Diagnostics is the /diagnostics payload.
type Diagnostics struct {
	Status          string  `json:"status"`
	ServerTime      int64   `json:"serverTime"`
	Tick            uint64  `json:"tick"`
	Mode            string  `json:"mode"`
	ControllerState string  `json:"controllerState"`
	InventoryWeight float64           `json:"inventoryWeight"`
	GroundDrops     int               `json:"groundDrops"`
	BlacklistSize   int               `json:"blacklistSize"`
	Equipment       map[string]string `json:"equipment,omitempty"`
	EventsTotal     uint64            `json:"eventsTotal"`
	EventsDropped   uint64            `json:"eventsDropped"`
}

// Service is the surface the HTTP layer needs from the simulation runner.
type Service interface {
	Diagnostics() Diagnostics
	SetMode(mode harvest.Mode) error
}

// ParseMode maps the wire name to a harvesting mode.
func ParseMode(name string) (harvest.Mode, error) {
	switch name {
	case "none", "":
		return harvest.ModeNone, nil
	case "gather_wood":
		return harvest.ModeGatherWood, nil
	case "gather_stone":
		return harvest.ModeGatherStone, nil
	case "gather_ore":
		return harvest.ModeGatherOre, nil
	default:
		return harvest.ModeNone, fmt.Errorf("unknown mode %q", name)
	}
}

type HTTPHandlerConfig struct {
	Logger telemetry.Logger
	Feed   *Feed
}

type modeRequest struct {
	Mode string `json:"mode"`
}

// NewHTTPHandler builds the HTTP surface: health, diagnostics, mode control,
// and the websocket event feed.
func NewHTTPHandler(svc Service, cfg HTTPHandlerConfig) nethttp.Handler {
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := svc.Diagnostics()
		payload.Status = "ok"
		payload.ServerTime = time.Now().UnixMilli()
		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/mode", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var req modeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, "invalid body", nethttp.StatusBadRequest)
			return
		}
		mode, err := ParseMode(req.Mode)
		if err != nil {
			httpError(w, err.Error(), nethttp.StatusBadRequest)
			return
		}
		if err := svc.SetMode(mode); err != nil {
			httpError(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})

	if cfg.Feed != nil {
		mux.HandleFunc("/ws", cfg.Feed.ServeWS)
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
