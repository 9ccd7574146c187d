package harvest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config_schema.json
var configSchemaDoc string

// Config carries every tunable the harvesting subsystem uses. The scoring
// constants were tuned empirically; treat them as knobs, not contract.
// Regenerate config_schema.json with cmd/schema after changing fields.
type Config struct {
	// Scan ranges and scoring.
	CloseScanRange float64 `yaml:"close_scan_range" json:"close_scan_range" jsonschema:"minimum=1"`
	FarScanRange   float64 `yaml:"far_scan_range" json:"far_scan_range" jsonschema:"minimum=1"`
	HeightPenalty  float64 `yaml:"height_penalty" json:"height_penalty"`
	ProximityBonus float64 `yaml:"proximity_bonus" json:"proximity_bonus"`
	ProximityRange float64 `yaml:"proximity_range" json:"proximity_range"`
	ReachableBonus float64 `yaml:"reachable_bonus" json:"reachable_bonus"`
	ScanBufferCap  int     `yaml:"scan_buffer_cap" json:"scan_buffer_cap" jsonschema:"minimum=1"`

	// Blacklist.
	BlacklistTTL float64 `yaml:"blacklist_ttl" json:"blacklist_ttl"`

	// Controller timers (sim-seconds, tick-delta driven).
	IdleScanInterval          float64 `yaml:"idle_scan_interval" json:"idle_scan_interval"`
	TargetLockSeconds         float64 `yaml:"target_lock_seconds" json:"target_lock_seconds"`
	InteractionRecalcInterval float64 `yaml:"interaction_recalc_interval" json:"interaction_recalc_interval"`
	MaxVerticalOffset         float64 `yaml:"max_vertical_offset" json:"max_vertical_offset"`
	HysteresisMinSlack        float64 `yaml:"hysteresis_min_slack" json:"hysteresis_min_slack"`
	HysteresisMaxSlack        float64 `yaml:"hysteresis_max_slack" json:"hysteresis_max_slack"`

	// Attack loop.
	AttackCooldown      float64 `yaml:"attack_cooldown" json:"attack_cooldown"`
	AttackRetryCooldown float64 `yaml:"attack_retry_cooldown" json:"attack_retry_cooldown"`
	LOSFailureLimit     int     `yaml:"los_failure_limit" json:"los_failure_limit"`
	StaminaPerSwing     float64 `yaml:"stamina_per_swing" json:"stamina_per_swing"`
	ToolWearPerUse      float64 `yaml:"tool_wear_per_use" json:"tool_wear_per_use"`
	ToolWarnFraction    float64 `yaml:"tool_warn_fraction" json:"tool_warn_fraction"`

	// Drop collection.
	DropScanRange         float64 `yaml:"drop_scan_range" json:"drop_scan_range"`
	DropMaxRange          float64 `yaml:"drop_max_range" json:"drop_max_range"`
	DropPickupRadius      float64 `yaml:"drop_pickup_radius" json:"drop_pickup_radius"`
	DropPickupInterval    float64 `yaml:"drop_pickup_interval" json:"drop_pickup_interval"`
	DropCollectMaxSeconds float64 `yaml:"drop_collect_max_seconds" json:"drop_collect_max_seconds"`
	DropEmptyScanLimit    int     `yaml:"drop_empty_scan_limit" json:"drop_empty_scan_limit"`

	// Global preconditions.
	EnemyPauseRadius float64 `yaml:"enemy_pause_radius" json:"enemy_pause_radius"`
	MaxLeashDistance float64 `yaml:"max_leash_distance" json:"max_leash_distance"`

	// Hints.
	HintCooldownSeconds float64 `yaml:"hint_cooldown_seconds" json:"hint_cooldown_seconds"`

	AgentClass string `yaml:"agent_class" json:"agent_class"`
}

func DefaultConfig() Config {
	return Config{
		CloseScanRange: 25,
		FarScanRange:   60,
		HeightPenalty:  0.08,
		ProximityBonus: 0.15,
		ProximityRange: 20,
		ReachableBonus: 0.3,
		ScanBufferCap:  128,

		BlacklistTTL: 30,

		IdleScanInterval:          0.5,
		TargetLockSeconds:         3,
		InteractionRecalcInterval: 0.5,
		MaxVerticalOffset:         2.0,
		HysteresisMinSlack:        0.4,
		HysteresisMaxSlack:        0.6,

		AttackCooldown:      2.0,
		AttackRetryCooldown: 0.5,
		LOSFailureLimit:     3,
		StaminaPerSwing:     6,
		ToolWearPerUse:      1,
		ToolWarnFraction:    0.1,

		DropScanRange:         12,
		DropMaxRange:          20,
		DropPickupRadius:      2.0,
		DropPickupInterval:    0.1,
		DropCollectMaxSeconds: 6,
		DropEmptyScanLimit:    3,

		EnemyPauseRadius: 15,
		MaxLeashDistance: 40,

		HintCooldownSeconds: 10,

		AgentClass: "ground",
	}
}

// LoadConfig reads a YAML tuning document, validates it against the embedded
// schema, and overlays it onto the defaults. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(raw)
}

// ParseConfig validates and decodes an in-memory YAML tuning document.
func ParseConfig(raw []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("tuning: %w", err)
	}
	if doc == nil {
		return DefaultConfig(), nil
	}
	if err := validateConfigDoc(doc); err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("tuning: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate applies the cross-field rules the schema cannot express.
func (c Config) Validate() error {
	if c.CloseScanRange <= 0 || c.FarScanRange < c.CloseScanRange {
		return fmt.Errorf("tuning: scan ranges invalid (close=%v far=%v)", c.CloseScanRange, c.FarScanRange)
	}
	if c.ScanBufferCap <= 0 {
		return fmt.Errorf("tuning: scan_buffer_cap must be positive")
	}
	if c.LOSFailureLimit <= 0 {
		return fmt.Errorf("tuning: los_failure_limit must be positive")
	}
	if c.DropEmptyScanLimit <= 0 {
		return fmt.Errorf("tuning: drop_empty_scan_limit must be positive")
	}
	if c.ToolWarnFraction < 0 || c.ToolWarnFraction > 1 {
		return fmt.Errorf("tuning: tool_warn_fraction out of range")
	}
	return nil
}

func validateConfigDoc(doc any) error {
	schema, err := jsonschema.CompileString("config_schema.json", configSchemaDoc)
	if err != nil {
		return fmt.Errorf("tuning schema: %w", err)
	}
	// The schema validator wants JSON-decoded values; round-trip the YAML
	// document through JSON to normalize numbers and maps.
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("tuning: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return fmt.Errorf("tuning: %w", err)
	}
	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("tuning: %w", err)
	}
	return nil
}
