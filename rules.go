package main

import (
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
)

// ClusterRule overrides scoring and redemption for one cluster label.
type ClusterRule struct {
	AwardPoints  *float64 `json:"awardPoints,omitempty" yaml:"awardPoints,omitempty"`
	Redeemable   bool     `json:"redeemable" yaml:"redeemable"`
	RedeemPoints float64  `json:"redeemPoints" yaml:"redeemPoints"`
}

type GameRules struct {
	EligibleLabelPrefix        string                 `json:"eligibleLabelPrefix" yaml:"eligibleLabelPrefix"`
	PointsPerMemberFirstVisit  float64                `json:"pointsPerMemberFirstVisit" yaml:"pointsPerMemberFirstVisit"`
	PointsPerMemberRepeatVisit float64                `json:"pointsPerMemberRepeatVisit" yaml:"pointsPerMemberRepeatVisit"`
	AwardOnlyFirstVisit        bool                   `json:"awardOnlyFirstVisit" yaml:"awardOnlyFirstVisit"`
	MinGroupSize               int                    `json:"minGroupSize" yaml:"minGroupSize"`
	MaxGroupSize               int                    `json:"maxGroupSize" yaml:"maxGroupSize"`
	MinPointsRequired          float64                `json:"minPointsRequired" yaml:"minPointsRequired"`
	AutoRedeemOnTap            bool                   `json:"autoRedeemOnTap" yaml:"autoRedeemOnTap"`
	ClusterRules               map[string]ClusterRule `json:"clusterRules" yaml:"clusterRules"`
}

// RuleSnapshot is the whole rule document as served and persisted.
type RuleSnapshot struct {
	Enabled bool      `json:"enabled" yaml:"enabled"`
	Rules   GameRules `json:"rules" yaml:"rules"`
}

// RuleStore persists rule snapshots. LoadInto decodes over dst, leaving
// fields absent from the stored document untouched.
type RuleStore interface {
	LoadInto(dst *RuleSnapshot) (bool, error)
	Save(snapshot RuleSnapshot) error
}

func defaultRuleSnapshot() RuleSnapshot {
	return RuleSnapshot{
		Enabled: true,
		Rules: GameRules{
			EligibleLabelPrefix:        "CLUSTER",
			PointsPerMemberFirstVisit:  1,
			PointsPerMemberRepeatVisit: 0,
			AwardOnlyFirstVisit:        true,
			MinGroupSize:               1,
			MaxGroupSize:               9999,
			MinPointsRequired:          3,
			ClusterRules:               map[string]ClusterRule{},
		},
	}
}

func (s RuleSnapshot) clone() RuleSnapshot {
	out := s
	out.Rules.ClusterRules = make(map[string]ClusterRule, len(s.Rules.ClusterRules))
	for key, rule := range s.Rules.ClusterRules {
		if rule.AwardPoints != nil {
			v := *rule.AwardPoints
			rule.AwardPoints = &v
		}
		out.Rules.ClusterRules[key] = rule
	}
	return out
}

// RuleConfig holds the live rule set. One instance is shared by the scoring
// engine, the redemption path and the HTTP surface.
type RuleConfig struct {
	mu      sync.RWMutex
	current RuleSnapshot
	store   RuleStore
	logger  *slog.Logger
}

// NewRuleConfig starts from the built-in defaults and overlays whatever the
// store holds. A broken store document is logged and ignored.
func NewRuleConfig(store RuleStore, logger *slog.Logger) *RuleConfig {
	if logger == nil {
		logger = slog.Default()
	}
	c := &RuleConfig{
		current: defaultRuleSnapshot(),
		store:   store,
		logger:  logger,
	}
	if store == nil {
		return c
	}

	loaded := defaultRuleSnapshot()
	ok, err := store.LoadInto(&loaded)
	if err != nil {
		logger.Warn("rule config load failed; using defaults", "error", err)
		return c
	}
	if ok {
		loaded.Rules.ClusterRules = normalizeClusterKeys(loaded.Rules.ClusterRules)
		c.current = loaded
		logger.Info("rule config loaded", "enabled", loaded.Enabled, "clusters", len(loaded.Rules.ClusterRules))
	}
	return c
}

func (c *RuleConfig) Get() RuleSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.clone()
}

func (c *RuleConfig) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Enabled
}

// Update merges a decoded JSON patch. enabled is applied only when it is a
// boolean and rules only when it is an object; clusterRules entries are
// merged by normalized label, and a null entry removes that cluster.
func (c *RuleConfig) Update(partial map[string]any) RuleSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if enabled, ok := partial["enabled"].(bool); ok {
		c.current.Enabled = enabled
	}
	if rules, ok := partial["rules"].(map[string]any); ok {
		mergeRules(&c.current.Rules, rules)
	}

	snapshot := c.current.clone()
	c.persist(snapshot)
	return snapshot
}

// Reset restores the built-in defaults.
func (c *RuleConfig) Reset() RuleSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = defaultRuleSnapshot()
	snapshot := c.current.clone()
	c.persist(snapshot)
	return snapshot
}

// GetRule returns a rule by its JSON key, or fallback for unknown keys.
func (c *RuleConfig) GetRule(key string, fallback any) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r := c.current.Rules
	switch key {
	case "eligibleLabelPrefix":
		return r.EligibleLabelPrefix
	case "pointsPerMemberFirstVisit", "pointsPerFirstVisit":
		return r.PointsPerMemberFirstVisit
	case "pointsPerMemberRepeatVisit", "pointsPerRepeatVisit":
		return r.PointsPerMemberRepeatVisit
	case "awardOnlyFirstVisit":
		return r.AwardOnlyFirstVisit
	case "minGroupSize":
		return r.MinGroupSize
	case "maxGroupSize":
		return r.MaxGroupSize
	case "minPointsRequired":
		return r.MinPointsRequired
	case "autoRedeemOnTap":
		return r.AutoRedeemOnTap
	default:
		return fallback
	}
}

func (c *RuleConfig) GetClusterRule(label string) (ClusterRule, bool) {
	key := NormalizeLabel(label)
	c.mu.RLock()
	defer c.mu.RUnlock()
	rule, ok := c.current.Rules.ClusterRules[key]
	if ok && rule.AwardPoints != nil {
		v := *rule.AwardPoints
		rule.AwardPoints = &v
	}
	return rule, ok
}

// Clusters lists the configured cluster labels in order.
func (c *RuleConfig) Clusters() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.current.Rules.ClusterRules))
	for key := range c.current.Rules.ClusterRules {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// persist must be called with c.mu held.
func (c *RuleConfig) persist(snapshot RuleSnapshot) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(snapshot); err != nil {
		c.logger.Warn("rule config persist failed", "error", err)
	}
}

func mergeRules(target *GameRules, patch map[string]any) {
	for key, raw := range patch {
		switch key {
		case "eligibleLabelPrefix":
			if v, ok := raw.(string); ok {
				target.EligibleLabelPrefix = v
			}
		case "pointsPerMemberFirstVisit", "pointsPerFirstVisit":
			if v, ok := numberValue(raw); ok {
				target.PointsPerMemberFirstVisit = v
			}
		case "pointsPerMemberRepeatVisit", "pointsPerRepeatVisit":
			if v, ok := numberValue(raw); ok {
				target.PointsPerMemberRepeatVisit = v
			}
		case "awardOnlyFirstVisit":
			if v, ok := raw.(bool); ok {
				target.AwardOnlyFirstVisit = v
			}
		case "minGroupSize":
			if v, ok := intValue(raw); ok {
				target.MinGroupSize = v
			}
		case "maxGroupSize":
			if v, ok := intValue(raw); ok {
				target.MaxGroupSize = v
			}
		case "minPointsRequired":
			if v, ok := numberValue(raw); ok {
				target.MinPointsRequired = v
			}
		case "autoRedeemOnTap":
			if v, ok := raw.(bool); ok {
				target.AutoRedeemOnTap = v
			}
		case "clusterRules":
			if v, ok := raw.(map[string]any); ok {
				mergeClusterRules(target, v)
			}
		}
	}
}

func mergeClusterRules(target *GameRules, patch map[string]any) {
	if target.ClusterRules == nil {
		target.ClusterRules = map[string]ClusterRule{}
	}
	for label, raw := range patch {
		key := NormalizeLabel(label)
		if key == "" {
			continue
		}
		if raw == nil {
			delete(target.ClusterRules, key)
			continue
		}
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		target.ClusterRules[key] = clusterRuleFromMap(fields)
	}
}

func clusterRuleFromMap(fields map[string]any) ClusterRule {
	var rule ClusterRule
	if v, ok := numberValue(fields["awardPoints"]); ok {
		rule.AwardPoints = &v
	}
	if v, ok := fields["redeemable"].(bool); ok {
		rule.Redeemable = v
	}
	if v, ok := numberValue(fields["redeemPoints"]); ok {
		rule.RedeemPoints = v
	}
	return rule
}

func normalizeClusterKeys(in map[string]ClusterRule) map[string]ClusterRule {
	out := make(map[string]ClusterRule, len(in))
	for label, rule := range in {
		if key := NormalizeLabel(label); key != "" {
			out[key] = rule
		}
	}
	return out
}

func numberValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func intValue(raw any) (int, bool) {
	v, ok := numberValue(raw)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	switch {
	case v >= math.MaxInt:
		return math.MaxInt, true
	case v <= math.MinInt:
		return math.MinInt, true
	}
	return int(v), true
}

// wholePoints turns a configured point value into an award amount. Values
// that are negative or not finite award nothing.
func wholePoints(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Floor(v))
}

func trimmedLower(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
