// Package runtimeconfig holds the small set of process-wide knobs the spec's
// `configure` operation mutates at runtime (spec §6), distinct from
// internal/config's load-time YAML/env settings: this is live state read by
// internal/search.Engine and internal/capture on every call, not parsed once
// at startup. Grounded on the teacher's atomic-swap pattern in
// internal/initiative (per-field mutation under a lock), generalized from
// "one struct, one mutex" to "one atomic.Value snapshot swapped whole,"
// which keeps readers lock-free.
package runtimeconfig

import (
	"fmt"
	"sync/atomic"
)

// LLMProvider is the closed set of `llm_provider` values (spec §6).
type LLMProvider string

const (
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderClaudeCLI LLMProvider = "claude-cli"
	ProviderOllama    LLMProvider = "ollama"
	ProviderOpenRouter LLMProvider = "openrouter"
	ProviderNone      LLMProvider = "none"
)

func (p LLMProvider) valid() bool {
	switch p {
	case ProviderAnthropic, ProviderClaudeCLI, ProviderOllama, ProviderOpenRouter, ProviderNone:
		return true
	default:
		return false
	}
}

// Autocapture holds the session-capture significance thresholds and the
// sync-mode timeout (spec §4.8, §6).
type Autocapture struct {
	Enabled      bool
	Async        bool
	SyncTimeout  int // seconds, clamped [10, 300]
	MinTokens    int
	MinToolCalls int
	MinFileEdits int
}

// Config is the full mutable knob set (spec §6 `configure`).
type Config struct {
	Enabled             bool
	MinScore            float64 // clamped [0, 1]
	Verbose             bool
	TopKRetrieve        int     // clamped [10, 200]
	TopKRerank          int     // clamped [1, 50]
	LLMProvider         LLMProvider
	RecencyBoost        bool
	RecencyHalfLifeDays int // clamped [1, 365]
	Autocapture         Autocapture
}

// Default returns the spec's documented defaults.
func Default() Config {
	return Config{
		Enabled:             true,
		MinScore:            0.5,
		TopKRetrieve:        50,
		TopKRerank:          20,
		LLMProvider:         ProviderAnthropic,
		RecencyBoost:        true,
		RecencyHalfLifeDays: 30,
		Autocapture: Autocapture{
			Enabled: true, Async: true, SyncTimeout: 60,
			MinTokens: 5000, MinToolCalls: 3, MinFileEdits: 1,
		},
	}
}

// Store is a process-wide, swap-whole-snapshot config holder. Store.Get is
// lock-free; Store.Apply clamps/validates a partial update and atomically
// publishes a new snapshot, mirroring spec §5's "mutation is atomic per
// field" by always producing a single consistent snapshot rather than
// mutating fields in place under concurrent reads.
type Store struct {
	v atomic.Value
}

// NewStore builds a Store seeded with Default().
func NewStore() *Store {
	s := &Store{}
	s.v.Store(Default())
	return s
}

// Get returns the current snapshot.
func (s *Store) Get() Config {
	return s.v.Load().(Config)
}

// Patch is a partial update; nil/zero-value fields are left unchanged
// except where the field's zero value is itself meaningful (bools use
// pointers so "unset" and "false" are distinguishable).
type Patch struct {
	Enabled             *bool
	MinScore            *float64
	Verbose             *bool
	TopKRetrieve        *int
	TopKRerank          *int
	LLMProvider         *string
	RecencyBoost        *bool
	RecencyHalfLifeDays *int
	Autocapture         *AutocapturePatch
}

// AutocapturePatch partially updates Config.Autocapture.
type AutocapturePatch struct {
	Enabled      *bool
	Async        *bool
	SyncTimeout  *int
	MinTokens    *int
	MinToolCalls *int
	MinFileEdits *int
}

// Apply clamps and validates p against the current snapshot, publishes the
// result, and returns it alongside the set of field names actually changed
// (spec §6 `configure`: "echoed changed fields").
func (s *Store) Apply(p Patch) (Config, []string, error) {
	cur := s.Get()
	var changed []string

	if p.Enabled != nil && *p.Enabled != cur.Enabled {
		cur.Enabled = *p.Enabled
		changed = append(changed, "enabled")
	}
	if p.MinScore != nil {
		v := clampF(*p.MinScore, 0, 1)
		if v != cur.MinScore {
			cur.MinScore = v
			changed = append(changed, "min_score")
		}
	}
	if p.Verbose != nil && *p.Verbose != cur.Verbose {
		cur.Verbose = *p.Verbose
		changed = append(changed, "verbose")
	}
	if p.TopKRetrieve != nil {
		v := clampI(*p.TopKRetrieve, 10, 200)
		if v != cur.TopKRetrieve {
			cur.TopKRetrieve = v
			changed = append(changed, "top_k_retrieve")
		}
	}
	if p.TopKRerank != nil {
		v := clampI(*p.TopKRerank, 1, 50)
		if v != cur.TopKRerank {
			cur.TopKRerank = v
			changed = append(changed, "top_k_rerank")
		}
	}
	if p.LLMProvider != nil {
		lp := LLMProvider(*p.LLMProvider)
		if !lp.valid() {
			return cur, nil, fmt.Errorf("invalid llm_provider %q", *p.LLMProvider)
		}
		if lp != cur.LLMProvider {
			cur.LLMProvider = lp
			changed = append(changed, "llm_provider")
		}
	}
	if p.RecencyBoost != nil && *p.RecencyBoost != cur.RecencyBoost {
		cur.RecencyBoost = *p.RecencyBoost
		changed = append(changed, "recency_boost")
	}
	if p.RecencyHalfLifeDays != nil {
		v := clampI(*p.RecencyHalfLifeDays, 1, 365)
		if v != cur.RecencyHalfLifeDays {
			cur.RecencyHalfLifeDays = v
			changed = append(changed, "recency_half_life_days")
		}
	}
	if p.Autocapture != nil {
		ac := p.Autocapture
		if ac.Enabled != nil && *ac.Enabled != cur.Autocapture.Enabled {
			cur.Autocapture.Enabled = *ac.Enabled
			changed = append(changed, "autocapture.enabled")
		}
		if ac.Async != nil && *ac.Async != cur.Autocapture.Async {
			cur.Autocapture.Async = *ac.Async
			changed = append(changed, "autocapture.async")
		}
		if ac.SyncTimeout != nil {
			v := clampI(*ac.SyncTimeout, 10, 300)
			if v != cur.Autocapture.SyncTimeout {
				cur.Autocapture.SyncTimeout = v
				changed = append(changed, "autocapture.sync_timeout")
			}
		}
		if ac.MinTokens != nil && *ac.MinTokens != cur.Autocapture.MinTokens {
			cur.Autocapture.MinTokens = *ac.MinTokens
			changed = append(changed, "autocapture.min_tokens")
		}
		if ac.MinToolCalls != nil && *ac.MinToolCalls != cur.Autocapture.MinToolCalls {
			cur.Autocapture.MinToolCalls = *ac.MinToolCalls
			changed = append(changed, "autocapture.min_tool_calls")
		}
		if ac.MinFileEdits != nil && *ac.MinFileEdits != cur.Autocapture.MinFileEdits {
			cur.Autocapture.MinFileEdits = *ac.MinFileEdits
			changed = append(changed, "autocapture.min_file_edits")
		}
	}

	s.v.Store(cur)
	return cur, changed, nil
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
