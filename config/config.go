// Package config implements the JSON key/value configuration surface:
// reads and writes flow over the same serial channel as G-code, with
// active-comment JSON carried inline. It is a flat string-keyed
// registry with typed get/set and min/max range validation (an
// out-of-range Set is rejected and the field keeps its prior value).
// Serialization uses stdlib encoding/json — see DESIGN.md for why no
// third-party JSON library from the pack applies here.
package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// ErrOutOfRange is returned (and the field left untouched) when Set
// receives a value outside a field's configured [min, max].
type ErrOutOfRange struct {
	Key        string
	Value, Min, Max float64
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("config: %s=%v out of range [%v,%v]", e.Key, e.Value, e.Min, e.Max)
}

// field holds one registry entry: its current value and its bounds.
// Bounds with Min == Max == 0 are treated as unbounded.
type field struct {
	value    float64
	min, max float64
	bounded  bool
}

// Registry is the live configuration store, keyed by dotted identifiers
// like "axis.x.feedrate_max" or "axis.x.jerk". Safe for concurrent use:
// the controller loop ($-line and inline-JSON writes) and the canonical
// machine (junction-integration reads) both touch it.
type Registry struct {
	mu     sync.RWMutex
	fields map[string]*field
}

func New() *Registry {
	return &Registry{fields: make(map[string]*field)}
}

// Declare registers a key with an initial value and optional [min,max]
// bounds (pass min==max==0 for unbounded, e.g. booleans encoded as 0/1
// or coordinate offsets).
func (r *Registry) Declare(key string, initial, min, max float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[key] = &field{value: initial, min: min, max: max, bounded: min != 0 || max != 0}
}

// Get returns the current value of key and whether it exists.
func (r *Registry) Get(key string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fields[key]
	if !ok {
		return 0, false
	}
	return f.value, true
}

// Set assigns value to key, validating range first. On a range
// violation the field keeps its prior value and Set returns
// *ErrOutOfRange.
func (r *Registry) Set(key string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.fields[key]
	if !ok {
		f = &field{}
		r.fields[key] = f
	}
	if f.bounded && (value < f.min || value > f.max) {
		glog.Infof("config: rejecting %s=%v, out of [%v,%v]", key, value, f.min, f.max)
		return &ErrOutOfRange{Key: key, Value: value, Min: f.min, Max: f.max}
	}
	f.value = value
	return nil
}

// Snapshot renders the whole registry as a JSON object, the shape used
// for responding to a bare "$$" dump request on the config surface.
func (r *Registry) Snapshot() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flat := make(map[string]float64, len(r.fields))
	for k, f := range r.fields {
		flat[k] = f.value
	}
	return json.Marshal(flat)
}

// ActiveComment is the merged payload produced by the G-code parser's
// normalization step for "({...})" and "(MSG ...)" comments: a single
// trailing JSON object attached to the block.
type ActiveComment struct {
	Msg    string                 `json:"msg,omitempty"`
	Fields map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Fields alongside Msg into one JSON object.
func (a ActiveComment) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(a.Fields)+1)
	for k, v := range a.Fields {
		out[k] = v
	}
	if a.Msg != "" {
		out["msg"] = a.Msg
	}
	return json.Marshal(out)
}
