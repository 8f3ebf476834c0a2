package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type StatusEntry struct {
	Status OrderStatus
	At     time.Time
}

// StatusHistory maps each status an order passed through to the time it was
// set. It marshals as a JSON object whose key order is the transition order.
// Setting a status again overwrites its time and keeps its position.
type StatusHistory struct {
	entries []StatusEntry
}

func NewStatusHistory(entries ...StatusEntry) StatusHistory {
	var h StatusHistory
	for _, e := range entries {
		h.Set(e.Status, e.At)
	}
	return h
}

func (h *StatusHistory) Set(status OrderStatus, at time.Time) {
	for i := range h.entries {
		if h.entries[i].Status == status {
			h.entries[i].At = at
			return
		}
	}
	h.entries = append(h.entries, StatusEntry{Status: status, At: at})
}

func (h StatusHistory) Get(status OrderStatus) (time.Time, bool) {
	for _, e := range h.entries {
		if e.Status == status {
			return e.At, true
		}
	}
	return time.Time{}, false
}

func (h StatusHistory) Has(status OrderStatus) bool {
	_, ok := h.Get(status)
	return ok
}

func (h StatusHistory) Len() int { return len(h.entries) }

// Entries returns a copy in transition order.
func (h StatusHistory) Entries() []StatusEntry {
	out := make([]StatusEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h StatusHistory) Clone() StatusHistory {
	if h.entries == nil {
		return StatusHistory{}
	}
	return StatusHistory{entries: h.Entries()}
}

func (h StatusHistory) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range h.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(e.Status))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.At)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (h *StatusHistory) UnmarshalJSON(data []byte) error {
	h.entries = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("statusHistory: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("statusHistory: expected key, got %v", tok)
		}
		var at time.Time
		if err := dec.Decode(&at); err != nil {
			return fmt.Errorf("statusHistory[%s]: %w", key, err)
		}
		h.Set(OrderStatus(key), at)
	}
	_, err = dec.Token()
	return err
}
