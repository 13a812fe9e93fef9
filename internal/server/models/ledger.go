package models

import (
	"encoding/json"
	"fmt"
	"slices"
)

// UnknownPort marks a ledger entry whose client has not reported a port yet.
const UnknownPort = -1

// UnknownCountry is stored for entries registered without geo information.
const UnknownCountry = "UNKNOWN"

// SlotInfo is the allocator state of one ledger entry: two disjoint sets of
// slot indices that together cover [0, N). Both are kept sorted ascending.
type SlotInfo struct {
	Used   []int `json:"used"`
	Unused []int `json:"unused"`
}

// NewSlotInfo returns a pool of size n with every slot free.
func NewSlotInfo(n int) SlotInfo {
	s := SlotInfo{Used: []int{}, Unused: make([]int, 0, n)}
	for i := 0; i < n; i++ {
		s.Unused = append(s.Unused, i)
	}
	return s
}

// Clone returns a deep copy.
func (s SlotInfo) Clone() SlotInfo {
	return SlotInfo{Used: append([]int{}, s.Used...), Unused: append([]int{}, s.Unused...)}
}

// HasFree reports whether at least one slot can be leased.
func (s SlotInfo) HasFree() bool { return len(s.Unused) > 0 }

// Take moves the lowest free index to Used and returns it.
func (s *SlotInfo) Take() (int, bool) {
	if len(s.Unused) == 0 {
		return 0, false
	}
	slot := slices.Min(s.Unused)
	s.Unused = slices.DeleteFunc(s.Unused, func(v int) bool { return v == slot })
	s.Used = append(s.Used, slot)
	s.normalize()
	return slot, true
}

// Give moves the highest used index back to Unused and returns it.
func (s *SlotInfo) Give() (int, bool) {
	if len(s.Used) == 0 {
		return 0, false
	}
	slot := slices.Max(s.Used)
	s.Used = slices.DeleteFunc(s.Used, func(v int) bool { return v == slot })
	s.Unused = append(s.Unused, slot)
	s.normalize()
	return slot, true
}

func (s *SlotInfo) normalize() {
	if s.Used == nil {
		s.Used = []int{}
	}
	if s.Unused == nil {
		s.Unused = []int{}
	}
	slices.Sort(s.Used)
	slices.Sort(s.Unused)
}

// Validate checks Used ∩ Unused = ∅ and Used ∪ Unused = [0, n).
func (s SlotInfo) Validate(n int) error {
	if len(s.Used)+len(s.Unused) != n {
		return fmt.Errorf("slot info covers %d slots, pool size is %d", len(s.Used)+len(s.Unused), n)
	}
	seen := make([]bool, n)
	for _, set := range [][]int{s.Used, s.Unused} {
		for _, v := range set {
			if v < 0 || v >= n {
				return fmt.Errorf("slot %d out of range [0,%d)", v, n)
			}
			if seen[v] {
				return fmt.Errorf("slot %d listed twice", v)
			}
			seen[v] = true
		}
	}
	return nil
}

// Marshal renders the column value, e.g. {"used":[0],"unused":[1,2]}.
func (s SlotInfo) Marshal() (string, error) {
	c := s.Clone()
	c.normalize()
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseSlotInfo decodes a column value produced by Marshal.
func ParseSlotInfo(raw string) (SlotInfo, error) {
	var s SlotInfo
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return SlotInfo{}, fmt.Errorf("parse slot info: %w", err)
	}
	s.normalize()
	return s, nil
}

// Ledger is one row of the slot ledger: the pool of slots a server entry
// offers, plus the last known network location of its owner.
type Ledger struct {
	OwnerID string
	Address string
	Port    int
	Country string
	Slots   SlotInfo
	// Version is bumped on every mutation and checked by compare-and-swap.
	Version int64
}

// ServerRef identifies the server a lease was taken on.
type ServerRef struct {
	OwnerID string
	Address string
	Port    int
}

// Ref returns the server reference for this entry.
func (l *Ledger) Ref() ServerRef {
	return ServerRef{OwnerID: l.OwnerID, Address: l.Address, Port: l.Port}
}

// Lease is the result of a successful allocation.
type Lease struct {
	Server ServerRef
	Slot   int
	Blob   []byte
}
