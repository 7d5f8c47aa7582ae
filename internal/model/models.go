package model

import (
	"fmt"
	"strings"
)

// Family is the address family of a delegation record.
type Family string

const (
	FamilyIPv4 Family = "ipv4"
	FamilyIPv6 Family = "ipv6"
)

// ParseFamily normalizes a caller-supplied family name.
func ParseFamily(s string) (Family, error) {
	switch Family(strings.ToLower(s)) {
	case FamilyIPv4:
		return FamilyIPv4, nil
	case FamilyIPv6:
		return FamilyIPv6, nil
	default:
		return "", fmt.Errorf("%w: unknown address family %q", ErrInvalidArgument, s)
	}
}

// IsCountryCode reports whether s is a two-letter country code, in
// either case. No cross-check against an ISO-3166 list.
func IsCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// AllocationRecord is one validated address block from a delegation file.
type AllocationRecord struct {
	Country string `json:"country"`
	Family  Family `json:"family"`
	CIDR    string `json:"cidr"`
}

// AllocationIndex is the queryable snapshot for one registry: family ->
// country code -> CIDR blocks in source-file order. Both family keys are
// always present. An index is immutable once built; a refresh replaces it
// wholesale.
type AllocationIndex map[Family]map[string][]string

// NewAllocationIndex returns an index with both family maps allocated.
func NewAllocationIndex() AllocationIndex {
	return AllocationIndex{
		FamilyIPv4: {},
		FamilyIPv6: {},
	}
}

// Add appends a record to its country bucket, preserving insertion order.
func (idx AllocationIndex) Add(rec AllocationRecord) {
	idx[rec.Family][rec.Country] = append(idx[rec.Family][rec.Country], rec.CIDR)
}

// Blocks returns the CIDR list for one country, or nil if the country has
// no allocations for that family.
func (idx AllocationIndex) Blocks(family Family, country string) []string {
	return idx[family][country]
}

// Countries returns the full per-country mapping for one family.
func (idx AllocationIndex) Countries(family Family) map[string][]string {
	return idx[family]
}

// EnsureFamilies backfills missing family keys after deserialization so
// callers never have to special-case an absent family.
func (idx AllocationIndex) EnsureFamilies() AllocationIndex {
	if idx == nil {
		idx = AllocationIndex{}
	}
	for _, f := range []Family{FamilyIPv4, FamilyIPv6} {
		if idx[f] == nil {
			idx[f] = map[string][]string{}
		}
	}
	return idx
}

// Error is the JSON error envelope returned by the HTTP surface.
type Error struct {
	Message string `json:"message"`
}
