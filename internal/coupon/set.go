package coupon

import (
	"fmt"
	"sort"
	"strings"

	"marketplace/internal/model"
)

// Set holds coupon definitions keyed by normalised code.
type Set struct {
	coupons map[string]*model.Coupon
}

// NewSet creates an empty set.
func NewSet(capacity int) *Set {
	return &Set{coupons: make(map[string]*model.Coupon, capacity)}
}

// NormaliseCode trims and upper-cases a coupon code.
func NormaliseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Add inserts c. A code already present is rejected.
func (s *Set) Add(c *model.Coupon) error {
	c.Code = NormaliseCode(c.Code)
	if _, exists := s.coupons[c.Code]; exists {
		return fmt.Errorf("duplicate coupon code %q", c.Code)
	}
	s.coupons[c.Code] = c
	return nil
}

// Merge adds every coupon of other, failing on the first duplicate.
func (s *Set) Merge(other *Set) error {
	for _, c := range other.Coupons() {
		if err := s.Add(c); err != nil {
			return err
		}
	}
	return nil
}

// Contains checks if a coupon code exists in the set.
func (s *Set) Contains(code string) bool {
	_, exists := s.coupons[NormaliseCode(code)]
	return exists
}

// Get returns the definition stored under code.
func (s *Set) Get(code string) (*model.Coupon, bool) {
	c, ok := s.coupons[NormaliseCode(code)]
	return c, ok
}

// Size returns the number of coupons in the set.
func (s *Set) Size() int {
	return len(s.coupons)
}

// Coupons returns the definitions ordered by code.
func (s *Set) Coupons() []*model.Coupon {
	out := make([]*model.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
