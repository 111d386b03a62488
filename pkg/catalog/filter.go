package catalog

import "strings"

// AllSentinel is the select-box value meaning "no restriction"
const AllSentinel = "all"

// Predicate decides whether an item is kept
type Predicate func(Item) bool

// inactive reports whether a criterion value disables its predicate
func inactive(value string) bool {
	return value == "" || value == AllSentinel
}

func always(Item) bool { return true }

// Search matches when any of fields contains term, ignoring case.
func Search(term string, fields ...Field) Predicate {
	if term == "" {
		return always
	}
	needle := strings.ToLower(term)
	return func(it Item) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(it.Field(f)), needle) {
				return true
			}
		}
		return false
	}
}

// Equals matches when field equals value exactly
func Equals(field Field, value string) Predicate {
	if inactive(value) {
		return always
	}
	return func(it Item) bool { return it.Field(field) == value }
}

// Contains matches when field contains value. The match is case sensitive.
func Contains(field Field, value string) Predicate {
	if inactive(value) {
		return always
	}
	return func(it Item) bool { return strings.Contains(it.Field(field), value) }
}

// Filter returns the items for which every predicate holds, in source order.
// The source slice is not modified and the result never aliases it.
func Filter(items []Item, predicates ...Predicate) []Item {
	out := make([]Item, 0, len(items))
next:
	for _, it := range items {
		for _, p := range predicates {
			if !p(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}
