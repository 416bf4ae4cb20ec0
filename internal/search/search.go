// Package search filters in-memory customer and training lists by a free-text
// term. Filtering never modifies the input slice.
package search

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DukeRupert/trainerdesk/internal/domain"
)

// fold lowercases s for case-insensitive comparison. A cases.Caser is not
// safe for concurrent use, so one is built per call.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

func contains(field, term string) bool {
	return strings.Contains(fold(field), term)
}

// MatchCustomer reports whether term occurs in the customer's first name,
// last name, email or city.
func MatchCustomer(c domain.Customer, term string) bool {
	term = fold(term)
	if term == "" {
		return true
	}
	return contains(c.Firstname, term) ||
		contains(c.Lastname, term) ||
		contains(c.Email, term) ||
		contains(c.City, term)
}

// MatchTraining reports whether term occurs in the activity or in the
// embedded customer's "firstname lastname". A training without a customer
// only matches on activity.
func MatchTraining(t domain.Training, term string) bool {
	term = fold(term)
	if term == "" {
		return true
	}
	if contains(t.Activity, term) {
		return true
	}
	if t.Customer == nil {
		return false
	}
	return contains(t.Customer.FullName(), term)
}

// Customers returns the customers matching term, in order.
func Customers(seq []domain.Customer, term string) []domain.Customer {
	return filter(seq, term, MatchCustomer)
}

// Trainings returns the trainings matching term, in order.
func Trainings(seq []domain.Training, term string) []domain.Training {
	return filter(seq, term, MatchTraining)
}

func filter[T any](seq []T, term string, match func(T, string) bool) []T {
	out := make([]T, 0, len(seq))
	for _, x := range seq {
		if match(x, term) {
			out = append(out, x)
		}
	}
	return out
}
