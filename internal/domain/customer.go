// Package domain contains core business types shared by the API client,
// the view controllers and the HTTP handlers.
//
// This file defines the Customer type as the remote personal-trainer API
// serves it (HAL-style, addressed by its self link).
package domain

import (
	"strconv"
	"strings"
)

// =============================================================================
// Hypermedia Links
// =============================================================================

// Link is a single HAL link object.
type Link struct {
	Href string `json:"href"`
}

// Links is the "_links" object of a HAL resource keyed by relation name.
type Links map[string]Link

// Self returns the href of the "self" relation, or "".
func (l Links) Self() string {
	if l == nil {
		return ""
	}
	return strings.TrimSpace(l["self"].Href)
}

// =============================================================================
// Customer Domain Type
// =============================================================================

// CustomerLocator is the absolute URL of a customer resource. Customers are
// updated and deleted through it, never through a numeric id.
type CustomerLocator string

// String returns the locator as a plain string.
func (l CustomerLocator) String() string {
	return string(l)
}

// Customer is a personal-training customer.
type Customer struct {
	ID            int64  `json:"id,omitempty"`
	Firstname     string `json:"firstname"`
	Lastname      string `json:"lastname"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	StreetAddress string `json:"streetaddress"`
	Postcode      string `json:"postcode"`
	City          string `json:"city"`
	Links         Links  `json:"_links,omitempty"`
}

// Locator returns the customer's self link. It is empty for customers the
// server never addressed, which makes them read-only.
func (c Customer) Locator() CustomerLocator {
	return CustomerLocator(c.Links.Self())
}

// HasLocator reports whether the customer can be updated or deleted.
func (c Customer) HasLocator() bool {
	return c.Locator() != ""
}

// Key returns the identity used to match a customer inside a local list.
// The self link wins; the numeric id is the fallback for embedded copies.
func (c Customer) Key() string {
	if loc := c.Locator(); loc != "" {
		return string(loc)
	}
	if c.ID != 0 {
		return "id:" + strconv.FormatInt(c.ID, 10)
	}
	return ""
}

// FullName returns "firstname lastname".
func (c Customer) FullName() string {
	return c.Firstname + " " + c.Lastname
}

// Input returns the editable fields of the customer, used to prefill the
// edit dialog.
func (c Customer) Input() CustomerInput {
	return CustomerInput{
		Firstname:     c.Firstname,
		Lastname:      c.Lastname,
		Email:         c.Email,
		Phone:         c.Phone,
		StreetAddress: c.StreetAddress,
		Postcode:      c.Postcode,
		City:          c.City,
	}
}

// =============================================================================
// Customer Input
// =============================================================================

// CustomerInput is the request body for creating or fully replacing a
// customer. All seven fields are required.
type CustomerInput struct {
	Firstname     string `json:"firstname" validate:"required"`
	Lastname      string `json:"lastname" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required"`
	StreetAddress string `json:"streetaddress" validate:"required"`
	Postcode      string `json:"postcode" validate:"required"`
	City          string `json:"city" validate:"required"`
}

// CustomerInputFromFields builds an input from a flat form field map.
// Values are trimmed; unknown keys are ignored.
func CustomerInputFromFields(fields map[string]string) CustomerInput {
	get := func(key string) string {
		return strings.TrimSpace(fields[key])
	}
	return CustomerInput{
		Firstname:     get("firstname"),
		Lastname:      get("lastname"),
		Email:         get("email"),
		Phone:         get("phone"),
		StreetAddress: get("streetaddress"),
		Postcode:      get("postcode"),
		City:          get("city"),
	}
}

// Fields returns the input as a flat field map keyed by wire name.
func (in CustomerInput) Fields() map[string]string {
	return map[string]string{
		"firstname":     in.Firstname,
		"lastname":      in.Lastname,
		"email":         in.Email,
		"phone":         in.Phone,
		"streetaddress": in.StreetAddress,
		"postcode":      in.Postcode,
		"city":          in.City,
	}
}

// Validate checks that every field is present and the email is well formed.
func (in CustomerInput) Validate() error {
	return validateStruct("customer.validate", in)
}
