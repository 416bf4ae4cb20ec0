package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/DukeRupert/trainerdesk/internal/domain"
)

// customerCollection is the HAL envelope returned by GET /customers.
type customerCollection struct {
	Embedded struct {
		Customers []domain.Customer `json:"customers"`
	} `json:"_embedded"`
}

// ListCustomers returns every customer, unwrapped from the HAL envelope.
func (c *Client) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	const op = "customers.list"

	var result customerCollection
	if err := c.do(ctx, op, http.MethodGet, c.endpoint(customersPath), nil, &result); err != nil {
		return nil, err
	}
	if result.Embedded.Customers == nil {
		return []domain.Customer{}, nil
	}
	return result.Embedded.Customers, nil
}

// CreateCustomer posts a new customer and returns the server's copy,
// including its self link.
func (c *Client) CreateCustomer(ctx context.Context, in domain.CustomerInput) (*domain.Customer, error) {
	const op = "customers.create"

	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created domain.Customer
	if err := c.do(ctx, op, http.MethodPost, c.endpoint(customersPath), in, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCustomer replaces the customer at locator with in.
func (c *Client) UpdateCustomer(
	ctx context.Context,
	locator domain.CustomerLocator,
	in domain.CustomerInput,
) (*domain.Customer, error) {
	const op = "customers.update"

	if err := checkLocator(op, locator); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated domain.Customer
	if err := c.do(ctx, op, http.MethodPut, string(locator), in, &updated); err != nil {
		return nil, err
	}
	if !updated.HasLocator() {
		// Some deployments answer PUT without _links; keep the address we used.
		if updated.Links == nil {
			updated.Links = domain.Links{}
		}
		updated.Links["self"] = domain.Link{Href: string(locator)}
	}
	return &updated, nil
}

// DeleteCustomer deletes the customer at locator. Deleting a locator that no
// longer exists fails with an upstream error.
func (c *Client) DeleteCustomer(ctx context.Context, locator domain.CustomerLocator) error {
	const op = "customers.delete"

	if err := checkLocator(op, locator); err != nil {
		return err
	}
	return c.do(ctx, op, http.MethodDelete, string(locator), nil, nil)
}

// checkLocator rejects locators that are not absolute URLs.
func checkLocator(op string, locator domain.CustomerLocator) error {
	if locator == "" {
		return domain.Invalid(op, "customer has no resource link")
	}
	u, err := url.Parse(string(locator))
	if err != nil || !u.IsAbs() {
		return domain.Invalid(op, "customer resource link must be absolute")
	}
	return nil
}
