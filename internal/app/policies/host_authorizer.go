package policies

import (
	"context"
	"fmt"

	"stayengine/internal/domain/listings"
)

// HostScoped is implemented by messages only the property's host may send.
type HostScoped interface {
	ScopedProperty() listings.PropertyID
	ScopedHost() listings.HostID
}

// PropertyHostAuthorizer rejects host-scoped messages from anyone but the host
// of the referenced property. Other messages pass through.
type PropertyHostAuthorizer struct {
	Catalog listings.Catalog
}

func (a PropertyHostAuthorizer) Authorize(ctx context.Context, message any) error {
	scoped, ok := message.(HostScoped)
	if !ok {
		return nil
	}
	property, err := a.Catalog.Property(ctx, scoped.ScopedProperty())
	if err != nil {
		return err
	}
	if !property.HostedBy(scoped.ScopedHost()) {
		return fmt.Errorf("%w: %s", listings.ErrNotHost, property.ID)
	}
	return nil
}
