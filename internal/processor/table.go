package processor

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/appointment-engine/internal/domain"
)

// Table maps every supported country to exactly one Processor. It is fixed at construction.
type Table struct {
	processors map[domain.CountryISO]Processor
}

func NewTable(processors ...Processor) (*Table, error) {
	table := &Table{processors: make(map[domain.CountryISO]Processor, len(processors))}

	for _, p := range processors {
		if p == nil {
			return nil, fmt.Errorf("processor is required")
		}
		country := p.Country()
		if !country.IsValid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedCountry, country)
		}
		if _, exists := table.processors[country]; exists {
			return nil, fmt.Errorf("duplicate processor for %s", country)
		}
		table.processors[country] = p
	}

	for _, country := range domain.SupportedCountries {
		if _, ok := table.processors[country]; !ok {
			return nil, fmt.Errorf("missing processor for %s", country)
		}
	}

	return table, nil
}

// Resolve matches code case-insensitively. Unknown codes fail before any processor runs.
func (t *Table) Resolve(code string) (Processor, error) {
	country, err := domain.ParseCountryFromString(code)
	if err != nil {
		return nil, err
	}

	p, ok := t.processors[country]
	if !ok {
		return nil, &domain.DomainError{
			Kind:    domain.ErrUnsupportedCountry,
			Message: fmt.Sprintf("unsupported country: %s", code),
			Field:   "countryISO",
		}
	}
	return p, nil
}

func (t *Table) Dispatch(ctx context.Context, req domain.AppointmentRequest) error {
	p, err := t.Resolve(req.CountryISO)
	if err != nil {
		return err
	}
	return p.Process(ctx, req)
}
