package factories

import (
	"strings"

	"github.com/lucsky/cuid"

	"github.com/chrisdamba/foodatrack/internal/models"
)

type CustomerFactory struct {
	*Source
}

func (cf *CustomerFactory) CreateCustomer(cfg models.SimulationConfig) *models.Customer {
	name := cf.fake.Person().Name()
	return &models.Customer{
		ID:       cuid.New(),
		Name:     name,
		Phone:    cf.fake.Phone().Number(),
		Email:    emailFor(name, cf.fake.Internet().Domain()),
		Location: cf.locationNear(cfg),
	}
}

// CreateAddress returns a delivery address pinned to the customer location.
func (cf *CustomerFactory) CreateAddress(c *models.Customer) models.Address {
	loc := c.Location
	return models.Address{
		HouseNo:  cf.fake.Address().BuildingNumber(),
		Flat:     cf.fake.Address().SecondaryAddress(),
		Address1: cf.fake.Address().StreetAddress(),
		Address2: cf.fake.Address().City(),
		Postcode: cf.fake.Address().PostCode(),
		Location: &loc,
	}
}

// PaymentMethod favours cards the way marketplace traffic does.
func (cf *CustomerFactory) PaymentMethod() string {
	r := cf.rng.Float64()
	switch {
	case r < 0.6:
		return models.PaymentCard
	case r < 0.9:
		return models.PaymentCash
	}
	return models.PaymentWallet
}

func emailFor(name, domain string) string {
	local := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ':
			return '.'
		}
		return -1
	}, strings.ToLower(name))
	if local == "" {
		local = "customer"
	}
	return local + "@" + domain
}
