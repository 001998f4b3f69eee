package cdek

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/velostore/cdek-bridge/pkg/shipper"
)

const (
	maxNameLen    = 100
	maxCommentLen = 255

	// Provider rejects zero-weight items; every item is floored here.
	minItemWeightGrams = 10

	syntheticItemName = "DEFAULT"
)

// Countries the carrier account is allowed to ship within.
var supportedCountries = map[string]struct{}{
	"RU": {},
	"BY": {},
	"KZ": {},
}

// buildLocation maps an address into the provider location block. Origins
// must be resolvable on the provider side, so they need either a provider
// city code or a postal code.
func buildLocation(addr shipper.Address, isOrigin bool) (*Location, error) {
	country := strings.ToUpper(addr.CountryCode)
	if _, ok := supportedCountries[country]; !ok {
		return nil, shipper.NewError(carrierName, shipper.KindValidation,
			fmt.Sprintf("country %q is not supported", addr.CountryCode))
	}

	if isOrigin && addr.CityCode == 0 && addr.PostalCode == "" {
		return nil, shipper.NewError(carrierName, shipper.KindValidation,
			"origin address needs a city code or postal code")
	}

	street := addr.Street
	if addr.Street2 != "" {
		street = strings.TrimSpace(street + " " + addr.Street2)
	}

	return &Location{
		Code:        addr.CityCode,
		CountryCode: country,
		City:        addr.City,
		Address:     street,
		PostalCode:  addr.PostalCode,
	}, nil
}

// buildContact maps a party into the provider contact block. A phone number
// is mandatory for shipment registration but not for a rate quote; the
// company field is only emitted for organization senders.
func buildContact(party shipper.Party, forOrder bool, isSender bool) (*Contact, error) {
	contact := &Contact{
		Name:  truncate(party.Name, maxNameLen),
		Email: party.Email,
	}

	phone := digitsOnly(party.Phone)
	if phone != "" {
		contact.Phones = []Phone{{Number: phone}}
	} else if forOrder {
		return nil, shipper.NewError(carrierName, shipper.KindValidation,
			fmt.Sprintf("contact %q has no phone number", party.Name))
	}

	if isSender && party.IsCompany {
		contact.Company = truncate(party.Company, maxNameLen)
	}

	return contact, nil
}

// buildPackages converts order lines into one provider package. Lines
// without physical weight or quantity are skipped; if nothing remains a
// single synthetic item is emitted so the provider never sees an empty
// package. The second return value is the aggregate COD amount, zero when
// COD is disabled.
func buildPackages(lines []shipper.OrderLine, cfg *Config) ([]Package, float64) {
	var items []Item
	codTotal := 0.0

	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}

		weightKG := line.WeightKG
		if weightKG <= 0 {
			weightKG = cfg.DefaultWeightKG
		}
		cost := round2(line.UnitPrice * (1 - line.DiscountPct/100))

		item := Item{
			Name:    truncate(line.Name, maxNameLen),
			WareKey: wareKey(line),
			Cost:    cost,
			Weight:  weightGrams(weightKG),
			Amount:  line.Quantity,
		}
		if cfg.AllowCOD {
			item.Payment = &Money{Value: cost}
			codTotal += cost * float64(line.Quantity)
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		item := Item{
			Name:    syntheticItemName,
			WareKey: syntheticItemName,
			Weight:  weightGrams(cfg.DefaultWeightKG),
			Amount:  1,
		}
		if cfg.AllowCOD {
			item.Payment = &Money{}
		}
		items = append(items, item)
	}

	total := 0
	for _, item := range items {
		total += item.Weight * item.Amount
	}

	pkg := Package{
		Number: "1",
		Weight: total,
		Length: cfg.DefaultLengthCM,
		Width:  cfg.DefaultWidthCM,
		Height: cfg.DefaultHeightCM,
		Items:  items,
	}
	return []Package{pkg}, round2(codTotal)
}

// buildTariffRequest assembles the rate-calculator payload.
func buildTariffRequest(req *shipper.QuoteRequest, cfg *Config) (*TariffRequest, error) {
	if cfg.TariffCode == 0 {
		return nil, shipper.NewError(carrierName, shipper.KindValidation,
			"tariff code is not configured")
	}

	from, err := buildLocation(req.Origin, true)
	if err != nil {
		return nil, err
	}
	to, err := buildLocation(req.Destination, false)
	if err != nil {
		return nil, err
	}

	packages, _ := buildPackages(req.Lines, cfg)

	return &TariffRequest{
		Type:         int(cfg.OrderType),
		TariffCode:   cfg.TariffCode,
		FromLocation: from,
		ToLocation:   to,
		Packages:     packages,
	}, nil
}

// buildOrderRequest assembles the order-registration payload. The UUID is
// generated here per call and doubles as the provider-side idempotency
// token.
func buildOrderRequest(unit *shipper.ShipmentUnit, cfg *Config) (*OrderRequest, error) {
	if cfg.TariffCode == 0 {
		return nil, shipper.NewError(carrierName, shipper.KindValidation,
			"tariff code is not configured")
	}

	recipient, err := buildContact(unit.Recipient, true, false)
	if err != nil {
		return nil, err
	}
	sender, err := buildContact(unit.Sender, true, true)
	if err != nil {
		return nil, err
	}

	from, err := buildLocation(unit.Origin, true)
	if err != nil {
		return nil, err
	}

	packages, codTotal := buildPackages(unit.Lines, cfg)

	req := &OrderRequest{
		UUID:         uuid.NewString(),
		Type:         int(cfg.OrderType),
		Number:       unit.Reference,
		TariffCode:   cfg.TariffCode,
		Comment:      truncate(unit.Comment, maxCommentLen),
		ShipmentDate: time.Now().Format("2006-01-02"),
		Recipient:    recipient,
		Sender:       sender,
		FromLocation: from,
		Packages:     packages,
	}

	if cfg.ShipmentPointCode != "" {
		// A configured shipment point supersedes the origin address.
		req.ShipmentPoint = cfg.ShipmentPointCode
		req.FromLocation = nil
	}

	if unit.PickupPointCode != "" {
		req.DeliveryPoint = unit.PickupPointCode
	} else {
		to, err := buildLocation(unit.Destination, false)
		if err != nil {
			return nil, err
		}
		req.ToLocation = to
	}

	if codTotal > 0 {
		req.DeliveryRecipientCost = &Money{Value: codTotal}
	}

	return req, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func weightGrams(kg float64) int {
	grams := int(math.Round(kg * 1000))
	if grams < minItemWeightGrams {
		return minItemWeightGrams
	}
	return grams
}

func wareKey(line shipper.OrderLine) string {
	if line.SKU != "" {
		return truncate(line.SKU, maxNameLen)
	}
	return truncate(line.Name, maxNameLen)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
