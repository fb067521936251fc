// Package billing assembles customer invoices and carrier pay sheets
// out of delivered loads: line-item building, document numbering,
// due-date policy and the quick-pay fee.
package billing

import (
	"fmt"

	"github.com/SprintLogistics/sptms/internal/models"
	"github.com/SprintLogistics/sptms/internal/money"
)

// accessorialLabel renders the accessorial type for a billing line.
func accessorialLabel(t models.AccessorialType) string {
	switch t {
	case models.AccessorialDetention:
		return "Detention"
	case models.AccessorialLayover:
		return "Layover"
	case models.AccessorialTONU:
		return "TONU"
	case models.AccessorialLumper:
		return "Lumper"
	case models.AccessorialStop:
		return "Stop Charge"
	case models.AccessorialFuel:
		return "Fuel Surcharge"
	default:
		return "Accessorial"
	}
}

func accessorialDescription(l *models.Load, a models.Accessorial) string {
	desc := accessorialLabel(a.Type)
	if a.Description != "" {
		desc += ": " + a.Description
	}
	return fmt.Sprintf("%s (%s)", desc, l.LoadNumber)
}

// CustomerLineItems builds the customer-facing billing lines for a load
// set: one linehaul line per load plus one line per customer-billed
// accessorial, each traceable to its source load.
func CustomerLineItems(loads []*models.Load) []models.InvoiceLineItem {
	var items []models.InvoiceLineItem
	for _, l := range loads {
		var rate float64
		if l.CustomerRate != nil {
			rate = *l.CustomerRate
		}
		items = append(items, models.InvoiceLineItem{
			Description: fmt.Sprintf("Freight: %s - %s", l.LoadNumber, l.RouteDescription()),
			Quantity:    1,
			Rate:        rate,
			Total:       money.Round2(rate),
			LoadID:      l.ID,
		})
		for _, a := range l.Accessorials {
			if a.BillTo != models.BillToCustomer {
				continue
			}
			items = append(items, models.InvoiceLineItem{
				Description: accessorialDescription(l, a),
				Quantity:    1,
				Rate:        a.Amount,
				Total:       money.Round2(a.Amount),
				LoadID:      l.ID,
			})
		}
	}
	return items
}

// CarrierLineItems builds the carrier-facing pay lines: one linehaul
// line per load plus one line per carrier-billed accessorial.
func CarrierLineItems(loads []*models.Load) []models.PayLineItem {
	var items []models.PayLineItem
	for _, l := range loads {
		var rate float64
		if l.CarrierRate != nil {
			rate = *l.CarrierRate
		}
		items = append(items, models.PayLineItem{
			Description: fmt.Sprintf("Line Haul: %s - %s", l.LoadNumber, l.RouteDescription()),
			Amount:      money.Round2(rate),
			Type:        "linehaul",
			LoadID:      l.ID,
		})
		for _, a := range l.Accessorials {
			if a.BillTo != models.BillToCarrier {
				continue
			}
			items = append(items, models.PayLineItem{
				Description: accessorialDescription(l, a),
				Amount:      money.Round2(a.Amount),
				Type:        string(a.Type),
				LoadID:      l.ID,
			})
		}
	}
	return items
}
