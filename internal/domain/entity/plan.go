package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PlanItemType is the category of a plan line item
type PlanItemType string

const (
	ItemTransportAir        PlanItemType = "transport_air"
	ItemTransportTrain      PlanItemType = "transport_train"
	ItemTransportBus        PlanItemType = "transport_bus"
	ItemTransportCar        PlanItemType = "transport_car"
	ItemTransportTaxi       PlanItemType = "transport_taxi"
	ItemTransportOther      PlanItemType = "transport_other"
	ItemAccommodation       PlanItemType = "accommodation"
	ItemAccommodationAirbnb PlanItemType = "accommodation_airbnb"
	ItemMeals               PlanItemType = "meals"
	ItemMealsPerDiem        PlanItemType = "meals_per_diem"
	ItemVisaFee             PlanItemType = "visa_fee"
	ItemConference          PlanItemType = "conference"
	ItemParking             PlanItemType = "parking"
	ItemInsurance           PlanItemType = "insurance"
	ItemInternet            PlanItemType = "internet"
	ItemTranslation         PlanItemType = "translation"
	ItemEntertainment       PlanItemType = "entertainment"
	ItemShopping            PlanItemType = "shopping"
	ItemCurrencyExchange    PlanItemType = "currency_exchange"
	ItemOther               PlanItemType = "other"
	ItemCustom              PlanItemType = "custom"
)

var planItemTypes = map[PlanItemType]bool{
	ItemTransportAir: true, ItemTransportTrain: true, ItemTransportBus: true,
	ItemTransportCar: true, ItemTransportTaxi: true, ItemTransportOther: true,
	ItemAccommodation: true, ItemAccommodationAirbnb: true, ItemMeals: true,
	ItemMealsPerDiem: true, ItemVisaFee: true, ItemConference: true,
	ItemParking: true, ItemInsurance: true, ItemInternet: true,
	ItemTranslation: true, ItemEntertainment: true, ItemShopping: true,
	ItemCurrencyExchange: true, ItemOther: true, ItemCustom: true,
}

// Direction is the leg of the trip a plan item belongs to
type Direction string

const (
	DirectionOutbound  Direction = "outbound"
	DirectionInbound   Direction = "inbound"
	DirectionLocal     Direction = "local"
	DirectionTransit   Direction = "transit"
	DirectionRoundTrip Direction = "round_trip"
	DirectionNA        Direction = "na"
)

// CostStatus tracks how firm a planned cost is
type CostStatus string

const (
	CostEstimated   CostStatus = "estimated"
	CostQuoted      CostStatus = "quoted"
	CostConfirmed   CostStatus = "confirmed"
	CostPaid        CostStatus = "paid"
	CostToReimburse CostStatus = "to_reimburse"
)

// PaymentMethod identifies who pays for a plan item
type PaymentMethod string

const (
	PaymentCompany     PaymentMethod = "company"
	PaymentEmployee    PaymentMethod = "employee"
	PaymentCashAdvance PaymentMethod = "cash_advance"
	PaymentPerDiem     PaymentMethod = "per_diem"
	PaymentCompanyCard PaymentMethod = "company_card"
)

// PlanLineItem is one organizer-planned cost; items live serialized on the trip
type PlanLineItem struct {
	ItemType          PlanItemType      `json:"item_type"`
	CustomType        string            `json:"custom_type,omitempty"`
	Direction         Direction         `json:"direction,omitempty"`
	Description       string            `json:"description,omitempty"`
	ItemDate          *time.Time        `json:"item_date,omitempty"`
	FromLocation      string            `json:"from_location,omitempty"`
	ToLocation        string            `json:"to_location,omitempty"`
	Carrier           string            `json:"carrier,omitempty"`
	ReferenceNumber   string            `json:"reference_number,omitempty"`
	DepartureTime     float64           `json:"departure_time,omitempty"`
	ArrivalTime       float64           `json:"arrival_time,omitempty"`
	TravelClass       string            `json:"travel_class,omitempty"`
	Nights            int               `json:"nights,omitempty"`
	AccommodationType string            `json:"accommodation_type,omitempty"`
	Cost              float64           `json:"cost"`
	CostStatus        CostStatus        `json:"cost_status,omitempty"`
	IsReimbursable    bool              `json:"is_reimbursable"`
	PaymentMethod     PaymentMethod     `json:"payment_method,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	ItemData          map[string]string `json:"item_data,omitempty"`
}

// Validate checks the item category and cost
func (i PlanLineItem) Validate() error {
	if !planItemTypes[i.ItemType] {
		return fmt.Errorf("unknown plan item type %q", i.ItemType)
	}
	if i.ItemType == ItemCustom && i.CustomType == "" {
		return fmt.Errorf("custom plan item requires a custom type")
	}
	if i.Cost < 0 {
		return fmt.Errorf("plan item cost cannot be negative: %.2f", i.Cost)
	}
	return nil
}

// PlanTotal sums item costs
func PlanTotal(items []PlanLineItem) float64 {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(decimal.NewFromFloat(item.Cost))
	}
	return total.InexactFloat64()
}

// EncodePlanItems serializes items for storage on the trip
func EncodePlanItems(items []PlanLineItem) (string, error) {
	if len(items) == 0 {
		return "", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode plan items: %w", err)
	}
	return string(b), nil
}

// DecodePlanItems parses items stored on the trip
func DecodePlanItems(raw string) ([]PlanLineItem, error) {
	if raw == "" {
		return nil, nil
	}
	var items []PlanLineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode plan items: %w", err)
	}
	return items, nil
}
