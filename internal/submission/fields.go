package submission

import (
	"strings"
	"time"

	"github.com/garyjia/business-trip/internal/domain/entity"
)

// Group ties detail fields to the toggle that enables them. Fields of a
// disabled group are reset instead of read.
type Group string

const (
	GroupAlways          Group = ""
	GroupAccommodation   Group = "accommodation"
	GroupRentalCar       Group = "rental_car"
	GroupReturnRentalCar Group = "return_rental_car"
	GroupTrain           Group = "train"
	GroupReturnTrain     Group = "return_train"
	GroupAirplane        Group = "airplane"
	GroupReturnAirplane  Group = "return_airplane"
	GroupBus             Group = "bus"
	GroupReturnBus       Group = "return_bus"
)

// Field maps one TripData field to its candidate submission keys
type Field struct {
	Name   string
	Root   []string
	Nested []string
	Group  Group
	target target
}

// Kind returns the type the field's raw value is coerced into
func (f Field) Kind() Kind {
	return f.target.kind()
}

type target interface {
	kind() Kind
	assign(d *entity.TripData, v interface{})
	reset(d *entity.TripData)
}

type binding[T any] struct {
	k   Kind
	ptr func(*entity.TripData) *T
}

func (b binding[T]) kind() Kind { return b.k }

func (b binding[T]) assign(d *entity.TripData, v interface{}) {
	if tv, ok := v.(T); ok {
		*b.ptr(d) = tv
	}
}

func (b binding[T]) reset(d *entity.TripData) {
	var zero T
	*b.ptr(d) = zero
}

func text(ptr func(*entity.TripData) *string) target {
	return binding[string]{k: KindString, ptr: ptr}
}

func flag(ptr func(*entity.TripData) *bool) target {
	return binding[bool]{k: KindBool, ptr: ptr}
}

func count(ptr func(*entity.TripData) *int) target {
	return binding[int]{k: KindInt, ptr: ptr}
}

func amount(ptr func(*entity.TripData) *float64) target {
	return binding[float64]{k: KindFloat, ptr: ptr}
}

func day(ptr func(*entity.TripData) **time.Time) target {
	return binding[*time.Time]{k: KindDate, ptr: ptr}
}

func keys(k ...string) []string { return k }

// same builds a field read from identical root and nested keys
func same(name string, group Group, t target, k ...string) Field {
	return Field{Name: name, Root: k, Nested: k, Group: group, target: t}
}

// split builds a field whose nested key differs from the root key
func split(name string, group Group, t target, root, nested []string) Field {
	return Field{Name: name, Root: root, Nested: nested, Group: group, target: t}
}

// fieldTable lists every scalar TripData field the extractor writes, in write order
var fieldTable = []Field{
	// personal and trip classification
	same("first_name", GroupAlways, text(func(d *entity.TripData) *string { return &d.FirstName }), "first_name"),
	same("last_name", GroupAlways, text(func(d *entity.TripData) *string { return &d.LastName }), "last_name"),
	same("approving_colleague_name", GroupAlways, text(func(d *entity.TripData) *string { return &d.ApprovingColleagueName }), "approving_colleague_name"),
	same("trip_duration_type", GroupAlways, text(func(d *entity.TripData) *string { return &d.TripDurationType }), "trip_duration_type"),
	same("trip_type", GroupAlways, text(func(d *entity.TripData) *string { return &d.TripType }), "trip_type"),
	same("destination", GroupAlways, text(func(d *entity.TripData) *string { return &d.Destination }), "trip_destination_portal_query_params"),
	same("travel_start_date", GroupAlways, day(func(d *entity.TripData) **time.Time { return &d.TravelStartDate }), "trip_start_date"),
	same("travel_end_date", GroupAlways, day(func(d *entity.TripData) **time.Time { return &d.TravelEndDate }), "trip_end_date"),
	same("manual_travel_duration", GroupAlways, amount(func(d *entity.TripData) *float64 { return &d.ManualTravelDuration }), "manual_travel_duration"),
	same("expected_cost", GroupAlways, amount(func(d *entity.TripData) *float64 { return &d.ExpectedCost }), "expected_cost"),
	same("accommodation_needed", GroupAlways, text(func(d *entity.TripData) *string { return &d.AccommodationNeeded }), "accommodation_needed"),

	// accommodation
	same("accommodation_number_of_people", GroupAccommodation, count(func(d *entity.TripData) *int { return &d.AccommodationNumberOfPeople }), "number_of_people"),
	same("accommodation_residence_city", GroupAccommodation, text(func(d *entity.TripData) *string { return &d.AccommodationResidenceCity }), "residence_city"),
	same("accommodation_check_in_date", GroupAccommodation, day(func(d *entity.TripData) **time.Time { return &d.AccommodationCheckInDate }), "check_in_date"),
	same("accommodation_check_out_date", GroupAccommodation, day(func(d *entity.TripData) **time.Time { return &d.AccommodationCheckOutDate }), "check_out_date"),
	same("accommodation_points_of_interest", GroupAccommodation, text(func(d *entity.TripData) *string { return &d.AccommodationPointsOfInterest }), "points_of_interest"),
	same("accommodation_need_24h_reception", GroupAccommodation, text(func(d *entity.TripData) *string { return &d.AccommodationNeed24hReception }), "need_24h_reception"),

	// outbound rental car
	same("rental_car_pickup_date", GroupRentalCar, day(func(d *entity.TripData) **time.Time { return &d.RentalCarPickupDate }), "pickup_date", "rental_car_pickup_date"),
	same("rental_car_pickup_flexible", GroupRentalCar, flag(func(d *entity.TripData) *bool { return &d.RentalCarPickupFlexible }), "pickup_flexible", "rental_car_pickup_flexible"),
	same("rental_car_pickup_point", GroupRentalCar, text(func(d *entity.TripData) *string { return &d.RentalCarPickupPoint }), "pickup_point", "rental_car_pickup_point"),
	same("rental_car_dropoff_point", GroupRentalCar, text(func(d *entity.TripData) *string { return &d.RentalCarDropoffPoint }), "dropoff_point", "rental_car_dropoff_point"),
	same("rental_car_dropoff_date", GroupRentalCar, day(func(d *entity.TripData) **time.Time { return &d.RentalCarDropoffDate }), "dropoff_date", "rental_car_dropoff_date"),
	same("rental_car_dropoff_flexible", GroupRentalCar, flag(func(d *entity.TripData) *bool { return &d.RentalCarDropoffFlexible }), "dropoff_flexible", "rental_car_dropoff_flexible"),
	same("rental_car_credit_card", GroupRentalCar, text(func(d *entity.TripData) *string { return &d.RentalCarCreditCard }), "credit_card_available", "rental_car_credit_card"),
	same("rental_car_type", GroupRentalCar, text(func(d *entity.TripData) *string { return &d.RentalCarType }), "rental_type", "rental_car_type"),
	same("rental_car_kilometer_limit", GroupRentalCar, count(func(d *entity.TripData) *int { return &d.RentalCarKilometerLimit }), "kilometer_limit", "rental_car_kilometer_limit"),
	same("rental_car_unlimited_km", GroupRentalCar, flag(func(d *entity.TripData) *bool { return &d.RentalCarUnlimitedKm }), "unlimited_km", "rental_car_unlimited_km"),
	same("rental_car_preferences", GroupRentalCar, text(func(d *entity.TripData) *string { return &d.RentalCarPreferences }), "car_additional_preferences", "rental_car_preferences"),

	// return rental car
	same("return_rental_car_pickup_date", GroupReturnRentalCar, day(func(d *entity.TripData) **time.Time { return &d.ReturnRentalCarPickupDate }), "return_rental_car_pickup_date"),
	same("return_rental_car_pickup_flexible", GroupReturnRentalCar, flag(func(d *entity.TripData) *bool { return &d.ReturnRentalCarPickupFlexible }), "return_rental_car_pickup_flexible"),
	same("return_rental_car_pickup_point", GroupReturnRentalCar, text(func(d *entity.TripData) *string { return &d.ReturnRentalCarPickupPoint }), "return_rental_car_pickup_point"),
	same("return_rental_car_dropoff_point", GroupReturnRentalCar, text(func(d *entity.TripData) *string { return &d.ReturnRentalCarDropoffPoint }), "return_rental_car_dropoff_point"),
	same("return_rental_car_dropoff_date", GroupReturnRentalCar, day(func(d *entity.TripData) **time.Time { return &d.ReturnRentalCarDropoffDate }), "return_rental_car_dropoff_date"),
	same("return_rental_car_dropoff_flexible", GroupReturnRentalCar, flag(func(d *entity.TripData) *bool { return &d.ReturnRentalCarDropoffFlexible }), "return_rental_car_dropoff_flexible"),
	same("return_rental_car_credit_card", GroupReturnRentalCar, text(func(d *entity.TripData) *string { return &d.ReturnRentalCarCreditCard }), "return_rental_car_credit_card"),
	same("return_rental_car_type", GroupReturnRentalCar, text(func(d *entity.TripData) *string { return &d.ReturnRentalCarType }), "return_rental_car_type"),
	same("return_rental_car_kilometer_limit", GroupReturnRentalCar, count(func(d *entity.TripData) *int { return &d.ReturnRentalCarKilometerLimit }), "return_rental_car_kilometer_limit"),
	same("return_rental_car_unlimited_km", GroupReturnRentalCar, flag(func(d *entity.TripData) *bool { return &d.ReturnRentalCarUnlimitedKm }), "return_rental_car_unlimited_km"),
	same("return_rental_car_preferences", GroupReturnRentalCar, text(func(d *entity.TripData) *string { return &d.ReturnRentalCarPreferences }), "return_rental_car_preferences"),

	// outbound train; the form shares some root keys across modes
	split("train_departure_city", GroupTrain, text(func(d *entity.TripData) *string { return &d.TrainDepartureCity }), keys("departure_city"), keys("departure_city_train")),
	split("train_departure_station", GroupTrain, text(func(d *entity.TripData) *string { return &d.TrainDepartureStation }), keys("departure_station"), keys("departure_station_train")),
	split("train_arrival_station", GroupTrain, text(func(d *entity.TripData) *string { return &d.TrainArrivalStation }), keys("arrival_station"), keys("arrival_station_train")),
	same("train_departure_date", GroupTrain, day(func(d *entity.TripData) **time.Time { return &d.TrainDepartureDate }), "departure_date_train"),
	same("train_departure_flexible", GroupTrain, flag(func(d *entity.TripData) *bool { return &d.TrainDepartureFlexible }), "departure_flexible_train"),
	split("train_arrival_date", GroupTrain, day(func(d *entity.TripData) **time.Time { return &d.TrainArrivalDate }), keys("arrival_date"), keys("arrival_date_train")),
	same("train_arrival_flexible", GroupTrain, flag(func(d *entity.TripData) *bool { return &d.TrainArrivalFlexible }), "arrival_flexible_train"),

	// return train
	same("return_train_departure_city", GroupReturnTrain, text(func(d *entity.TripData) *string { return &d.ReturnTrainDepartureCity }), "return_train_departure_city"),
	same("return_train_departure_station", GroupReturnTrain, text(func(d *entity.TripData) *string { return &d.ReturnTrainDepartureStation }), "return_train_departure_station"),
	same("return_train_arrival_station", GroupReturnTrain, text(func(d *entity.TripData) *string { return &d.ReturnTrainArrivalStation }), "return_train_arrival_station"),
	same("return_train_departure_date", GroupReturnTrain, day(func(d *entity.TripData) **time.Time { return &d.ReturnTrainDepartureDate }), "return_train_departure_date"),
	same("return_train_departure_flexible", GroupReturnTrain, flag(func(d *entity.TripData) *bool { return &d.ReturnTrainDepartureFlexible }), "return_train_departure_flexible"),
	same("return_train_arrival_date", GroupReturnTrain, day(func(d *entity.TripData) **time.Time { return &d.ReturnTrainArrivalDate }), "return_train_arrival_date"),
	same("return_train_arrival_flexible", GroupReturnTrain, flag(func(d *entity.TripData) *bool { return &d.ReturnTrainArrivalFlexible }), "return_train_arrival_flexible"),

	// outbound airplane
	same("airplane_departure_airport", GroupAirplane, text(func(d *entity.TripData) *string { return &d.AirplaneDepartureAirport }), "departure_airport"),
	same("airplane_departure_date", GroupAirplane, day(func(d *entity.TripData) **time.Time { return &d.AirplaneDepartureDate }), "departure_date_airplane"),
	same("airplane_departure_flexible", GroupAirplane, flag(func(d *entity.TripData) *bool { return &d.AirplaneDepartureFlexible }), "departure_flexible_airplane"),
	same("airplane_arrival_airport", GroupAirplane, text(func(d *entity.TripData) *string { return &d.AirplaneArrivalAirport }), "arrival_airport"),
	same("airplane_arrival_date", GroupAirplane, day(func(d *entity.TripData) **time.Time { return &d.AirplaneArrivalDate }), "arrival_date_airplane"),
	same("airplane_arrival_flexible", GroupAirplane, flag(func(d *entity.TripData) *bool { return &d.AirplaneArrivalFlexible }), "arrival_flexible_airplane"),
	same("airplane_baggage", GroupAirplane, text(func(d *entity.TripData) *string { return &d.AirplaneBaggage }), "baggage"),
	same("airplane_preferences", GroupAirplane, text(func(d *entity.TripData) *string { return &d.AirplanePreferences }), "airplane_additional_preferences"),

	// return airplane
	same("return_airplane_departure_airport", GroupReturnAirplane, text(func(d *entity.TripData) *string { return &d.ReturnAirplaneDepartureAirport }), "return_departure_airport"),
	same("return_airplane_departure_date", GroupReturnAirplane, day(func(d *entity.TripData) **time.Time { return &d.ReturnAirplaneDepartureDate }), "return_departure_date"),
	same("return_airplane_departure_flexible", GroupReturnAirplane, flag(func(d *entity.TripData) *bool { return &d.ReturnAirplaneDepartureFlexible }), "return_departure_flexible"),
	same("return_airplane_destination_airport", GroupReturnAirplane, text(func(d *entity.TripData) *string { return &d.ReturnAirplaneDestination }), "return_destination_airport"),
	same("return_airplane_destination_date", GroupReturnAirplane, day(func(d *entity.TripData) **time.Time { return &d.ReturnAirplaneDestinationDate }), "return_destination_date"),
	same("return_airplane_destination_flexible", GroupReturnAirplane, flag(func(d *entity.TripData) *bool { return &d.ReturnAirplaneDestinationFlex }), "return_destination_flexible"),
	same("return_airplane_baggage", GroupReturnAirplane, text(func(d *entity.TripData) *string { return &d.ReturnAirplaneBaggage }), "return_baggage"),
	same("return_airplane_other_details", GroupReturnAirplane, text(func(d *entity.TripData) *string { return &d.ReturnAirplaneOtherDetails }), "return_other_details"),

	// outbound bus
	same("bus_departure_city", GroupBus, text(func(d *entity.TripData) *string { return &d.BusDepartureCity }), "bus_departure_city"),
	same("bus_departure_terminal", GroupBus, text(func(d *entity.TripData) *string { return &d.BusDepartureTerminal }), "bus_departure_terminal"),
	same("bus_arrival_terminal", GroupBus, text(func(d *entity.TripData) *string { return &d.BusArrivalTerminal }), "bus_arrival_terminal"),
	same("bus_departure_date", GroupBus, day(func(d *entity.TripData) **time.Time { return &d.BusDepartureDate }), "bus_departure_date"),
	same("bus_departure_flexible", GroupBus, flag(func(d *entity.TripData) *bool { return &d.BusDepartureFlexible }), "bus_departure_flexible"),
	same("bus_arrival_date", GroupBus, day(func(d *entity.TripData) **time.Time { return &d.BusArrivalDate }), "bus_arrival_date"),
	same("bus_arrival_flexible", GroupBus, flag(func(d *entity.TripData) *bool { return &d.BusArrivalFlexible }), "bus_arrival_flexible"),

	// return bus
	same("return_bus_departure_city", GroupReturnBus, text(func(d *entity.TripData) *string { return &d.ReturnBusDepartureCity }), "return_bus_departure_city"),
	same("return_bus_departure_station", GroupReturnBus, text(func(d *entity.TripData) *string { return &d.ReturnBusDepartureStation }), "return_bus_departure_station"),
	same("return_bus_arrival_station", GroupReturnBus, text(func(d *entity.TripData) *string { return &d.ReturnBusArrivalStation }), "return_bus_arrival_station"),
	same("return_bus_departure_date", GroupReturnBus, day(func(d *entity.TripData) **time.Time { return &d.ReturnBusDepartureDate }), "return_bus_departure_date"),
	same("return_bus_departure_flexible", GroupReturnBus, flag(func(d *entity.TripData) *bool { return &d.ReturnBusDepartureFlexible }), "return_bus_departure_flexible"),
	same("return_bus_arrival_date", GroupReturnBus, day(func(d *entity.TripData) **time.Time { return &d.ReturnBusArrivalDate }), "return_bus_arrival_date"),
	same("return_bus_arrival_flexible", GroupReturnBus, flag(func(d *entity.TripData) *bool { return &d.ReturnBusArrivalFlexible }), "return_bus_arrival_flexible"),
}

// Fields returns a copy of the field table
func Fields() []Field {
	return append([]Field(nil), fieldTable...)
}

// groupEnabled reports whether a group's toggle is on for the data extracted so far
func groupEnabled(g Group, d *entity.TripData) bool {
	switch g {
	case GroupAlways:
		return true
	case GroupAccommodation:
		return strings.EqualFold(strings.TrimSpace(d.AccommodationNeeded), "yes")
	case GroupRentalCar:
		return d.UseRentalCar
	case GroupReturnRentalCar:
		return d.UseReturnRentalCar
	case GroupTrain:
		return d.UseTrain
	case GroupReturnTrain:
		return d.UseReturnTrain
	case GroupAirplane:
		return d.UseAirplane
	case GroupReturnAirplane:
		return d.UseReturnAirplane
	case GroupBus:
		return d.UseBus
	case GroupReturnBus:
		return d.UseReturnBus
	}
	return false
}
