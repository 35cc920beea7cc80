package entity

import (
	"strings"
	"time"
)

// Document is a file carried by a submission. Content is only populated while
// a submission is being processed; persisted documents are addressed by StorageKey.
type Document struct {
	FileName   string `json:"file_name"`
	Content    []byte `json:"-"`
	StorageKey string `json:"storage_key,omitempty"`
}

// AccompanyingPerson travels with the employee; owned by TripData
type AccompanyingPerson struct {
	ID               int64     `json:"id"`
	TripDataID       int64     `json:"trip_data_id"`
	FullName         string    `json:"full_name"`
	IdentityDocument *Document `json:"identity_document,omitempty"`
}

// TripData is the structured content extracted from a trip request form
type TripData struct {
	ID     int64 `json:"id"`
	TripID int64 `json:"trip_id"`

	FirstName              string `json:"first_name"`
	LastName               string `json:"last_name"`
	ApprovingColleagueName string `json:"approving_colleague_name"`

	TripDurationType     string     `json:"trip_duration_type"`
	TripType             string     `json:"trip_type"`
	Destination          string     `json:"destination"`
	TravelStartDate      *time.Time `json:"travel_start_date,omitempty"`
	TravelEndDate        *time.Time `json:"travel_end_date,omitempty"`
	ManualTravelDuration float64    `json:"manual_travel_duration"`
	ExpectedCost         float64    `json:"expected_cost"`
	Currency             string     `json:"currency"`

	UseRentalCar             bool   `json:"use_rental_car"`
	UseCompanyCar            bool   `json:"use_company_car"`
	UsePersonalCar           bool   `json:"use_personal_car"`
	UseTrain                 bool   `json:"use_train"`
	UseAirplane              bool   `json:"use_airplane"`
	UseBus                   bool   `json:"use_bus"`
	TransportMeansJSON       string `json:"transport_means_json"`
	UseReturnRentalCar       bool   `json:"use_return_rental_car"`
	UseReturnCompanyCar      bool   `json:"use_return_company_car"`
	UseReturnPersonalCar     bool   `json:"use_return_personal_car"`
	UseReturnTrain           bool   `json:"use_return_train"`
	UseReturnAirplane        bool   `json:"use_return_airplane"`
	UseReturnBus             bool   `json:"use_return_bus"`
	ReturnTransportMeansJSON string `json:"return_transport_means_json"`

	RentalCarPickupDate      *time.Time `json:"rental_car_pickup_date,omitempty"`
	RentalCarPickupFlexible  bool       `json:"rental_car_pickup_flexible"`
	RentalCarPickupPoint     string     `json:"rental_car_pickup_point"`
	RentalCarDropoffPoint    string     `json:"rental_car_dropoff_point"`
	RentalCarDropoffDate     *time.Time `json:"rental_car_dropoff_date,omitempty"`
	RentalCarDropoffFlexible bool       `json:"rental_car_dropoff_flexible"`
	RentalCarCreditCard      string     `json:"rental_car_credit_card"`
	RentalCarType            string     `json:"rental_car_type"`
	RentalCarKilometerLimit  int        `json:"rental_car_kilometer_limit"`
	RentalCarUnlimitedKm     bool       `json:"rental_car_unlimited_km"`
	RentalCarPreferences     string     `json:"rental_car_preferences"`
	RentalCarDriversLicense  *Document  `json:"rental_car_drivers_license,omitempty"`

	ReturnRentalCarPickupDate      *time.Time `json:"return_rental_car_pickup_date,omitempty"`
	ReturnRentalCarPickupFlexible  bool       `json:"return_rental_car_pickup_flexible"`
	ReturnRentalCarPickupPoint     string     `json:"return_rental_car_pickup_point"`
	ReturnRentalCarDropoffPoint    string     `json:"return_rental_car_dropoff_point"`
	ReturnRentalCarDropoffDate     *time.Time `json:"return_rental_car_dropoff_date,omitempty"`
	ReturnRentalCarDropoffFlexible bool       `json:"return_rental_car_dropoff_flexible"`
	ReturnRentalCarCreditCard      string     `json:"return_rental_car_credit_card"`
	ReturnRentalCarType            string     `json:"return_rental_car_type"`
	ReturnRentalCarKilometerLimit  int        `json:"return_rental_car_kilometer_limit"`
	ReturnRentalCarUnlimitedKm     bool       `json:"return_rental_car_unlimited_km"`
	ReturnRentalCarPreferences     string     `json:"return_rental_car_preferences"`
	ReturnRentalCarDriversLicense  *Document  `json:"return_rental_car_drivers_license,omitempty"`

	TrainDepartureCity     string     `json:"train_departure_city"`
	TrainDepartureStation  string     `json:"train_departure_station"`
	TrainArrivalStation    string     `json:"train_arrival_station"`
	TrainDepartureDate     *time.Time `json:"train_departure_date,omitempty"`
	TrainDepartureFlexible bool       `json:"train_departure_flexible"`
	TrainArrivalDate       *time.Time `json:"train_arrival_date,omitempty"`
	TrainArrivalFlexible   bool       `json:"train_arrival_flexible"`

	ReturnTrainDepartureCity     string     `json:"return_train_departure_city"`
	ReturnTrainDepartureStation  string     `json:"return_train_departure_station"`
	ReturnTrainArrivalStation    string     `json:"return_train_arrival_station"`
	ReturnTrainDepartureDate     *time.Time `json:"return_train_departure_date,omitempty"`
	ReturnTrainDepartureFlexible bool       `json:"return_train_departure_flexible"`
	ReturnTrainArrivalDate       *time.Time `json:"return_train_arrival_date,omitempty"`
	ReturnTrainArrivalFlexible   bool       `json:"return_train_arrival_flexible"`

	AirplaneDepartureAirport  string     `json:"airplane_departure_airport"`
	AirplaneDepartureDate     *time.Time `json:"airplane_departure_date,omitempty"`
	AirplaneDepartureFlexible bool       `json:"airplane_departure_flexible"`
	AirplaneArrivalAirport    string     `json:"airplane_arrival_airport"`
	AirplaneArrivalDate       *time.Time `json:"airplane_arrival_date,omitempty"`
	AirplaneArrivalFlexible   bool       `json:"airplane_arrival_flexible"`
	AirplaneBaggage           string     `json:"airplane_baggage"`
	AirplanePreferences       string     `json:"airplane_preferences"`

	ReturnAirplaneDepartureAirport  string     `json:"return_airplane_departure_airport"`
	ReturnAirplaneDepartureDate     *time.Time `json:"return_airplane_departure_date,omitempty"`
	ReturnAirplaneDepartureFlexible bool       `json:"return_airplane_departure_flexible"`
	ReturnAirplaneDestination       string     `json:"return_airplane_destination_airport"`
	ReturnAirplaneDestinationDate   *time.Time `json:"return_airplane_destination_date,omitempty"`
	ReturnAirplaneDestinationFlex   bool       `json:"return_airplane_destination_flexible"`
	ReturnAirplaneBaggage           string     `json:"return_airplane_baggage"`
	ReturnAirplaneOtherDetails      string     `json:"return_airplane_other_details"`

	BusDepartureCity     string     `json:"bus_departure_city"`
	BusDepartureTerminal string     `json:"bus_departure_terminal"`
	BusArrivalTerminal   string     `json:"bus_arrival_terminal"`
	BusDepartureDate     *time.Time `json:"bus_departure_date,omitempty"`
	BusDepartureFlexible bool       `json:"bus_departure_flexible"`
	BusArrivalDate       *time.Time `json:"bus_arrival_date,omitempty"`
	BusArrivalFlexible   bool       `json:"bus_arrival_flexible"`

	ReturnBusDepartureCity     string     `json:"return_bus_departure_city"`
	ReturnBusDepartureStation  string     `json:"return_bus_departure_station"`
	ReturnBusArrivalStation    string     `json:"return_bus_arrival_station"`
	ReturnBusDepartureDate     *time.Time `json:"return_bus_departure_date,omitempty"`
	ReturnBusDepartureFlexible bool       `json:"return_bus_departure_flexible"`
	ReturnBusArrivalDate       *time.Time `json:"return_bus_arrival_date,omitempty"`
	ReturnBusArrivalFlexible   bool       `json:"return_bus_arrival_flexible"`

	AccommodationNeeded           string     `json:"accommodation_needed"`
	AccommodationNumberOfPeople   int        `json:"accommodation_number_of_people"`
	AccommodationResidenceCity    string     `json:"accommodation_residence_city"`
	AccommodationCheckInDate      *time.Time `json:"accommodation_check_in_date,omitempty"`
	AccommodationCheckOutDate     *time.Time `json:"accommodation_check_out_date,omitempty"`
	AccommodationPointsOfInterest string     `json:"accommodation_points_of_interest"`
	AccommodationNeed24hReception string     `json:"accommodation_need_24h_reception"`

	AccompanyingPersons []AccompanyingPerson `json:"accompanying_persons"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name when both are present
func (d *TripData) FullName() string {
	first := strings.TrimSpace(d.FirstName)
	last := strings.TrimSpace(d.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return last
	}
}

// Documents lists the stored documents of the record, keyed by field name
func (d *TripData) Documents() map[string]*Document {
	docs := make(map[string]*Document)
	if d.RentalCarDriversLicense != nil {
		docs[FieldRentalCarDriversLicense] = d.RentalCarDriversLicense
	}
	if d.ReturnRentalCarDriversLicense != nil {
		docs[FieldReturnRentalCarDriversLicense] = d.ReturnRentalCarDriversLicense
	}
	return docs
}
