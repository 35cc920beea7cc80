package entity

// Record models exposed through the content download URL
const (
	ModelTripData           = "trip_data"
	ModelAccompanyingPerson = "accompanying_person"
)

// Document fields of the models above
const (
	FieldRentalCarDriversLicense       = "rental_car_drivers_license"
	FieldReturnRentalCarDriversLicense = "return_rental_car_drivers_license"
	FieldIdentityDocument              = "identity_document"
)

// TripDataDocumentFields are the document fields a trip data record can hold
var TripDataDocumentFields = []string{FieldRentalCarDriversLicense, FieldReturnRentalCarDriversLicense}

// Trip duration types offered by the request form
const (
	DurationTypeDays  = "days"
	DurationTypeWeeks = "weeks"
	DurationTypeShort = "short"
	DurationTypeLong  = "long"
)

// Trip types offered by the request form
const (
	TripTypeOneWay = "oneWay"
	TripTypeTwoWay = "twoWay"
)
