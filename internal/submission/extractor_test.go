package submission

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/garyjia/business-trip/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestExtractor() *Extractor {
	return NewExtractor(zap.NewNop(), Options{DefaultCurrency: "EUR", Currencies: []string{"EUR", "USD"}})
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustProcess(t *testing.T, e *Extractor, raw string) *entity.TripData {
	t.Helper()
	res, ok, err := e.ProcessJSON([]byte(raw))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, res)
	return res.Data
}

func TestExtract_RootWinsOverNested(t *testing.T) {
	e := newTestExtractor()
	root := map[string]interface{}{"city": "Berlin"}
	nested := map[string]interface{}{"city_nested": "Paris"}

	v, src := e.Extract(root, nested, "city", "city_nested", KindString, "")
	assert.Equal(t, "Berlin", v)
	assert.Equal(t, SourceRoot, src)
}

func TestExtract_FallsBackToNested(t *testing.T) {
	e := newTestExtractor()
	root := map[string]interface{}{"city": ""}
	nested := map[string]interface{}{"city": "Paris"}

	v, src := e.Extract(root, nested, "city", "city", KindString, "")
	assert.Equal(t, "Paris", v)
	assert.Equal(t, SourceNested, src)
}

func TestExtract_DefaultWhenMissingOrNull(t *testing.T) {
	e := newTestExtractor()
	root := map[string]interface{}{"count": nil}

	v, src := e.Extract(root, nil, "count", "count", KindInt, 7)
	assert.Equal(t, 7, v)
	assert.Equal(t, SourceDefault, src)
}

func TestExtract_Coercion(t *testing.T) {
	e := newTestExtractor()
	tests := []struct {
		name  string
		value interface{}
		kind  Kind
		def   interface{}
		want  interface{}
	}{
		{"bool word yes", "Yes", KindBool, false, true},
		{"bool word off", "off", KindBool, true, false},
		{"bool number string", "1", KindBool, false, true},
		{"bool truthy text", "anything", KindBool, false, true},
		{"bool native", true, KindBool, false, true},
		{"int from string", "42", KindInt, 0, 42},
		{"int from json number", float64(3), KindInt, 0, 3},
		{"int unparseable", "many", KindInt, 5, 5},
		{"float from string", "12.5", KindFloat, 0.0, 12.5},
		{"float unparseable", "abc", KindFloat, 1.5, 1.5},
		{"string from number", float64(7), KindString, "", "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := map[string]interface{}{"k": tt.value}
			got, _ := e.Extract(root, nil, "k", "k", tt.kind, tt.def)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Dates(t *testing.T) {
	e := newTestExtractor()

	v, _ := e.Extract(map[string]interface{}{"d": "05/01/2024"}, nil, "d", "d", KindDate, nil)
	require.IsType(t, &time.Time{}, v)
	assert.Equal(t, date(2024, time.May, 1), *v.(*time.Time))

	v, _ = e.Extract(map[string]interface{}{"d": "2024-06-01"}, nil, "d", "d", KindDate, nil)
	assert.Equal(t, date(2024, time.June, 1), *v.(*time.Time))

	v, src := e.Extract(map[string]interface{}{"d": "June 1st"}, nil, "d", "d", KindDate, nil)
	assert.Nil(t, v)
	assert.Equal(t, SourceDefault, src)
}

func TestProcess_TrainSelectedByDict(t *testing.T) {
	e := newTestExtractor()
	d := mustProcess(t, e, `{
		"trip_start_date": "2024-05-01",
		"trip_end_date": "2024-05-03",
		"means_of_transport": {"train": true}
	}`)

	assert.True(t, d.UseTrain)
	require.NotNil(t, d.TravelStartDate)
	require.NotNil(t, d.TravelEndDate)
	assert.Equal(t, date(2024, time.May, 1), *d.TravelStartDate)
	assert.Equal(t, date(2024, time.May, 3), *d.TravelEndDate)
	assert.False(t, d.UseAirplane)
	assert.False(t, d.UseBus)
	assert.False(t, d.UseRentalCar)
	assert.False(t, d.UseCompanyCar)
	assert.False(t, d.UsePersonalCar)
	assert.JSONEq(t, `{"train": true}`, d.TransportMeansJSON)
}

func TestProcess_HeadCountFallback(t *testing.T) {
	e := newTestExtractor()
	d := mustProcess(t, e, `{"number_of_people": 3, "full_name": "Jane Doe"}`)

	require.Len(t, d.AccompanyingPersons, 2)
	for _, p := range d.AccompanyingPersons {
		assert.Equal(t, "Jane Doe", p.FullName)
		assert.Nil(t, p.IdentityDocument)
	}
}

func TestProcess_HeadCountFallbackDocumentOnFirstOnly(t *testing.T) {
	e := newTestExtractor()
	content := base64.StdEncoding.EncodeToString([]byte("passport"))
	d := mustProcess(t, e, `{
		"number_of_people": "3",
		"accompanying_identity_document": [
			{"storage": "base64", "url": "data:application/pdf;base64,`+content+`", "originalName": "passport.pdf", "name": "passport-1a2b.pdf"}
		]
	}`)

	require.Len(t, d.AccompanyingPersons, 2)
	assert.Equal(t, "Accompanying Person 1", d.AccompanyingPersons[0].FullName)
	assert.Equal(t, "Accompanying Person 2", d.AccompanyingPersons[1].FullName)
	require.NotNil(t, d.AccompanyingPersons[0].IdentityDocument)
	assert.Equal(t, "passport.pdf", d.AccompanyingPersons[0].IdentityDocument.FileName)
	assert.Equal(t, []byte("passport"), d.AccompanyingPersons[0].IdentityDocument.Content)
	assert.Nil(t, d.AccompanyingPersons[1].IdentityDocument)
}

func TestProcess_ExplicitPersonsList(t *testing.T) {
	e := newTestExtractor()
	content := base64.StdEncoding.EncodeToString([]byte("id card"))
	d := mustProcess(t, e, `{
		"number_of_people": 5,
		"data": {
			"accompanyingPersons": [
				{"fullName": "Ann Lee", "accompanying_identity_document_acc": "data:image/png;base64,`+content+`", "accompanying_identity_document_acc_filename": "ann.png"},
				{"full_name_acc": "Bo Chen"},
				{"fullName": ""},
				"not a person"
			]
		}
	}`)

	require.Len(t, d.AccompanyingPersons, 2)
	assert.Equal(t, "Ann Lee", d.AccompanyingPersons[0].FullName)
	require.NotNil(t, d.AccompanyingPersons[0].IdentityDocument)
	assert.Equal(t, "ann.png", d.AccompanyingPersons[0].IdentityDocument.FileName)
	assert.Equal(t, []byte("id card"), d.AccompanyingPersons[0].IdentityDocument.Content)
	assert.Equal(t, "Bo Chen", d.AccompanyingPersons[1].FullName)
	assert.Nil(t, d.AccompanyingPersons[1].IdentityDocument)
}

func TestProcess_EmptyPersonsListUsesHeadCount(t *testing.T) {
	e := newTestExtractor()
	d := mustProcess(t, e, `{"accompanying_persons": [], "number_of_people": 2}`)

	require.Len(t, d.AccompanyingPersons, 1)
	assert.Equal(t, "Accompanying Person 1", d.AccompanyingPersons[0].FullName)
}

func TestProcess_RootDateWinsOverNested(t *testing.T) {
	e := newTestExtractor()
	d := mustProcess(t, e, `{
		"rental_car": true,
		"rental_car_pickup_date": "05/01/2024",
		"data": {"rental_car_pickup_date": "2024-06-01"}
	}`)

	assert.True(t, d.UseRentalCar)
	require.NotNil(t, d.RentalCarPickupDate)
	assert.Equal(t, date(2024, time.May, 1), *d.RentalCarPickupDate)
}

func TestProcess_PlaceholderIsSkipped(t *testing.T) {
	e := newTestExtractor()
	res, ok, err := e.ProcessJSON([]byte(`{"data": {}, "submit": true}`))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, res)

	res, ok, err = e.ProcessJSON([]byte(`{"data": {"first_name": "Ann"}, "submit": true, "form_id": 3, "state": "submitted"}`))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, res)
}

func TestProcess_MalformedJSON(t *testing.T) {
	e := newTestExtractor()
	_, ok, err := e.ProcessJSON([]byte(`{"first_name": `))
	assert.Error(t, err)
	assert.False(t, ok)

	_, _, err = e.ProcessJSON([]byte(`[1, 2]`))
	assert.Error(t, err)
}

func TestProcess_Idempotent(t *testing.T) {
	e := newTestExtractor()
	raw := `{
		"first_name": "Ann",
		"trip_start_date": "05/01/2024",
		"trip_end_date": "05/04/2024",
		"train": "yes",
		"departure_city": "Munich",
		"accommodation_needed": "yes",
		"number_of_people": 2,
		"full_name": "Bo Chen",
		"currency": "usd"
	}`
	first := mustProcess(t, e, raw)
	second := mustProcess(t, e, raw)
	assert.Equal(t, first, second)

	stored := &entity.TripData{ID: 9, TripID: 4}
	res, _, _ := e.ProcessJSON([]byte(raw))
	res.Apply(stored)
	res.Apply(stored)
	assert.Len(t, stored.AccompanyingPersons, 1)
	assert.Equal(t, int64(9), stored.ID)
	assert.Equal(t, int64(4), stored.TripID)
	assert.Equal(t, int64(9), stored.AccompanyingPersons[0].TripDataID)
	assert.Equal(t, "USD", stored.Currency)
}

func TestProcess_TrainFieldsResetWhenNotSelected(t *testing.T) {
	e := newTestExtractor()
	stored := &entity.TripData{ID: 1}

	res, ok, err := e.ProcessJSON([]byte(`{
		"means_of_transport": {"train": true},
		"departure_city": "Munich",
		"departure_station": "Munich Hbf",
		"departure_date_train": "2024-05-01",
		"departure_flexible_train": true
	}`))
	require.NoError(t, err)
	require.True(t, ok)
	res.Apply(stored)
	assert.Equal(t, "Munich", stored.TrainDepartureCity)
	assert.True(t, stored.TrainDepartureFlexible)

	// train deselected; stale values in the payload must not survive
	res, ok, err = e.ProcessJSON([]byte(`{
		"means_of_transport": {"airplane": true},
		"departure_city": "Munich",
		"departure_date_train": "2024-05-01"
	}`))
	require.NoError(t, err)
	require.True(t, ok)
	res.Apply(stored)

	assert.False(t, stored.UseTrain)
	assert.Empty(t, stored.TrainDepartureCity)
	assert.Empty(t, stored.TrainDepartureStation)
	assert.Empty(t, stored.TrainArrivalStation)
	assert.Nil(t, stored.TrainDepartureDate)
	assert.Nil(t, stored.TrainArrivalDate)
	assert.False(t, stored.TrainDepartureFlexible)
	assert.False(t, stored.TrainArrivalFlexible)
}

func TestProcess_AccommodationOnlyWhenNeeded(t *testing.T) {
	e := newTestExtractor()
	d := mustProcess(t, e, `{"accommodation_needed": "no", "residence_city": "Lyon", "check_in_date": "2024-05-01"}`)
	assert.Empty(t, d.AccommodationResidenceCity)
	assert.Nil(t, d.AccommodationCheckInDate)

	d = mustProcess(t, e, `{"accommodation_needed": "yes", "residence_city": "Lyon", "check_in_date": "2024-05-01", "need_24h_reception": "no"}`)
	assert.Equal(t, "Lyon", d.AccommodationResidenceCity)
	require.NotNil(t, d.AccommodationCheckInDate)
	assert.Equal(t, "no", d.AccommodationNeed24hReception)
}

func TestProcess_BadScalarFallsBackWithoutAborting(t *testing.T) {
	e := newTestExtractor()
	d := mustProcess(t, e, `{"trip_start_date": "not a date", "expected_cost": "lots", "first_name": "Ann"}`)

	assert.Nil(t, d.TravelStartDate)
	assert.Zero(t, d.ExpectedCost)
	assert.Equal(t, "Ann", d.FirstName)
}

func TestProcess_Currency(t *testing.T) {
	e := newTestExtractor()

	assert.Equal(t, "EUR", mustProcess(t, e, `{"first_name": "Ann"}`).Currency)
	assert.Equal(t, "USD", mustProcess(t, e, `{"currency": "USD"}`).Currency)
	assert.Equal(t, "EUR", mustProcess(t, e, `{"currency": "GBP"}`).Currency)
	assert.Equal(t, "EUR", mustProcess(t, e, `{"currency": "dollars"}`).Currency)
}

func TestProcess_RentalCarLicense(t *testing.T) {
	e := newTestExtractor()
	content := base64.StdEncoding.EncodeToString([]byte("license"))
	d := mustProcess(t, e, `{
		"rental_car": true,
		"return_rental_car": false,
		"drivers_license": [{"storage": "base64", "base64": "`+content+`", "name": "license.jpg"}],
		"return_rental_car_drivers_license": [{"storage": "base64", "base64": "`+content+`", "name": "back.jpg"}]
	}`)

	require.NotNil(t, d.RentalCarDriversLicense)
	assert.Equal(t, "license.jpg", d.RentalCarDriversLicense.FileName)
	assert.Equal(t, []byte("license"), d.RentalCarDriversLicense.Content)
	assert.Nil(t, d.ReturnRentalCarDriversLicense)
}

func TestTransportSelection_Labels(t *testing.T) {
	sel := TransportSelection{Modes: map[string]bool{ModeRentalCar: true, ModeTrain: true, ModeBus: false}}
	assert.Equal(t, []string{"Train", "Rental Car"}, sel.Labels())
	assert.Empty(t, TransportSelection{}.Labels())
	assert.Equal(t, "Personal Car", ModeLabel(ModePersonalCar))
}
