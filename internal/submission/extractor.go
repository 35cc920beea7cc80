package submission

import (
	"strings"

	"github.com/garyjia/business-trip/internal/domain/entity"
	"go.uber.org/zap"
)

// Options tune extraction
type Options struct {
	// DefaultCurrency is used when the submission names no known currency
	DefaultCurrency string
	// Currencies restricts accepted codes; empty accepts any ISO-4217 shaped code
	Currencies []string
}

// Extractor turns form submissions into TripData values
type Extractor struct {
	logger     *zap.Logger
	opts       Options
	currencies map[string]bool
}

// Result is everything one submission yields. Data is a complete snapshot:
// fields the submission does not carry hold their reset values.
type Result struct {
	Data     *entity.TripData
	Outbound TransportSelection
	Return   TransportSelection
}

// NewExtractor creates a new submission extractor
func NewExtractor(logger *zap.Logger, opts Options) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "EUR"
	}
	currencies := make(map[string]bool, len(opts.Currencies))
	for _, c := range opts.Currencies {
		currencies[strings.ToUpper(c)] = true
	}
	return &Extractor{logger: logger, opts: opts, currencies: currencies}
}

// Extract resolves one value: the root key first, then the nested key, then
// def. Values that cannot be coerced to kind yield def.
func (e *Extractor) Extract(root, nested map[string]interface{}, rootKey, nestedKey string, kind Kind, def interface{}) (interface{}, Source) {
	p := &Payload{Root: root, Nested: nested}
	if p.Root == nil {
		p.Root = map[string]interface{}{}
	}
	if p.Nested == nil {
		p.Nested = map[string]interface{}{}
	}
	return e.resolveWithSource(p, []string{rootKey}, []string{nestedKey}, kind, def)
}

func (e *Extractor) resolve(p *Payload, rootKeys, nestedKeys []string, kind Kind, def interface{}) interface{} {
	v, _ := e.resolveWithSource(p, rootKeys, nestedKeys, kind, def)
	return v
}

func (e *Extractor) resolveWithSource(p *Payload, rootKeys, nestedKeys []string, kind Kind, def interface{}) (interface{}, Source) {
	raw, source, ok := p.lookup(rootKeys, nestedKeys)
	if !ok {
		return def, SourceDefault
	}
	v, err := coerce(raw, kind)
	if err != nil {
		e.logger.Warn("Unparseable submission value, using default",
			zap.Strings("keys", rootKeys),
			zap.String("kind", kind.String()),
			zap.Any("value", raw),
			zap.Error(err))
		return def, SourceDefault
	}
	return v, source
}

// ProcessJSON decodes and processes a raw submission
func (e *Extractor) ProcessJSON(raw []byte) (*Result, bool, error) {
	p, err := Decode(raw)
	if err != nil {
		e.logger.Error("Failed to decode submission", zap.Error(err))
		return nil, false, err
	}
	res, ok := e.Process(p)
	return res, ok, nil
}

// Process extracts a full TripData snapshot. It returns false for placeholder
// submissions that carry only bookkeeping keys; nothing must be written then.
func (e *Extractor) Process(p *Payload) (*Result, bool) {
	if p.IsPlaceholder() {
		e.logger.Info("Skipping submission without user data")
		return nil, false
	}

	d := &entity.TripData{}
	res := &Result{Data: d}

	// transport toggles gate the detail fields below
	res.Outbound = e.extractTransport(p, OutboundLeg)
	res.Outbound.applyOutbound(d)
	res.Return = e.extractTransport(p, ReturnLeg)
	res.Return.applyReturn(d)

	for _, f := range fieldTable {
		if !groupEnabled(f.Group, d) {
			f.target.reset(d)
			continue
		}
		v, source := e.resolveWithSource(p, f.Root, f.Nested, f.Kind(), nil)
		if source == SourceDefault {
			f.target.reset(d)
			continue
		}
		f.target.assign(d, v)
	}

	if d.UseRentalCar {
		d.RentalCarDriversLicense = e.firstDocument(p, "drivers_license_file", "drivers_license", "rental_car_drivers_license")
	}
	if d.UseReturnRentalCar {
		d.ReturnRentalCarDriversLicense = e.firstDocument(p, "return_rental_car_drivers_license")
	}

	d.Currency = e.currency(p)
	d.AccompanyingPersons = e.extractPersons(p)

	e.logger.Info("Submission extracted",
		zap.String("transport", d.TransportMeansJSON),
		zap.String("return_transport", d.ReturnTransportMeansJSON),
		zap.Int("accompanying_persons", len(d.AccompanyingPersons)))
	return res, true
}

// currency returns the submitted code when it is acceptable, else the default
func (e *Extractor) currency(p *Payload) string {
	code, _ := e.resolve(p, keys("currency"), keys("currency"), KindString, "").(string)
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		e.logger.Warn("No currency in submission, using default", zap.String("currency", e.opts.DefaultCurrency))
		return e.opts.DefaultCurrency
	}
	if !isCurrencyCode(code) || (len(e.currencies) > 0 && !e.currencies[code]) {
		e.logger.Warn("Unknown currency in submission, using default",
			zap.String("submitted", code),
			zap.String("currency", e.opts.DefaultCurrency))
		return e.opts.DefaultCurrency
	}
	return code
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Apply overwrites dst with the extracted snapshot, keeping its identity
func (r *Result) Apply(dst *entity.TripData) {
	id, tripID, created := dst.ID, dst.TripID, dst.CreatedAt
	*dst = *r.Data
	dst.ID, dst.TripID, dst.CreatedAt = id, tripID, created
	dst.AccompanyingPersons = make([]entity.AccompanyingPerson, len(r.Data.AccompanyingPersons))
	for i, person := range r.Data.AccompanyingPersons {
		person.TripDataID = id
		dst.AccompanyingPersons[i] = person
	}
}
