package submission

import (
	"encoding/json"
	"strings"

	"github.com/garyjia/business-trip/internal/domain/entity"
	"go.uber.org/zap"
)

// Transport modes as they appear in the form
const (
	ModeAirplane    = "airplane"
	ModeTrain       = "train"
	ModeBus         = "bus"
	ModeRentalCar   = "rental_car"
	ModeCompanyCar  = "company_car"
	ModePersonalCar = "personal_car"
)

var transportModes = []string{ModeAirplane, ModeTrain, ModeBus, ModeRentalCar, ModeCompanyCar, ModePersonalCar}

// Leg selects the outbound or return transport selection
type Leg struct {
	Name    string
	DictKey string
	Prefix  string
}

var (
	OutboundLeg = Leg{Name: "outbound", DictKey: "means_of_transport", Prefix: ""}
	ReturnLeg   = Leg{Name: "return", DictKey: "return_means_of_transport", Prefix: "return_"}
)

// TransportSelection is the set of modes chosen for one leg plus its audit JSON
type TransportSelection struct {
	Modes map[string]bool
	JSON  string
}

// Uses reports whether a mode was selected
func (s TransportSelection) Uses(mode string) bool {
	return s.Modes[mode]
}

// extractTransport reads a leg's selection. A dict-valued field wins over
// individual per-mode flags; the two are never merged.
func (e *Extractor) extractTransport(p *Payload, leg Leg) TransportSelection {
	if dict, ok := p.object(leg.DictKey); ok && len(dict) > 0 {
		sel := TransportSelection{Modes: make(map[string]bool, len(transportModes))}
		for _, mode := range transportModes {
			sel.Modes[mode] = toBool(dict[mode])
		}
		sel.JSON = encodeFlags(dict)
		e.logger.Debug("Transport selection from dict",
			zap.String("leg", leg.Name),
			zap.String("means", sel.JSON))
		return sel
	}

	flags := make(map[string]interface{})
	found := false
	for _, mode := range transportModes {
		key := leg.Prefix + mode
		if !p.Has(key) {
			continue
		}
		v, _ := e.resolve(p, []string{key}, []string{key}, KindBool, false).(bool)
		flags[mode] = v
		if v {
			found = true
		}
	}

	sel := TransportSelection{Modes: make(map[string]bool, len(transportModes))}
	if !found {
		sel.JSON = "{}"
		e.logger.Debug("No transport selected", zap.String("leg", leg.Name))
		return sel
	}
	for mode, v := range flags {
		sel.Modes[mode] = v.(bool)
	}
	sel.JSON = encodeFlags(flags)
	return sel
}

func encodeFlags(flags map[string]interface{}) string {
	b, err := json.Marshal(flags)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// applyOutbound copies an outbound selection onto trip data
func (s TransportSelection) applyOutbound(d *entity.TripData) {
	d.UseAirplane = s.Uses(ModeAirplane)
	d.UseTrain = s.Uses(ModeTrain)
	d.UseBus = s.Uses(ModeBus)
	d.UseRentalCar = s.Uses(ModeRentalCar)
	d.UseCompanyCar = s.Uses(ModeCompanyCar)
	d.UsePersonalCar = s.Uses(ModePersonalCar)
	d.TransportMeansJSON = s.JSON
}

// applyReturn copies a return selection onto trip data
func (s TransportSelection) applyReturn(d *entity.TripData) {
	d.UseReturnAirplane = s.Uses(ModeAirplane)
	d.UseReturnTrain = s.Uses(ModeTrain)
	d.UseReturnBus = s.Uses(ModeBus)
	d.UseReturnRentalCar = s.Uses(ModeRentalCar)
	d.UseReturnCompanyCar = s.Uses(ModeCompanyCar)
	d.UseReturnPersonalCar = s.Uses(ModePersonalCar)
	d.ReturnTransportMeansJSON = s.JSON
}

// Labels lists the chosen modes in form order, e.g. ["Train", "Rental Car"]
func (s TransportSelection) Labels() []string {
	var labels []string
	for _, mode := range transportModes {
		if s.Modes[mode] {
			labels = append(labels, ModeLabel(mode))
		}
	}
	return labels
}

// ModeLabel renders a mode key for messages, e.g. "rental_car" -> "Rental Car"
func ModeLabel(mode string) string {
	parts := strings.Split(mode, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
