package services

import "car-scout/models"

// componentAliases maps normalized subsystem names used by reliability
// sources onto the six scored components.
var componentAliases = map[string]models.Component{
	"engine":         models.ComponentEngine,
	"motor":          models.ComponentEngine,
	"fuel system":    models.ComponentEngine,
	"cooling":        models.ComponentEngine,
	"cooling system": models.ComponentEngine,
	"turbo":          models.ComponentEngine,
	"timing belt":    models.ComponentEngine,
	"timing chain":   models.ComponentEngine,
	"exhaust":        models.ComponentEngine,
	"transmission":   models.ComponentTransmission,
	"gearbox":        models.ComponentTransmission,
	"clutch":         models.ComponentTransmission,
	"drivetrain":     models.ComponentTransmission,
	"cvt":            models.ComponentTransmission,
	"electrical":     models.ComponentElectrical,
	"electrics":      models.ComponentElectrical,
	"electronics":    models.ComponentElectrical,
	"infotainment":   models.ComponentElectrical,
	"battery":        models.ComponentElectrical,
	"alternator":     models.ComponentElectrical,
	"wiring":         models.ComponentElectrical,
	"suspension":     models.ComponentSuspension,
	"brakes":         models.ComponentSuspension,
	"steering":       models.ComponentSuspension,
	"shocks":         models.ComponentSuspension,
	"dampers":        models.ComponentSuspension,
	"body":           models.ComponentBody,
	"bodywork":       models.ComponentBody,
	"paint":          models.ComponentBody,
	"rust":           models.ComponentBody,
	"corrosion":      models.ComponentBody,
	"interior":       models.ComponentInterior,
	"interior trim":  models.ComponentInterior,
	"seats":          models.ComponentInterior,
	"upholstery":     models.ComponentInterior,
	"dashboard":      models.ComponentInterior,
	"cabin":          models.ComponentInterior,
}

// ComponentFor maps a source's subsystem name onto a scored component.
func ComponentFor(name string) (models.Component, bool) {
	c, ok := componentAliases[Normalize(name)]
	return c, ok
}
