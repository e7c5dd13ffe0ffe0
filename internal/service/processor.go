package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/movitrak/avl/internal/geo"
	"github.com/movitrak/avl/internal/models"
)

// Processor is the per-event state machine. It consumes one inbound telemetry
// event at a time, derives its facts and applies all state transitions for
// the vehicle inside a single transaction.
type Processor struct {
	vehicles  VehicleStore
	events    EventStore
	periods   *PeriodManager
	routes    *SpecialRouteTracker
	geocoder  Geocoder
	publisher EventPublisher
	tx        TxRunner
	logger    *zap.Logger

	summaryExempt    map[string]bool
	stuckClockModems map[string]bool
	maxValidSpeed    float64
	now              func() time.Time

	// Events for the same vehicle read-then-write the snapshot and must be
	// serialized; events for different vehicles run in parallel.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// ProcessorOptions tunes the processor.
type ProcessorOptions struct {
	// SummaryExemptVehicles are excluded from the hourly rollup.
	SummaryExemptVehicles []string
	// StuckClockModems name the modem types whose clocks drift days into the
	// past; their stale timestamps are replaced with the current time.
	StuckClockModems []string
	// MaxValidSpeed is the clamp threshold in km/h. Zero means 180.
	MaxValidSpeed float64
}

// NewProcessor wires the event processor.
func NewProcessor(
	vehicles VehicleStore,
	events EventStore,
	periods *PeriodManager,
	routes *SpecialRouteTracker,
	geocoder Geocoder,
	publisher EventPublisher,
	tx TxRunner,
	logger *zap.Logger,
	opts ProcessorOptions,
) *Processor {
	maxSpeed := opts.MaxValidSpeed
	if maxSpeed == 0 {
		maxSpeed = 180
	}
	exempt := make(map[string]bool, len(opts.SummaryExemptVehicles))
	for _, id := range opts.SummaryExemptVehicles {
		exempt[id] = true
	}
	stuck := make(map[string]bool, len(opts.StuckClockModems))
	for _, m := range opts.StuckClockModems {
		stuck[m] = true
	}
	return &Processor{
		vehicles:         vehicles,
		events:           events,
		periods:          periods,
		routes:           routes,
		geocoder:         geocoder,
		publisher:        publisher,
		tx:               tx,
		logger:           logger,
		summaryExempt:    exempt,
		stuckClockModems: stuck,
		maxValidSpeed:    maxSpeed,
		now:              time.Now,
		locks:            make(map[string]*sync.Mutex),
	}
}

// Process runs one event through the full pipeline. An unknown or inactive
// vehicle short-circuits with an "INACTIVO" result and no writes; repository
// failures abort the event with no partial commit.
func (p *Processor) Process(ctx context.Context, event *models.VehicleEvent) (*ProcessResult, error) {
	start := p.now()

	lock := p.vehicleLock(event.VehicleID)
	lock.Lock()
	defer lock.Unlock()

	res := &ProcessResult{VehicleID: event.VehicleID}

	vehicle, err := p.vehicles.GetActive(ctx, event.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("load vehicle %s: %w", event.VehicleID, err)
	}
	if vehicle == nil {
		res.Inactive = true
		res.addf("%s INACTIVO", event.VehicleID)
		return res, nil
	}

	p.parseCoordinates(event)
	p.deriveEffectiveDate(event, vehicle)
	p.resolveLocation(ctx, event)
	if err := p.applyTimeTolerance(ctx, event, vehicle); err != nil {
		return nil, err
	}
	p.normalizeSpeed(event, vehicle)

	switch {
	case isTelemetryType(event.EventType) && event.EventCode != models.EventCodeKeepAlive:
		if err := p.processFull(ctx, event, vehicle, res); err != nil {
			return nil, err
		}
	case isTelemetryType(event.EventType):
		if err := p.processKeepAlive(ctx, event, vehicle, res); err != nil {
			return nil, err
		}
	case event.EventType == models.EventTypeOTA:
		if err := p.processOTAPosition(ctx, event, vehicle, res); err != nil {
			return nil, err
		}
	}

	res.EventID = event.EventID
	res.PeriodID = event.PeriodID
	res.Static = event.IsStatic
	res.Speed = event.Speed

	p.logger.Debug("event processed",
		zap.String("vehicle_id", event.VehicleID),
		zap.Int("event_code", event.EventCode),
		zap.Duration("took", p.now().Sub(start)))

	return res, nil
}

func isTelemetryType(t int) bool {
	return t == models.EventTypeNormal || t == models.EventTypeExtended
}

func (p *Processor) vehicleLock(vehicleID string) *sync.Mutex {
	p.locksMu.Lock()
	defer p.locksMu.Unlock()
	lock, ok := p.locks[vehicleID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[vehicleID] = lock
	}
	return lock
}

// parseCoordinates fills the decimal coordinates from the modem strings.
// Malformed strings are missing GPS, not errors.
func (p *Processor) parseCoordinates(event *models.VehicleEvent) {
	if lat, err := geo.ParseCoordinate(event.RawLatitude); err == nil {
		event.Latitude = &lat
	}
	if lon, err := geo.ParseCoordinate(event.RawLongitude); err == nil {
		event.Longitude = &lon
	}
}

// deriveEffectiveDate picks the realtime timestamp, falling back to the
// keep-alive timestamp. Modems with stuck clocks report dates days in the
// past; for those models a stale date is replaced with the current time.
func (p *Processor) deriveEffectiveDate(event *models.VehicleEvent, vehicle *models.Vehicle) {
	if event.RealtimeDate != nil {
		event.EffectiveDate = *event.RealtimeDate
	} else {
		event.EffectiveDate = event.KeepAliveDate
	}

	if vehicle.ModemType == nil || !p.stuckClockModems[*vehicle.ModemType] {
		return
	}
	now := p.now()
	cutoff := now.AddDate(0, 0, -1)
	if dateOnly(event.EffectiveDate).Before(dateOnly(cutoff)) {
		event.EffectiveDate = now
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// resolveLocation fills the event's geolocation: modem-supplied fields win,
// then reverse geocoding, then whatever modem fields exist, then the
// sentinel. A still-unresolved address with full modem data is recorded into
// the road index for future lookups, best effort.
func (p *Processor) resolveLocation(ctx context.Context, event *models.VehicleEvent) {
	modemAddress := deref(event.Address)
	modemCity := deref(event.City)
	modemDepartment := deref(event.Department)
	modemComplete := modemAddress != "" && modemCity != "" && modemDepartment != ""

	switch {
	case modemComplete:
		event.Geolocation = &models.Geolocation{
			Address:    modemAddress,
			City:       modemCity,
			Department: modemDepartment,
		}
	case event.Latitude != nil && *event.Latitude != 0 && event.Longitude != nil && *event.Longitude != 0:
		info := p.geocoder.Resolve(ctx, *event.Latitude, *event.Longitude)
		if !info.Valid() {
			info = &models.Geolocation{
				Address:    fallback(modemAddress),
				City:       fallback(modemCity),
				Department: fallback(modemDepartment),
			}
		}
		event.Geolocation = info
	}

	if event.Geolocation != nil && !event.Geolocation.Valid() &&
		modemComplete && event.Latitude != nil && event.Longitude != nil {
		err := p.events.InsertRoadIndex(ctx, modemAddress, modemCity, modemDepartment,
			*event.Latitude, *event.Longitude)
		if err != nil {
			p.logger.Warn("road index insert failed",
				zap.String("vehicle_id", event.VehicleID),
				zap.Error(err))
		}
	}
}

// applyTimeTolerance shifts the effective timestamp forward by the
// contractor's tolerance minutes, when configured.
func (p *Processor) applyTimeTolerance(ctx context.Context, event *models.VehicleEvent, vehicle *models.Vehicle) error {
	if vehicle.Contractor == nil {
		return nil
	}
	tolerance, err := p.vehicles.ToleranceMinutes(ctx, *vehicle.Contractor)
	if err != nil {
		return fmt.Errorf("lookup time tolerance: %w", err)
	}
	if tolerance != 0 {
		event.EffectiveDate = event.EffectiveDate.Add(time.Duration(tolerance) * time.Minute)
	}
	return nil
}

// normalizeSpeed zeroes empty readings and clamps implausible ones to the
// vehicle's last known speed.
func (p *Processor) normalizeSpeed(event *models.VehicleEvent, vehicle *models.Vehicle) {
	switch {
	case event.RawSpeed == 0:
		event.Speed = 0
	case event.RawSpeed > p.maxValidSpeed:
		if vehicle.Speed != nil {
			event.Speed = *vehicle.Speed
		} else {
			event.Speed = 0
		}
	default:
		event.Speed = event.RawSpeed
	}
}

// processFull is the main branch: every derived fact and state transition for
// a position-bearing event, committed atomically.
func (p *Processor) processFull(ctx context.Context, event *models.VehicleEvent, vehicle *models.Vehicle, res *ProcessResult) error {
	res.addf("Trama recibida del modem: %s:%d", event.ModemIP, event.ModemPort)
	res.addf("ID Vehiculo: %s", event.VehicleID)
	res.addf("User Specified Number: %d", event.EventCode)

	// Last-known-good fallback: an event without a fix inherits the
	// vehicle's previous raw position, address and speed. The decimal
	// coordinates stay unset so position-dependent steps still skip.
	if event.Latitude == nil || *event.Latitude == 0 {
		event.RawLatitude = deref(vehicle.RawLatitude)
		event.RawLongitude = deref(vehicle.RawLongitude)
		event.Geolocation = &models.Geolocation{
			Address:    deref(vehicle.Address),
			City:       deref(vehicle.City),
			Department: deref(vehicle.Department),
		}
		if vehicle.Speed != nil {
			event.Speed = *vehicle.Speed
		} else {
			event.Speed = 0
		}
		res.UsedLastKnownGPS = true
		res.addf("Se ha actualizado la info GPS a partir de la ultima info valida")
	}

	static, err := p.events.IsStaticEvent(ctx, event.EventCode)
	if err != nil {
		return fmt.Errorf("lookup static flag: %w", err)
	}
	if static || event.Speed < 0 {
		event.IsStatic = true
		event.Speed = 0
	}

	loc := event.Geolocation
	if loc == nil {
		loc = models.Unavailable()
		event.Geolocation = loc
	}
	res.addf("Latitud: %s", event.RawLatitude)
	res.addf("Longitud: %s", event.RawLongitude)
	res.addf("Direccion: %s", loc.Address)
	res.addf("Municipio: %s", loc.City)
	res.addf("Departamento: %s", loc.Department)
	res.addf("Velocidad: %v", event.Speed)

	// Explicit ignition events carry their own code and force a
	// driver-period reset check; otherwise the code is derived from the
	// ignition flag when the frame has signal and a realtime stamp.
	resetDriverPeriod := false
	switch {
	case event.EventCode == models.EventCodeIgnitionOn || event.EventCode == models.EventCodeIgnitionOff:
		code := strconv.Itoa(event.EventCode)
		event.IgnitionCode = &code
		resetDriverPeriod = true
	case event.SignalStatus != nil && event.RealtimeDate != nil:
		code := models.IgnitionCodeOff
		if event.On() {
			code = models.IgnitionCodeOn
		}
		event.IgnitionCode = &code
	}

	driverID := vehicle.CurrentDriverID
	if driverID == nil {
		driverID = vehicle.DriverID
	}
	event.DriverID = driverID

	err = p.tx.InTx(ctx, func(ctx context.Context) error {
		periodID, err := p.periods.Transition(ctx, event, vehicle, driverID)
		if err != nil {
			return err
		}
		event.PeriodID = periodID

		if resetDriverPeriod {
			if err := p.periods.ResetDriverPeriod(ctx, event, driverID); err != nil {
				return err
			}
		}

		eventID, err := p.events.SaveEvent(ctx, event)
		if err != nil {
			return err
		}
		event.EventID = &eventID
		res.addf("Codigo Evento: %d", eventID)

		if !p.summaryExempt[event.VehicleID] {
			err := p.events.BumpSummary(ctx, event.VehicleID, event.EventCode,
				event.EffectiveDate, event.EffectiveDate.Hour())
			if err != nil {
				return err
			}
		}

		if err := p.updateSnapshot(ctx, event, vehicle, res); err != nil {
			return err
		}

		if event.HasPosition() {
			if err := p.routes.Track(ctx, event); err != nil {
				return err
			}
		}

		if vehicle.Resource != nil && vehicle.Contractor != nil {
			gpsOK := event.Latitude != nil && *event.Latitude != 0
			err := p.vehicles.UpdateResourceGPS(ctx, *vehicle.Resource, *vehicle.Contractor,
				event.EffectiveDate, gpsOK)
			if err != nil {
				return err
			}
		}

		if event.Odometer != nil {
			err := p.events.SaveOdometer(ctx, event.VehicleID, *event.Odometer, event.EffectiveDate)
			if err != nil {
				return err
			}
			res.addf("ODOMETRO: %v", *event.Odometer)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("process event for %s: %w", event.VehicleID, err)
	}

	p.publish(ctx, event)
	return nil
}

// updateSnapshot applies the event to the vehicle's live record. Without a
// fix only the bookkeeping fields move; with one the position, address,
// speed and heading move too.
func (p *Processor) updateSnapshot(ctx context.Context, event *models.VehicleEvent, vehicle *models.Vehicle, res *ProcessResult) error {
	effective := event.EffectiveDate
	code := event.EventCode

	vehicle.LastUpdate = &effective
	vehicle.LastEventCode = &code
	vehicle.LastPeriodID = event.PeriodID
	vehicle.IgnitionCode = event.IgnitionCode
	vehicle.SignalStatus = event.SignalStatus
	vehicle.IgnitionOn = event.VehicleOn

	if !event.HasPosition() {
		res.addf("El movil no posee informacion de GPS")
		return p.vehicles.UpdateSnapshot(ctx, vehicle)
	}

	// Heading from the previous fix to the new one; left untouched when the
	// previous fix is missing or zero.
	prevLat, errLat := geo.ParseCoordinate(deref(vehicle.RawLatitude))
	prevLon, errLon := geo.ParseCoordinate(deref(vehicle.RawLongitude))
	if errLat == nil && errLon == nil && prevLat != 0 {
		heading := geo.Bearing(prevLat, prevLon, *event.Latitude, *event.Longitude)
		vehicle.Heading = &heading
		vehicle.TimelineHeading = &heading
	}

	loc := event.Geolocation
	vehicle.RawLatitude = &event.RawLatitude
	vehicle.RawLongitude = &event.RawLongitude
	vehicle.Address = &loc.Address
	vehicle.City = &loc.City
	vehicle.Department = &loc.Department
	vehicle.Speed = &event.Speed
	vehicle.GeofenceIndex = event.GeofenceIndex
	vehicle.LastEventID = event.EventID

	return p.vehicles.UpdateSnapshot(ctx, vehicle)
}

// processKeepAlive refreshes the liveness fields only; periods, summaries and
// routes are untouched.
func (p *Processor) processKeepAlive(ctx context.Context, event *models.VehicleEvent, vehicle *models.Vehicle, res *ProcessResult) error {
	res.addf("Vehiculo %s Vivo!!!", event.VehicleID)

	vehicle.LastUpdate = &event.EffectiveDate
	vehicle.SignalStatus = event.SignalStatus
	vehicle.IgnitionOn = event.VehicleOn
	vehicle.LastEventID = event.EventID

	err := p.tx.InTx(ctx, func(ctx context.Context) error {
		return p.vehicles.UpdateSnapshot(ctx, vehicle)
	})
	if err != nil {
		return fmt.Errorf("keep-alive for %s: %w", event.VehicleID, err)
	}

	p.publish(ctx, event)
	return nil
}

// processOTAPosition applies an out-of-band position update. Without a usable
// latitude it is a no-op.
func (p *Processor) processOTAPosition(ctx context.Context, event *models.VehicleEvent, vehicle *models.Vehicle, res *ProcessResult) error {
	if event.Latitude == nil || *event.Latitude == 0 {
		return nil
	}

	loc := event.Geolocation
	if loc == nil {
		loc = models.Unavailable()
		event.Geolocation = loc
	}

	res.addf("Actualizando Posicion por OTA")
	res.addf("Latitud: %s", event.RawLatitude)
	res.addf("Longitud: %s", event.RawLongitude)
	res.addf("Direccion: %s", loc.Address)
	res.addf("Municipio: %s", loc.City)
	res.addf("Departamento: %s", loc.Department)

	vehicle.RawLatitude = &event.RawLatitude
	vehicle.RawLongitude = &event.RawLongitude
	vehicle.Address = &loc.Address
	vehicle.City = &loc.City
	vehicle.Department = &loc.Department
	vehicle.LastUpdate = &event.EffectiveDate
	vehicle.GeofenceIndex = event.GeofenceIndex
	vehicle.SignalStatus = event.SignalStatus
	vehicle.IgnitionOn = event.VehicleOn
	vehicle.LastEventID = event.EventID

	err := p.tx.InTx(ctx, func(ctx context.Context) error {
		return p.vehicles.UpdateSnapshot(ctx, vehicle)
	})
	if err != nil {
		return fmt.Errorf("ota position for %s: %w", event.VehicleID, err)
	}

	p.publish(ctx, event)
	return nil
}

// publish is fire-and-forget: the writes already committed, a publish
// failure is logged and dropped.
func (p *Processor) publish(ctx context.Context, event *models.VehicleEvent) {
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("publish failed",
			zap.String("vehicle_id", event.VehicleID),
			zap.Int("event_code", event.EventCode),
			zap.Error(err))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func fallback(s string) string {
	if s == "" {
		return models.NotAvailable
	}
	return s
}
