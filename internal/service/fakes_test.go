package service

import (
	"context"
	"time"

	"github.com/movitrak/avl/internal/models"
)

type fakeVehicleStore struct {
	vehicles   map[string]*models.Vehicle
	tolerances map[string]int

	snapshots     []models.Vehicle
	resourceCalls []resourceCall
}

type resourceCall struct {
	resource   string
	contractor string
	at         time.Time
	ok         bool
}

func newFakeVehicleStore() *fakeVehicleStore {
	return &fakeVehicleStore{
		vehicles:   make(map[string]*models.Vehicle),
		tolerances: make(map[string]int),
	}
}

func (f *fakeVehicleStore) GetActive(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	v, ok := f.vehicles[vehicleID]
	if !ok || v.Status != models.VehicleActive {
		return nil, nil
	}
	return v, nil
}

func (f *fakeVehicleStore) UpdateSnapshot(ctx context.Context, v *models.Vehicle) error {
	f.snapshots = append(f.snapshots, *v)
	return nil
}

func (f *fakeVehicleStore) ToleranceMinutes(ctx context.Context, contractor string) (int, error) {
	return f.tolerances[contractor], nil
}

func (f *fakeVehicleStore) UpdateResourceGPS(ctx context.Context, resource, contractor string, at time.Time, ok bool) error {
	f.resourceCalls = append(f.resourceCalls, resourceCall{resource, contractor, at, ok})
	return nil
}

type summaryCall struct {
	vehicleID string
	eventCode int
	date      time.Time
	hour      int
}

type fakeEventStore struct {
	staticCodes map[int]bool
	nextEventID int64
	saveErr     error

	saved     []models.VehicleEvent
	odometers []float64
	summaries []summaryCall
	roadRows  int
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{staticCodes: make(map[int]bool), nextEventID: 100}
}

func (f *fakeEventStore) SaveEvent(ctx context.Context, e *models.VehicleEvent) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.nextEventID++
	f.saved = append(f.saved, *e)
	return f.nextEventID, nil
}

func (f *fakeEventStore) SaveOdometer(ctx context.Context, vehicleID string, value float64, at time.Time) error {
	f.odometers = append(f.odometers, value)
	return nil
}

func (f *fakeEventStore) IsStaticEvent(ctx context.Context, eventCode int) (bool, error) {
	return f.staticCodes[eventCode], nil
}

func (f *fakeEventStore) BumpSummary(ctx context.Context, vehicleID string, eventCode int, date time.Time, hour int) error {
	f.summaries = append(f.summaries, summaryCall{vehicleID, eventCode, date, hour})
	return nil
}

func (f *fakeEventStore) InsertRoadIndex(ctx context.Context, address, city, department string, lat, lon float64) error {
	f.roadRows++
	return nil
}

type fakePeriodStore struct {
	periods       map[int64]*models.ActivePeriod
	nextPeriodID  int64
	lastDriverPer *models.DriverPeriod

	setEndCalls []driverEndCall
	clearCalls  []string
}

type driverEndCall struct {
	periodID int64
	end      *time.Time
}

func newFakePeriodStore() *fakePeriodStore {
	return &fakePeriodStore{periods: make(map[int64]*models.ActivePeriod), nextPeriodID: 500}
}

func (f *fakePeriodStore) GetActivePeriod(ctx context.Context, periodID int64) (*models.ActivePeriod, error) {
	return f.periods[periodID], nil
}

func (f *fakePeriodStore) CreateActivePeriod(ctx context.Context, vehicleID string, start time.Time, driverID *int64) (int64, error) {
	f.nextPeriodID++
	f.periods[f.nextPeriodID] = &models.ActivePeriod{
		ID:        f.nextPeriodID,
		VehicleID: vehicleID,
		DriverID:  driverID,
		From:      start,
	}
	return f.nextPeriodID, nil
}

func (f *fakePeriodStore) CloseActivePeriod(ctx context.Context, periodID int64, end time.Time) error {
	if p, ok := f.periods[periodID]; ok {
		p.To = &end
	}
	return nil
}

func (f *fakePeriodStore) LastDriverPeriod(ctx context.Context, vehicleID string, driverID int64) (*models.DriverPeriod, error) {
	return f.lastDriverPer, nil
}

func (f *fakePeriodStore) SetDriverPeriodEnd(ctx context.Context, periodID int64, end *time.Time) error {
	f.setEndCalls = append(f.setEndCalls, driverEndCall{periodID, end})
	if f.lastDriverPer != nil && f.lastDriverPer.ID == periodID {
		f.lastDriverPer.To = end
	}
	return nil
}

func (f *fakePeriodStore) ClearCurrentDriver(ctx context.Context, vehicleID string, driverID int64) error {
	f.clearCalls = append(f.clearCalls, vehicleID)
	return nil
}

type fakeRouteStore struct {
	program     *models.RouteProgram
	hasProgram  bool
	checkpoints []models.RouteCheckpoint
	visited     map[int64]bool

	entries []models.RouteControlEntry
}

func (f *fakeRouteStore) ActiveProgram(ctx context.Context, vehicleID string, date time.Time) (*models.RouteProgram, error) {
	return f.program, nil
}

func (f *fakeRouteStore) HasActiveProgram(ctx context.Context, vehicleID string) (bool, error) {
	return f.hasProgram, nil
}

func (f *fakeRouteStore) Checkpoints(ctx context.Context, routeID int64) ([]models.RouteCheckpoint, error) {
	return f.checkpoints, nil
}

func (f *fakeRouteStore) VisitedCheckpoints(ctx context.Context, programID int64) (map[int64]bool, error) {
	if f.visited == nil {
		return map[int64]bool{}, nil
	}
	return f.visited, nil
}

func (f *fakeRouteStore) AppendControlLog(ctx context.Context, entry *models.RouteControlEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

type fakeGeocoder struct {
	result *models.Geolocation
	calls  int
}

func (f *fakeGeocoder) Resolve(ctx context.Context, lat, lon float64) *models.Geolocation {
	f.calls++
	if f.result == nil {
		return models.Unavailable()
	}
	return f.result
}

type fakePublisher struct {
	published []models.VehicleEvent
}

func (f *fakePublisher) Publish(ctx context.Context, event *models.VehicleEvent) error {
	f.published = append(f.published, *event)
	return nil
}

type fakeTxRunner struct {
	calls     int
	rollbacks int
}

func (f *fakeTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if err := fn(ctx); err != nil {
		f.rollbacks++
		return err
	}
	return nil
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func float64Ptr(f float64) *float64 { return &f }

func boolPtr(b bool) *bool { return &b }
