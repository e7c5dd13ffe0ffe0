package service

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/movitrak/avl/internal/models"
)

// Ignition lifecycle states and events. The machine guards the invariant that
// a vehicle has at most one open occupancy period.
const (
	periodStateOpen   = "open"
	periodStateClosed = "closed"

	periodEventIgnite   = "ignite"
	periodEventShutdown = "shutdown"
)

// driverPeriodReopenWindow is the maximum gap between a driver period's close
// and an ignition-on for the period to be reopened instead of left closed.
const driverPeriodReopenWindow = time.Minute

// PeriodManager owns the lifecycle of occupancy periods and driver-assignment
// periods driven by ignition transitions.
type PeriodManager struct {
	periods PeriodStore
	routes  RouteStore
	logger  *zap.Logger
}

// NewPeriodManager creates the manager.
func NewPeriodManager(periods PeriodStore, routes RouteStore, logger *zap.Logger) *PeriodManager {
	return &PeriodManager{periods: periods, routes: routes, logger: logger}
}

// ignitionTransitions is the fixed transition table every ignition machine is
// built from. Ignite is only legal from closed and shutdown only from open,
// so a vehicle can never accumulate a second open period.
var ignitionTransitions = fsm.Events{
	{Name: periodEventIgnite, Src: []string{periodStateClosed}, Dst: periodStateOpen},
	{Name: periodEventShutdown, Src: []string{periodStateOpen}, Dst: periodStateClosed},
}

// newIgnitionMachine instantiates the guard at the vehicle's persisted state.
// The machine lives for one Transition call; the durable state is the open
// period row itself.
func newIgnitionMachine(open bool) *fsm.FSM {
	initial := periodStateClosed
	if open {
		initial = periodStateOpen
	}
	return fsm.NewFSM(initial, ignitionTransitions, fsm.Callbacks{})
}

// Transition advances the vehicle's occupancy period for the event and
// returns the period id the snapshot should carry: the newly opened period's
// id, or the previously recorded one when nothing opened.
func (m *PeriodManager) Transition(ctx context.Context, event *models.VehicleEvent, vehicle *models.Vehicle, driverID *int64) (*int64, error) {
	var current *models.ActivePeriod
	if vehicle.LastPeriodID != nil {
		var err error
		current, err = m.periods.GetActivePeriod(ctx, *vehicle.LastPeriodID)
		if err != nil {
			return nil, fmt.Errorf("load current period: %w", err)
		}
	}

	machine := newIgnitionMachine(current.Open())

	igniting := event.On() || event.EventCode == models.EventCodeIgnitionOn
	shuttingDown := !event.On() || event.EventCode == models.EventCodeIgnitionOff

	periodID := vehicle.LastPeriodID

	switch {
	case igniting && machine.Can(periodEventIgnite):
		id, err := m.periods.CreateActivePeriod(ctx, event.VehicleID, event.EffectiveDate, driverID)
		if err != nil {
			return nil, fmt.Errorf("open period: %w", err)
		}
		if err := machine.Event(ctx, periodEventIgnite); err != nil {
			return nil, fmt.Errorf("ignite transition: %w", err)
		}
		periodID = &id
		m.logger.Info("opened occupancy period",
			zap.String("vehicle_id", event.VehicleID),
			zap.Int64("period_id", id))

	case shuttingDown && machine.Can(periodEventShutdown):
		if err := m.periods.CloseActivePeriod(ctx, current.ID, event.EffectiveDate); err != nil {
			return nil, fmt.Errorf("close period: %w", err)
		}
		if err := machine.Event(ctx, periodEventShutdown); err != nil {
			return nil, fmt.Errorf("shutdown transition: %w", err)
		}
		m.logger.Info("closed occupancy period",
			zap.String("vehicle_id", event.VehicleID),
			zap.Int64("period_id", current.ID))
	}

	return periodID, nil
}

// ResetDriverPeriod collapses or closes the driver-assignment period after an
// explicit ignition event (codes 5/6). An ignition-on within one minute of
// the prior close reopens the period, folding brief ignition blips into one
// continuous assignment. Otherwise an open period is closed, and the
// vehicle's driver assignment is cleared when no active special program
// remains.
func (m *PeriodManager) ResetDriverPeriod(ctx context.Context, event *models.VehicleEvent, driverID *int64) error {
	if driverID == nil {
		return nil
	}

	last, err := m.periods.LastDriverPeriod(ctx, event.VehicleID, *driverID)
	if err != nil {
		return fmt.Errorf("load last driver period: %w", err)
	}

	if last != nil && last.To != nil &&
		event.EffectiveDate.Sub(*last.To) < driverPeriodReopenWindow &&
		event.EventCode == models.EventCodeIgnitionOn {
		if err := m.periods.SetDriverPeriodEnd(ctx, last.ID, nil); err != nil {
			return fmt.Errorf("reopen driver period: %w", err)
		}
		m.logger.Info("reopened driver period",
			zap.String("vehicle_id", event.VehicleID),
			zap.Int64("driver_id", *driverID),
			zap.Int64("period_id", last.ID))
		return nil
	}

	if last != nil && last.To == nil {
		end := event.EffectiveDate
		if err := m.periods.SetDriverPeriodEnd(ctx, last.ID, &end); err != nil {
			return fmt.Errorf("close driver period: %w", err)
		}
	}

	hasProgram, err := m.routes.HasActiveProgram(ctx, event.VehicleID)
	if err != nil {
		return fmt.Errorf("check active programs: %w", err)
	}
	if !hasProgram {
		if err := m.periods.ClearCurrentDriver(ctx, event.VehicleID, *driverID); err != nil {
			return fmt.Errorf("clear current driver: %w", err)
		}
	}
	return nil
}
