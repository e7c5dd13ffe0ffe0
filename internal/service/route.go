package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/movitrak/avl/internal/geo"
	"github.com/movitrak/avl/internal/models"
)

// SpecialRouteTracker matches a vehicle's position against its scheduled
// special route and records timing deviations at each checkpoint.
type SpecialRouteTracker struct {
	routes RouteStore
	logger *zap.Logger
	now    func() time.Time
}

// NewSpecialRouteTracker creates the tracker.
func NewSpecialRouteTracker(routes RouteStore, logger *zap.Logger) *SpecialRouteTracker {
	return &SpecialRouteTracker{routes: routes, logger: logger, now: time.Now}
}

// Track looks for an active program for the vehicle today and, if the event's
// position falls within an unvisited checkpoint's radius, appends a control
// log entry with the timing deviation. A position-less event is a no-op.
func (t *SpecialRouteTracker) Track(ctx context.Context, event *models.VehicleEvent) error {
	if !event.HasPosition() {
		return nil
	}

	now := t.now()
	program, err := t.routes.ActiveProgram(ctx, event.VehicleID, now)
	if err != nil {
		return fmt.Errorf("find active program: %w", err)
	}
	if program == nil {
		return nil
	}

	checkpoints, err := t.routes.Checkpoints(ctx, program.RouteID)
	if err != nil {
		return fmt.Errorf("load route checkpoints: %w", err)
	}
	if len(checkpoints) == 0 {
		return nil
	}

	visited, err := t.routes.VisitedCheckpoints(ctx, program.ID)
	if err != nil {
		return fmt.Errorf("load visited checkpoints: %w", err)
	}

	match := nearestUnvisited(checkpoints, visited, *event.Latitude, *event.Longitude)
	if match == nil {
		return nil
	}

	elapsed := now.Sub(program.Departure).Minutes()

	// The deviation is measured against the checkpoint's cumulative time,
	// rebased on the route's first checkpoint offset.
	initialOffset := 0.0
	if first := checkpoints[0].CumulativeMinutes; first != nil {
		initialOffset = *first
	}
	expected := 0.0
	if match.CumulativeMinutes != nil {
		expected = *match.CumulativeMinutes
	}
	deviation := elapsed - expected + initialOffset

	entry := &models.RouteControlEntry{
		ProgramID:       program.ID,
		CheckpointID:    match.CheckpointID,
		Timestamp:       now,
		ElapsedMinutes:  elapsed,
		GlobalMinutes:   elapsed,
		Deviation:       deviation,
		GlobalDeviation: deviation,
		Order:           match.Order,
	}
	if err := t.routes.AppendControlLog(ctx, entry); err != nil {
		return fmt.Errorf("append control log: %w", err)
	}

	t.logger.Info("checkpoint reached",
		zap.String("vehicle_id", event.VehicleID),
		zap.Int64("program_id", program.ID),
		zap.Int64("checkpoint_id", match.CheckpointID),
		zap.Float64("elapsed_min", elapsed),
		zap.Float64("deviation_min", deviation))

	return nil
}

// nearestUnvisited returns the closest checkpoint whose radius contains the
// position, skipping checkpoints already logged for the program.
func nearestUnvisited(checkpoints []models.RouteCheckpoint, visited map[int64]bool, lat, lon float64) *models.RouteCheckpoint {
	var best *models.RouteCheckpoint
	bestDist := 0.0
	for i := range checkpoints {
		cp := &checkpoints[i]
		if visited[cp.CheckpointID] {
			continue
		}
		dist := geo.Distance(lat, lon, cp.Latitude, cp.Longitude)
		if dist > cp.RadiusMeters {
			continue
		}
		if best == nil || dist < bestDist {
			best = cp
			bestDist = dist
		}
	}
	return best
}
