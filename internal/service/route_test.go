package service

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/movitrak/avl/internal/models"
)

func routeFixture() (*fakeRouteStore, *SpecialRouteTracker) {
	routes := &fakeRouteStore{}
	tracker := NewSpecialRouteTracker(routes, zap.NewNop())
	tracker.now = func() time.Time { return testNow }
	return routes, tracker
}

func positionEvent(lat, lon float64) *models.VehicleEvent {
	return &models.VehicleEvent{
		VehicleID: "ABC123",
		Latitude:  &lat,
		Longitude: &lon,
	}
}

func testCheckpoints() []models.RouteCheckpoint {
	return []models.RouteCheckpoint{
		{RouteID: 1, CheckpointID: 11, Order: 1, CumulativeMinutes: float64Ptr(10), Latitude: 4.60, Longitude: -74.08, RadiusMeters: 200},
		{RouteID: 1, CheckpointID: 12, Order: 2, CumulativeMinutes: float64Ptr(25), Latitude: 4.65, Longitude: -74.08, RadiusMeters: 200},
		{RouteID: 1, CheckpointID: 13, Order: 3, CumulativeMinutes: float64Ptr(45), Latitude: 4.70, Longitude: -74.08, RadiusMeters: 200},
	}
}

func TestTrackRecordsCheckpointDeviation(t *testing.T) {
	routes, tracker := routeFixture()
	routes.program = &models.RouteProgram{
		ID: 77, VehicleID: "ABC123", RouteID: 1,
		Departure: testNow.Add(-40 * time.Minute),
		Active:    "S", Finished: "N", Canceled: "N",
	}
	routes.checkpoints = testCheckpoints()

	err := tracker.Track(context.Background(), positionEvent(4.65, -74.08))
	if err != nil {
		t.Fatalf("Track returned error: %v", err)
	}
	if len(routes.entries) != 1 {
		t.Fatalf("expected one control entry, got %d", len(routes.entries))
	}
	entry := routes.entries[0]
	if entry.ProgramID != 77 || entry.CheckpointID != 12 {
		t.Errorf("entry for program %d checkpoint %d, want 77/12", entry.ProgramID, entry.CheckpointID)
	}
	if math.Abs(entry.ElapsedMinutes-40) > 1e-9 {
		t.Errorf("elapsed = %v, want 40", entry.ElapsedMinutes)
	}
	// 40 elapsed against 25 expected, rebased on the first checkpoint's 10.
	if math.Abs(entry.Deviation-25) > 1e-9 {
		t.Errorf("deviation = %v, want 25", entry.Deviation)
	}
	if entry.Deviation != entry.GlobalDeviation || entry.ElapsedMinutes != entry.GlobalMinutes {
		t.Error("interval and global figures must match")
	}
	if entry.Order != 2 {
		t.Errorf("order = %d, want 2", entry.Order)
	}
}

func TestTrackSkipsVisitedCheckpoints(t *testing.T) {
	routes, tracker := routeFixture()
	routes.program = &models.RouteProgram{
		ID: 77, VehicleID: "ABC123", RouteID: 1,
		Departure: testNow.Add(-40 * time.Minute),
	}
	routes.checkpoints = testCheckpoints()
	routes.visited = map[int64]bool{12: true}

	err := tracker.Track(context.Background(), positionEvent(4.65, -74.08))
	if err != nil {
		t.Fatalf("Track returned error: %v", err)
	}
	if len(routes.entries) != 0 {
		t.Error("visited checkpoint must not be logged again")
	}
}

func TestTrackIgnoresPositionOutsideAllRadii(t *testing.T) {
	routes, tracker := routeFixture()
	routes.program = &models.RouteProgram{
		ID: 77, VehicleID: "ABC123", RouteID: 1,
		Departure: testNow.Add(-10 * time.Minute),
	}
	routes.checkpoints = testCheckpoints()

	err := tracker.Track(context.Background(), positionEvent(5.50, -74.08))
	if err != nil {
		t.Fatalf("Track returned error: %v", err)
	}
	if len(routes.entries) != 0 {
		t.Error("position outside every radius must not be logged")
	}
}

func TestTrackNoopWithoutProgramOrPosition(t *testing.T) {
	routes, tracker := routeFixture()

	if err := tracker.Track(context.Background(), positionEvent(4.60, -74.08)); err != nil {
		t.Fatalf("Track returned error: %v", err)
	}
	if len(routes.entries) != 0 {
		t.Error("no program means no entries")
	}

	routes.program = &models.RouteProgram{ID: 77, VehicleID: "ABC123", RouteID: 1, Departure: testNow}
	routes.checkpoints = testCheckpoints()
	if err := tracker.Track(context.Background(), &models.VehicleEvent{VehicleID: "ABC123"}); err != nil {
		t.Fatalf("Track returned error: %v", err)
	}
	if len(routes.entries) != 0 {
		t.Error("a position-less event must be a no-op")
	}
}
