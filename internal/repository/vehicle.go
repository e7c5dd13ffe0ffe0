package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/movitrak/avl/internal/models"
)

// VehicleRepository reads and writes the vehicle live snapshot and the
// contractor/resource reference data around it.
type VehicleRepository struct {
	db *DB
}

// NewVehicleRepository creates the repository.
func NewVehicleRepository(db *DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `idvehiculo, estado, tipo_modem, velocidad, direccion, latitud, longitud,
	municipio, departamento, ultperiodo, enc_apa, idconductor, idconductor_actual,
	ultimaactualizacion, ultimoevento, rumbo, rumbo_linea_tiempo, indexgeoc,
	estadosenal, encendido, indexevento, contratista, recurso`

func scanVehicle(row pgx.Row) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	err := row.Scan(
		&v.ID,
		&v.Status,
		&v.ModemType,
		&v.Speed,
		&v.Address,
		&v.RawLatitude,
		&v.RawLongitude,
		&v.City,
		&v.Department,
		&v.LastPeriodID,
		&v.IgnitionCode,
		&v.DriverID,
		&v.CurrentDriverID,
		&v.LastUpdate,
		&v.LastEventCode,
		&v.Heading,
		&v.TimelineHeading,
		&v.GeofenceIndex,
		&v.SignalStatus,
		&v.IgnitionOn,
		&v.LastEventID,
		&v.Contractor,
		&v.Resource,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetActive fetches the vehicle by id, only if its status is active.
// Returns nil without error when the vehicle is unknown or inactive.
func (r *VehicleRepository) GetActive(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehiculos WHERE idvehiculo = $1 AND estado = $2`
	v, err := scanVehicle(r.db.q(ctx).QueryRow(ctx, query, vehicleID, models.VehicleActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active vehicle: %w", err)
	}
	return v, nil
}

// Get fetches the vehicle by id regardless of status. Returns nil when absent.
func (r *VehicleRepository) Get(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehiculos WHERE idvehiculo = $1`
	v, err := scanVehicle(r.db.q(ctx).QueryRow(ctx, query, vehicleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	return v, nil
}

// UpdateSnapshot persists every mutable field of the live snapshot.
func (r *VehicleRepository) UpdateSnapshot(ctx context.Context, v *models.Vehicle) error {
	query := `
		UPDATE vehiculos SET
			velocidad = $1, direccion = $2, latitud = $3, longitud = $4,
			municipio = $5, departamento = $6, ultperiodo = $7, enc_apa = $8,
			idconductor_actual = $9, ultimaactualizacion = $10, ultimoevento = $11,
			rumbo = $12, rumbo_linea_tiempo = $13, indexgeoc = $14,
			estadosenal = $15, encendido = $16, indexevento = $17
		WHERE idvehiculo = $18
	`
	_, err := r.db.q(ctx).Exec(ctx, query,
		v.Speed,
		v.Address,
		v.RawLatitude,
		v.RawLongitude,
		v.City,
		v.Department,
		v.LastPeriodID,
		v.IgnitionCode,
		v.CurrentDriverID,
		v.LastUpdate,
		v.LastEventCode,
		v.Heading,
		v.TimelineHeading,
		v.GeofenceIndex,
		v.SignalStatus,
		v.IgnitionOn,
		v.LastEventID,
		v.ID,
	)
	if err != nil {
		return fmt.Errorf("update vehicle snapshot: %w", err)
	}
	return nil
}

// ToleranceMinutes looks up the per-contractor time tolerance. The procesos
// table stores a comma-separated contractor list per process; membership is
// compared case-insensitively instead of the legacy regex match. procesos
// holds one row per business process (single digits in production), so the
// filtered scan stays bounded.
func (r *VehicleRepository) ToleranceMinutes(ctx context.Context, contractor string) (int, error) {
	query := `SELECT contratistas, toleranciatiempo FROM procesos WHERE toleranciatiempo <> 0`
	rows, err := r.db.q(ctx).Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("query procesos: %w", err)
	}
	defer rows.Close()

	want := strings.ToLower(strings.TrimSpace(contractor))
	for rows.Next() {
		var list string
		var tolerance int
		if err := rows.Scan(&list, &tolerance); err != nil {
			return 0, fmt.Errorf("scan proceso: %w", err)
		}
		for _, c := range strings.Split(list, ",") {
			if strings.ToLower(strings.TrimSpace(c)) == want {
				return tolerance, nil
			}
		}
	}
	return 0, rows.Err()
}

// UpdateResourceGPS stamps the resource's last GPS check.
func (r *VehicleRepository) UpdateResourceGPS(ctx context.Context, resource, contractor string, at time.Time, ok bool) error {
	status := "OK"
	if !ok {
		status = "NOTOK"
	}
	query := `UPDATE recursos SET fechagps = $1, estadogps = $2 WHERE recurso = $3 AND contratista = $4`
	if _, err := r.db.q(ctx).Exec(ctx, query, at, status, resource, contractor); err != nil {
		return fmt.Errorf("update resource gps status: %w", err)
	}
	return nil
}
