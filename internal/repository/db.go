package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the shared connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates the database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// InTx runs fn inside a transaction carried through the context. Repository
// methods invoked under fn join that transaction, so one event's writes
// commit or roll back as a unit.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// q returns the transaction bound to ctx, or the pool.
func (db *DB) q(ctx context.Context) dbtx {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db.Pool
}

// Migrate creates the schema.
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateVehiculos,
		migrationCreateEventos,
		migrationCreateEventosDesc,
		migrationCreateEventosResumen,
		migrationCreateOdometros,
		migrationCreateEjesViales,
		migrationCreateProcesos,
		migrationCreateRecursos,
		migrationCreatePeriodosActivo,
		migrationCreatePeriodosConductores,
		migrationCreateProgEspeciales,
		migrationCreateRutasEspecialesDetalles,
		migrationCreatePuntosControl,
		migrationCreateRutasEspecialesControl,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

const migrationCreateVehiculos = `
CREATE TABLE IF NOT EXISTS vehiculos (
    idvehiculo VARCHAR(50) PRIMARY KEY,
    estado VARCHAR(1) NOT NULL DEFAULT 'Y',
    tipo_modem VARCHAR(100),
    velocidad DOUBLE PRECISION,
    direccion TEXT,
    latitud VARCHAR(30),
    longitud VARCHAR(30),
    municipio VARCHAR(100),
    departamento VARCHAR(100),
    ultperiodo BIGINT,
    enc_apa VARCHAR(1),
    idconductor BIGINT,
    idconductor_actual BIGINT,
    ultimaactualizacion TIMESTAMP WITH TIME ZONE,
    ultimoevento INT,
    rumbo INT,
    rumbo_linea_tiempo INT,
    indexgeoc INT,
    estadosenal VARCHAR(20),
    encendido BOOLEAN,
    indexevento BIGINT,
    contratista VARCHAR(100),
    recurso VARCHAR(100)
);
`

const migrationCreateEventos = `
CREATE TABLE IF NOT EXISTS eventos (
    idevento BIGSERIAL PRIMARY KEY,
    idvehiculo VARCHAR(50) NOT NULL,
    evento INT NOT NULL,
    fecha TIMESTAMP WITH TIME ZONE NOT NULL,
    velocidad DOUBLE PRECISION,
    direccion TEXT,
    latitud VARCHAR(30),
    longitud VARCHAR(30),
    xpos DOUBLE PRECISION DEFAULT 0,
    ypos DOUBLE PRECISION DEFAULT 0,
    municipio VARCHAR(100),
    departamento VARCHAR(100),
    indicegeocerca INT,
    idconductor BIGINT
);
CREATE INDEX IF NOT EXISTS idx_eventos_idvehiculo ON eventos(idvehiculo);
CREATE INDEX IF NOT EXISTS idx_eventos_fecha ON eventos(fecha);
`

const migrationCreateEventosDesc = `
CREATE TABLE IF NOT EXISTS eventos_desc (
    evento INT PRIMARY KEY,
    descripcion TEXT,
    estatico VARCHAR(1) NOT NULL DEFAULT 'N'
);
`

const migrationCreateEventosResumen = `
CREATE TABLE IF NOT EXISTS eventos_resumen (
    idvehiculo VARCHAR(50) NOT NULL,
    idevento INT NOT NULL,
    valor INT NOT NULL DEFAULT 0,
    fecha DATE NOT NULL,
    hora INT NOT NULL,
    PRIMARY KEY (idvehiculo, idevento, fecha, hora)
);
`

const migrationCreateOdometros = `
CREATE TABLE IF NOT EXISTS odometros (
    idvehiculo VARCHAR(50) NOT NULL,
    valor DOUBLE PRECISION NOT NULL,
    fecha TIMESTAMP WITH TIME ZONE NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_odometros_idvehiculo ON odometros(idvehiculo);
`

const migrationCreateEjesViales = `
CREATE TABLE IF NOT EXISTS ejes_viales (
    direccion TEXT NOT NULL,
    municipio VARCHAR(100),
    departamento VARCHAR(100),
    latitud DOUBLE PRECISION NOT NULL,
    longitud DOUBLE PRECISION NOT NULL,
    dirnoform TEXT,
    xpos DOUBLE PRECISION DEFAULT 0,
    ypos DOUBLE PRECISION DEFAULT 0
);
`

const migrationCreateProcesos = `
CREATE TABLE IF NOT EXISTS procesos (
    proceso VARCHAR(100) PRIMARY KEY,
    contratistas TEXT NOT NULL,
    toleranciatiempo INT NOT NULL DEFAULT 0
);
`

const migrationCreateRecursos = `
CREATE TABLE IF NOT EXISTS recursos (
    recurso VARCHAR(100) NOT NULL,
    contratista VARCHAR(100) NOT NULL,
    fechagps TIMESTAMP WITH TIME ZONE,
    estadogps VARCHAR(10),
    PRIMARY KEY (recurso, contratista)
);
`

const migrationCreatePeriodosActivo = `
CREATE TABLE IF NOT EXISTS periodosactivo (
    idperiodo BIGSERIAL PRIMARY KEY,
    idvehiculo VARCHAR(50) NOT NULL,
    fechadesde TIMESTAMP WITH TIME ZONE NOT NULL,
    fechahasta TIMESTAMP WITH TIME ZONE,
    idconductor BIGINT
);
CREATE INDEX IF NOT EXISTS idx_periodosactivo_idvehiculo ON periodosactivo(idvehiculo);
`

const migrationCreatePeriodosConductores = `
CREATE TABLE IF NOT EXISTS periodosconductores (
    idperiodo BIGSERIAL PRIMARY KEY,
    idvehiculo VARCHAR(50) NOT NULL,
    idconductor BIGINT NOT NULL,
    fechadesde TIMESTAMP WITH TIME ZONE NOT NULL,
    fechahasta TIMESTAMP WITH TIME ZONE
);
CREATE INDEX IF NOT EXISTS idx_periodosconductores_vehiculo_conductor
    ON periodosconductores(idvehiculo, idconductor, fechadesde DESC);
`

const migrationCreateProgEspeciales = `
CREATE TABLE IF NOT EXISTS progespeciales_vehiculos (
    idprogramacion BIGSERIAL PRIMARY KEY,
    idvehiculo VARCHAR(50) NOT NULL,
    fechasalida TIMESTAMP WITH TIME ZONE NOT NULL,
    finalizado VARCHAR(1) NOT NULL DEFAULT 'N',
    cancelada VARCHAR(1) NOT NULL DEFAULT 'N',
    activa VARCHAR(1) NOT NULL DEFAULT 'S',
    idruta BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_progespeciales_idvehiculo ON progespeciales_vehiculos(idvehiculo);
`

const migrationCreateRutasEspecialesDetalles = `
CREATE TABLE IF NOT EXISTS rutas_especiales_detalles (
    idruta BIGINT NOT NULL,
    idpunto BIGINT NOT NULL,
    orden INT NOT NULL,
    tiempoglobal DOUBLE PRECISION,
    PRIMARY KEY (idruta, idpunto)
);
`

const migrationCreatePuntosControl = `
CREATE TABLE IF NOT EXISTS puntoscontrol (
    idpunto BIGSERIAL PRIMARY KEY,
    latitud DOUBLE PRECISION NOT NULL,
    longitud DOUBLE PRECISION NOT NULL,
    radio DOUBLE PRECISION NOT NULL DEFAULT 100
);
`

const migrationCreateRutasEspecialesControl = `
CREATE TABLE IF NOT EXISTS rutas_especiales_control (
    idprogramacion BIGINT NOT NULL,
    idpunto BIGINT NOT NULL,
    fecha TIMESTAMP WITH TIME ZONE NOT NULL,
    tiempoint DOUBLE PRECISION,
    tiempoglobal DOUBLE PRECISION,
    diferenciaint DOUBLE PRECISION,
    diferenciaglobal DOUBLE PRECISION,
    orden INT
);
CREATE INDEX IF NOT EXISTS idx_rutas_control_programacion ON rutas_especiales_control(idprogramacion);
`
