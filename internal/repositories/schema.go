package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// Timestamps are stored as RFC 3339 text with the offset kept, which both MySQL and
// SQLite round-trip byte for byte.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		id CHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(120) NOT NULL,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		station_order INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trains (
		id CHAR(36) NOT NULL PRIMARY KEY,
		train_number VARCHAR(32) NOT NULL,
		train_type VARCHAR(32) NOT NULL DEFAULT '',
		speed_kmh INT NOT NULL DEFAULT 0,
		total_seats INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		id CHAR(36) NOT NULL PRIMARY KEY,
		train_id CHAR(36) NOT NULL,
		from_station_id CHAR(36) NOT NULL,
		to_station_id CHAR(36) NOT NULL,
		departure_time VARCHAR(40) NOT NULL,
		arrival_time VARCHAR(40) NOT NULL,
		price_fils BIGINT NOT NULL,
		status VARCHAR(20) NOT NULL,
		delay_minutes INT NULL,
		cancelled_at VARCHAR(40) NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trip_skipped_stations (
		trip_id CHAR(36) NOT NULL,
		station_id CHAR(36) NOT NULL,
		PRIMARY KEY (trip_id, station_id)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id CHAR(36) NOT NULL PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		trip_id CHAR(36) NOT NULL,
		from_station_id CHAR(36) NOT NULL,
		to_station_id CHAR(36) NOT NULL,
		seat_number INT NOT NULL,
		price_fils BIGINT NOT NULL,
		status VARCHAR(20) NOT NULL,
		booked_at VARCHAR(40) NOT NULL,
		passenger_name VARCHAR(120) NULL,
		passenger_phone VARCHAR(40) NULL
	)`,
	// One row per unit leg [k, k+1) held by a live booking. The primary key is what makes
	// two overlapping live bookings of one seat impossible.
	`CREATE TABLE IF NOT EXISTS booking_seat_legs (
		trip_id CHAR(36) NOT NULL,
		seat_number INT NOT NULL,
		leg_order INT NOT NULL,
		booking_id CHAR(36) NOT NULL,
		PRIMARY KEY (trip_id, seat_number, leg_order)
	)`,
}

// EnsureSchema creates missing tables. It is safe to run on every start.
func EnsureSchema(ctx context.Context, conn *sql.DB) error {
	if conn == nil {
		return fmt.Errorf("ensure schema: no database")
	}
	for _, stmt := range schemaStatements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
