package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the DDL for every table the engine owns. Statements are
// idempotent so EnsureSchema can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS circuits (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title            VARCHAR(255) NOT NULL,
		base_price_cents INT UNSIGNED NOT NULL DEFAULT 0,
		duration_days    INT UNSIGNED NOT NULL DEFAULT 1,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS departures (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		circuit_id   BIGINT UNSIGNED NOT NULL,
		start_date   DATETIME NOT NULL,
		total_seats  INT NOT NULL,
		booked_seats INT NOT NULL DEFAULT 0,
		price_cents  INT UNSIGNED NULL,
		status       VARCHAR(16) NOT NULL DEFAULT 'open',
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_departures_circuit (circuit_id),
		CONSTRAINT fk_departures_circuit FOREIGN KEY (circuit_id) REFERENCES circuits(id),
		CONSTRAINT chk_departures_seats CHECK (total_seats >= 1 AND booked_seats >= 0 AND booked_seats <= total_seats)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS external_sources (
		id                   BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		circuit_id           BIGINT UNSIGNED NOT NULL,
		departure_id         BIGINT UNSIGNED NOT NULL,
		url                  VARCHAR(1024) NOT NULL,
		kind                 VARCHAR(16) NOT NULL,
		frequency            VARCHAR(16) NOT NULL DEFAULT 'daily',
		rules                TEXT NOT NULL,
		active               TINYINT(1) NOT NULL DEFAULT 1,
		last_sync_at         DATETIME NULL,
		last_sync_status     VARCHAR(16) NULL,
		last_sync_error      TEXT NULL,
		consecutive_failures INT NOT NULL DEFAULT 0,
		created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_sources_circuit (circuit_id),
		CONSTRAINT fk_sources_circuit FOREIGN KEY (circuit_id) REFERENCES circuits(id),
		CONSTRAINT fk_sources_departure FOREIGN KEY (departure_id) REFERENCES departures(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS availability_snapshots (
		departure_id    BIGINT UNSIGNED PRIMARY KEY,
		available_seats INT NULL,
		total_seats     INT NULL,
		status          VARCHAR(16) NULL,
		price_cents     INT UNSIGNED NULL,
		captured_at     DATETIME NOT NULL,
		CONSTRAINT fk_snapshots_departure FOREIGN KEY (departure_id) REFERENCES departures(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS watchlist_subscriptions (
		id                            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		agency_id                     BIGINT UNSIGNED NOT NULL,
		circuit_id                    BIGINT UNSIGNED NOT NULL,
		notify_on_booking             TINYINT(1) NOT NULL DEFAULT 0,
		notify_on_availability_change TINYINT(1) NOT NULL DEFAULT 1,
		notify_on_price_change        TINYINT(1) NOT NULL DEFAULT 0,
		created_at                    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at                    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_watchlist_agency_circuit (agency_id, circuit_id),
		KEY idx_watchlist_circuit (circuit_id),
		CONSTRAINT fk_watchlist_circuit FOREIGN KEY (circuit_id) REFERENCES circuits(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the engine's tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
