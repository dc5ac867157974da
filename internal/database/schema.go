package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the DDL for the tables the service owns.  Statements are
// idempotent so Migrate can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id                VARCHAR(64)  NOT NULL PRIMARY KEY,
		title             VARCHAR(255) NOT NULL,
		description       TEXT         NOT NULL,
		location          VARCHAR(255) NOT NULL,
		date_ms           BIGINT       NOT NULL,
		image_url         VARCHAR(1024) NOT NULL DEFAULT '',
		nft_image_url     VARCHAR(1024) NOT NULL DEFAULT '',
		organizer_address VARCHAR(128) NOT NULL,
		organizer_name    VARCHAR(255) NOT NULL DEFAULT '',
		metadata_uri      VARCHAR(1024) NULL,
		on_chain_id       BIGINT UNSIGNED NULL,
		status            ENUM('upcoming','live','ended') NOT NULL DEFAULT 'upcoming',
		created_at_ms     BIGINT       NOT NULL,
		KEY idx_events_organizer (organizer_address)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS event_tiers (
		event_id  VARCHAR(64)    NOT NULL,
		tier      ENUM('general','vip','backstage') NOT NULL,
		price     DECIMAL(20,6)  NOT NULL,
		available INT UNSIGNED   NOT NULL,
		sold      INT UNSIGNED   NOT NULL DEFAULT 0,
		PRIMARY KEY (event_id, tier),
		CONSTRAINT fk_tiers_event FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE,
		CONSTRAINT chk_tiers_sold CHECK (sold <= available)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id              VARCHAR(64)  NOT NULL PRIMARY KEY,
		event_id        VARCHAR(64)  NOT NULL,
		owner_address   VARCHAR(128) NOT NULL,
		tier            ENUM('general','vip','backstage') NOT NULL,
		purchase_tx     VARCHAR(128) NOT NULL,
		qr_code_data    TEXT         NOT NULL,
		checked_in      TINYINT(1)   NOT NULL DEFAULT 0,
		checkin_time_ms BIGINT       NULL,
		reward_minted   TINYINT(1)   NOT NULL DEFAULT 0,
		reward_token_id VARCHAR(255) NULL,
		created_at_ms   BIGINT       NOT NULL,
		UNIQUE KEY uq_tickets_event_tx (event_id, purchase_tx),
		KEY idx_tickets_owner (owner_address),
		CONSTRAINT fk_tickets_event FOREIGN KEY (event_id) REFERENCES events(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the events, event_tiers and tickets tables when they do
// not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
