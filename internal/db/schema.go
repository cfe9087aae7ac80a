package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS commission_rules (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		flat_amount DECIMAL(8,2) NOT NULL DEFAULT 0,
		percentage DECIMAL(5,2) NOT NULL DEFAULT 0
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS service_packages (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		category VARCHAR(50) NOT NULL DEFAULT 'wash',
		description TEXT NULL,
		price DECIMAL(10,2) NOT NULL,
		duration_minutes INT NOT NULL DEFAULT 60,
		chemical_recipe JSON NULL,
		commission_rule_id BIGINT NULL,
		CONSTRAINT fk_packages_rule FOREIGN KEY (commission_rule_id) REFERENCES commission_rules(id) ON DELETE SET NULL,
		CONSTRAINT chk_packages_duration CHECK (duration_minutes > 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS technicians (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(150) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'WASHER',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		KEY idx_technicians_active (role, is_active)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS technician_categories (
		technician_id BIGINT NOT NULL,
		category VARCHAR(50) NOT NULL,
		PRIMARY KEY (technician_id, category),
		CONSTRAINT fk_techcat_tech FOREIGN KEY (technician_id) REFERENCES technicians(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS customers (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(150) NOT NULL,
		loyalty_points BIGINT NOT NULL DEFAULT 0
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		vehicle_id BIGINT NOT NULL,
		technician_id BIGINT NULL,
		service_package_id BIGINT NULL,
		time_slot DATETIME NOT NULL,
		end_time DATETIME NULL,
		status ENUM('PENDING','CONFIRMED','IN_PROGRESS','COMPLETED','CANCELLED') NOT NULL DEFAULT 'PENDING',
		address VARCHAR(255) NOT NULL DEFAULT '',
		latitude DECIMAL(9,6) NULL,
		longitude DECIMAL(9,6) NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		KEY idx_bookings_tech_window (technician_id, status, time_slot, end_time),
		KEY idx_bookings_slot (time_slot),
		CONSTRAINT fk_bookings_tech FOREIGN KEY (technician_id) REFERENCES technicians(id) ON DELETE SET NULL,
		CONSTRAINT fk_bookings_package FOREIGN KEY (service_package_id) REFERENCES service_packages(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS invoices (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		booking_id BIGINT NOT NULL,
		amount DECIMAL(10,2) NOT NULL,
		is_paid TINYINT(1) NOT NULL DEFAULT 0,
		payment_method VARCHAR(20) NULL,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_invoices_booking (booking_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS chemical_inventory (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		current_volume DECIMAL(10,2) NOT NULL DEFAULT 0,
		cost_per_unit DECIMAL(10,2) NOT NULL DEFAULT 0,
		uom VARCHAR(20) NOT NULL DEFAULT 'L',
		reorder_level DECIMAL(10,2) NOT NULL DEFAULT 5,
		UNIQUE KEY uq_inventory_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS chemical_usage_logs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		inventory_id BIGINT NOT NULL,
		booking_id BIGINT NOT NULL,
		amount_used DECIMAL(10,2) NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_usage_booking (inventory_id, booking_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payroll_entries (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		staff_id BIGINT NOT NULL,
		entry_date DATE NOT NULL,
		base_wage DECIMAL(8,2) NOT NULL DEFAULT 0,
		commission_earned DECIMAL(8,2) NOT NULL DEFAULT 0,
		tips_earned DECIMAL(8,2) NOT NULL DEFAULT 0,
		UNIQUE KEY uq_payroll_staff_date (staff_id, entry_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS commission_postings (
		booking_id BIGINT PRIMARY KEY,
		staff_id BIGINT NOT NULL,
		entry_date DATE NOT NULL,
		amount DECIMAL(8,2) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS loyalty_awards (
		booking_id BIGINT PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		points BIGINT NOT NULL,
		created_at DATETIME NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS booking_fulfillment_steps (
		booking_id BIGINT NOT NULL,
		step VARCHAR(30) NOT NULL,
		outcome VARCHAR(10) NOT NULL,
		detail VARCHAR(500) NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (booking_id, step)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates missing tables.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
