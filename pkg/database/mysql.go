package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/wacampaign/campaign-scheduler/environments"
	"github.com/wacampaign/campaign-scheduler/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS campaigns (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		name VARCHAR(120) NOT NULL,
		frequency VARCHAR(10) NOT NULL,
		start_date DATE NOT NULL,
		slots VARCHAR(64) NOT NULL,
		weekday_mask VARCHAR(16) NOT NULL DEFAULT '',
		message_template TEXT NOT NULL,
		product_name VARCHAR(120) NOT NULL DEFAULT '',
		product_price VARCHAR(32) NOT NULL DEFAULT '',
		media_url VARCHAR(512),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		status VARCHAR(32) NOT NULL DEFAULT 'active',
		last_execution_at DATETIME,
		next_execution_at DATETIME,
		total_sent BIGINT NOT NULL DEFAULT 0,
		schedule_error VARCHAR(255),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_campaigns_due (active, start_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS recipient_lists (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		name VARCHAR(120) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS recipients (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		list_id BIGINT NOT NULL,
		phone VARCHAR(40) NOT NULL,
		name VARCHAR(120) NOT NULL DEFAULT '',
		INDEX idx_recipients_list (list_id),
		CONSTRAINT fk_recipients_list FOREIGN KEY (list_id) REFERENCES recipient_lists (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS campaign_lists (
		campaign_id BIGINT NOT NULL,
		list_id BIGINT NOT NULL,
		PRIMARY KEY (campaign_id, list_id),
		CONSTRAINT fk_campaign_lists_campaign FOREIGN KEY (campaign_id) REFERENCES campaigns (id),
		CONSTRAINT fk_campaign_lists_list FOREIGN KEY (list_id) REFERENCES recipient_lists (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS send_history (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		campaign_id BIGINT,
		recipient VARCHAR(40) NOT NULL,
		recipient_key VARCHAR(40) NOT NULL,
		canonical_address VARCHAR(80),
		provider_message_id VARCHAR(100),
		mode VARCHAR(10) NOT NULL,
		success BOOLEAN NOT NULL,
		degraded BOOLEAN NOT NULL DEFAULT FALSE,
		error_detail TEXT,
		sent_at DATETIME NOT NULL,
		INDEX idx_send_history_campaign (campaign_id, sent_at),
		INDEX idx_send_history_recipient (recipient_key, success, sent_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

func RunMigrations(db *sqlx.DB) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

// SeedTestData inserts a demo list and two campaigns starting today in loc.
func SeedTestData(db *sqlx.DB, loc *time.Location) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM campaigns")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d campaigns, skipping seed", count)
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec("INSERT INTO recipient_lists (owner_id, name) VALUES (1, 'Clientes VIP')")
	if err != nil {
		return fmt.Errorf("failed to seed recipient list: %w", err)
	}
	listID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get list id: %w", err)
	}

	testRecipients := []struct {
		phone string
		name  string
	}{
		{"11987654321", "Ana"},
		{"+55 21 99999-0000", "Bruno"},
		{"5531988887777", "Carla"},
		{"(41) 3333-4444", ""},
	}

	for _, r := range testRecipients {
		if _, err := tx.Exec("INSERT INTO recipients (list_id, phone, name) VALUES (?, ?, ?)", listID, r.phone, r.name); err != nil {
			return fmt.Errorf("failed to seed recipients: %w", err)
		}
	}

	today := time.Now().In(loc).Format(time.DateOnly)

	testCampaigns := []struct {
		name      string
		frequency string
		slots     string
		mask      string
		template  string
		mediaURL  any
	}{
		{"Oferta diária", "daily", "09:00,15:00", "", "Oi {{name}}, {{product}} por apenas {{price}}!", nil},
		{"Vitrine semanal", "weekly", "10:30", "1,3,5", "{{ Name }}, confira o {{product}} da semana.", "https://cdn.example.com/vitrine.jpg"},
	}

	for _, c := range testCampaigns {
		res, err := tx.Exec(
			`INSERT INTO campaigns (owner_id, name, frequency, start_date, slots, weekday_mask, message_template, product_name, product_price, media_url)
			 VALUES (1, ?, ?, ?, ?, ?, ?, 'Kit Café', 'R$ 49,90', ?)`,
			c.name, c.frequency, today, c.slots, c.mask, c.template, c.mediaURL,
		)
		if err != nil {
			return fmt.Errorf("failed to seed campaigns: %w", err)
		}

		campaignID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get campaign id: %w", err)
		}

		if _, err := tx.Exec("INSERT INTO campaign_lists (campaign_id, list_id) VALUES (?, ?)", campaignID, listID); err != nil {
			return fmt.Errorf("failed to link campaign list: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	logger.Infof("Seeded %d campaigns with %d recipients", len(testCampaigns), len(testRecipients))
	return nil
}
