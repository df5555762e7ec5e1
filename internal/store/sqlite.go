package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/iwvelando/loan-tracker/pkg/datetime"
	"github.com/iwvelando/loan-tracker/pkg/loans"
	"github.com/iwvelando/loan-tracker/pkg/mathutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the collection in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens the database at dataSourceName and initializes the schema.
func NewSQLiteStore(dataSourceName string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	for _, pragma := range []string{"PRAGMA foreign_keys = ON;", "PRAGMA journal_mode = WAL;"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}

	logger.Debug("database connection established",
		zap.String("op", "store.NewSQLiteStore"),
		zap.String("dataSource", dataSourceName),
	)
	return s, nil
}

// initSchema creates the tables if they don't already exist. Amounts are
// TEXT so no precision is lost; position keeps the collection order.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		principal TEXT NOT NULL,
		rate TEXT NOT NULL,
		start_date TEXT NOT NULL,
		kind TEXT NOT NULL,
		tenure INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS repayments (
		loan_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		date TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		principal_component TEXT NOT NULL,
		interest_component TEXT NOT NULL,
		PRIMARY KEY(loan_id, position),
		FOREIGN KEY(loan_id) REFERENCES loans(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads every loan with its ledger.
func (s *SQLiteStore) Load(ctx context.Context) ([]loans.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, principal, rate, start_date, kind, tenure, status FROM loans ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	records := []loans.Record{}
	index := make(map[string]int)
	for rows.Next() {
		var record loans.Record
		var principal, rate, startDate, kind, status string
		if err := rows.Scan(&record.ID, &record.Title, &principal, &rate, &startDate, &kind, &record.Tenure, &status); err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		if record.Principal, err = parseAmount(principal); err != nil {
			return nil, fmt.Errorf("loan %s principal: %w", record.ID, err)
		}
		if record.Rate, err = parseAmount(rate); err != nil {
			return nil, fmt.Errorf("loan %s rate: %w", record.ID, err)
		}
		if record.StartDate, err = datetime.Parse(startDate); err != nil {
			return nil, fmt.Errorf("loan %s start date: %w", record.ID, err)
		}
		record.Kind = loans.Kind(kind)
		record.Status = loans.State(status)
		record.Repayments = []loans.Repayment{}

		index[record.ID] = len(records)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loans: %w", err)
	}

	if err := s.loadRepayments(ctx, records, index); err != nil {
		return nil, err
	}

	if err := Normalize(records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *SQLiteStore) loadRepayments(ctx context.Context, records []loans.Record, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT loan_id, id, date, amount_paid, principal_component, interest_component FROM repayments ORDER BY loan_id, position`)
	if err != nil {
		return fmt.Errorf("failed to query repayments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var loanID, date, amount, principal, interest string
		var repayment loans.Repayment
		if err := rows.Scan(&loanID, &repayment.ID, &date, &amount, &principal, &interest); err != nil {
			return fmt.Errorf("failed to scan repayment: %w", err)
		}
		if repayment.Date, err = datetime.Parse(date); err != nil {
			return fmt.Errorf("repayment %s date: %w", repayment.ID, err)
		}
		if repayment.AmountPaid, err = parseAmount(amount); err != nil {
			return fmt.Errorf("repayment %s amount: %w", repayment.ID, err)
		}
		if repayment.PrincipalComponent, err = parseAmount(principal); err != nil {
			return fmt.Errorf("repayment %s principal: %w", repayment.ID, err)
		}
		if repayment.InterestComponent, err = parseAmount(interest); err != nil {
			return fmt.Errorf("repayment %s interest: %w", repayment.ID, err)
		}

		i, ok := index[loanID]
		if !ok {
			s.logger.Warn("skipping repayment of unknown loan",
				zap.String("op", "store.SQLiteStore.Load"),
				zap.String("loanID", loanID),
				zap.String("repaymentID", repayment.ID),
			)
			continue
		}
		records[i].Repayments = append(records[i].Repayments, repayment)
	}
	return rows.Err()
}

// Save replaces the stored collection within a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, records []loans.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM repayments`); err != nil {
		return fmt.Errorf("failed to clear repayments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM loans`); err != nil {
		return fmt.Errorf("failed to clear loans: %w", err)
	}

	insertLoan, err := tx.PrepareContext(ctx,
		`INSERT INTO loans (id, position, title, principal, rate, start_date, kind, tenure, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare loan insert: %w", err)
	}
	defer insertLoan.Close()

	insertRepayment, err := tx.PrepareContext(ctx,
		`INSERT INTO repayments (loan_id, position, id, date, amount_paid, principal_component, interest_component)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare repayment insert: %w", err)
	}
	defer insertRepayment.Close()

	for position, record := range records {
		if err := checkFinite(record); err != nil {
			return err
		}
		if _, err := insertLoan.ExecContext(ctx,
			record.ID, position, record.Title,
			formatAmount(record.Principal), formatAmount(record.Rate),
			record.StartDate.Format(constants.DateLayout),
			string(record.Kind), record.Tenure, string(record.Status),
		); err != nil {
			return fmt.Errorf("failed to insert loan %s: %w", record.ID, err)
		}

		for i, repayment := range record.Repayments {
			if _, err := insertRepayment.ExecContext(ctx,
				record.ID, i, repayment.ID,
				repayment.Date.Format(constants.DateLayout),
				formatAmount(repayment.AmountPaid),
				formatAmount(repayment.PrincipalComponent),
				formatAmount(repayment.InterestComponent),
			); err != nil {
				return fmt.Errorf("failed to insert repayment %s of loan %s: %w", repayment.ID, record.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collection: %w", err)
	}

	s.logger.Debug("collection saved",
		zap.String("op", "store.SQLiteStore.Save"),
		zap.Int("records", len(records)),
	)
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// checkFinite guards formatAmount, which cannot represent NaN or infinities.
func checkFinite(record loans.Record) error {
	values := []float64{record.Principal, record.Rate}
	for _, repayment := range record.Repayments {
		values = append(values, repayment.AmountPaid, repayment.PrincipalComponent, repayment.InterestComponent)
	}
	for _, value := range values {
		if !mathutil.IsFinite(value) {
			return fmt.Errorf("loan %s: %w: amounts must be finite numbers", record.ID, loans.ErrInvalidInput)
		}
	}
	return nil
}

func formatAmount(value float64) string {
	return decimal.NewFromFloat(value).String()
}

func parseAmount(value string) (float64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
