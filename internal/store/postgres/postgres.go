package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/abd-ghreeb/venture-pulse/internal/store"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	db *sql.DB
}

var openDB = sql.Open

// New connects and requires the schema to be present already.
func New(conn string) (*PostgresStore, error) {
	return connect(conn, false)
}

// NewMigrated connects and applies the embedded schema before verifying it.
func NewMigrated(conn string) (*PostgresStore, error) {
	return connect(conn, true)
}

func connect(conn string, migrate bool) (*PostgresStore, error) {
	db, err := openDB("pgx", conn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if migrate {
		if err := Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := verifySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func verifySchema(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"ventures", "pilot_customers"} {
		var regclass sql.NullString
		if err := db.QueryRowContext(ctx, "SELECT to_regclass($1)", fmt.Sprintf("public.%s", table)).Scan(&regclass); err != nil {
			return err
		}
		if !regclass.Valid {
			return fmt.Errorf("database schema missing: %s table not found (run `venture-pulse seed`)", table)
		}
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

const ventureColumns = `id, name, pod, stage, founder, health, burn_rate_monthly, runway_months, nps_score, pilot_customers_count, last_update_text, description, updated_at`

// sortColumns maps sortable fields onto trusted column names. Only these
// strings are ever interpolated into ORDER BY.
var sortColumns = map[string]string{
	store.FieldBurnRateMonthly:     "burn_rate_monthly",
	store.FieldRunwayMonths:        "runway_months",
	store.FieldNPSScore:            "nps_score",
	store.FieldPilotCustomersCount: "pilot_customers_count",
	store.FieldUpdatedAt:           "updated_at",
	store.FieldName:                "name",
	store.FieldPod:                 "pod",
	store.FieldStage:               "stage",
	store.FieldHealth:              "health",
	store.FieldFounder:             "founder",
}

func (p *PostgresStore) SearchVentures(ctx context.Context, filter store.VentureFilter) ([]store.Venture, error) {
	where := &whereBuilder{}
	if filter.Name != "" {
		where.add("strpos(name, ?) > 0", filter.Name)
	}
	if filter.Founder != "" {
		where.add("strpos(lower(founder), lower(?)) > 0", filter.Founder)
	}
	if filter.Pod != "" {
		where.add("pod = ?", filter.Pod)
	}
	if filter.Stage != "" {
		where.add("stage = ?", filter.Stage)
	}
	if filter.Health != "" {
		where.add("health = ?", filter.Health)
	}
	if filter.Text != "" {
		where.add("(strpos(lower(name), lower(?)) > 0 OR strpos(lower(founder), lower(?)) > 0)", filter.Text)
	}
	if filter.MinRunway != nil {
		where.add("runway_months >= ?", *filter.MinRunway)
	}
	if filter.MaxBurn != nil {
		where.add("burn_rate_monthly <= ?", *filter.MaxBurn)
	}
	query := "SELECT " + ventureColumns + " FROM ventures" + where.sql() + " ORDER BY " + idOrder
	return p.queryVentures(ctx, query, where.args...)
}

func (p *PostgresStore) RankVentures(ctx context.Context, rank store.RankQuery) ([]store.Venture, error) {
	where := &whereBuilder{}
	if rank.Health != "" {
		where.add("health = ?", rank.Health)
	}
	if rank.Pod != "" {
		where.add("pod = ?", rank.Pod)
	}
	if t := rank.Threshold; t != nil && store.IsNumericField(t.Field) {
		column := sortColumns[t.Field]
		switch t.Op {
		case store.ThresholdGreater:
			where.add(column+" > ?", decimal.NewFromFloat(t.Value))
		case store.ThresholdLess:
			where.add(column+" < ?", decimal.NewFromFloat(t.Value))
		}
	}
	query := "SELECT " + ventureColumns + " FROM ventures" + where.sql() + orderBy(rank)
	if rank.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(rank.Limit)
	}
	return p.queryVentures(ctx, query, where.args...)
}

// idOrder sorts seeded numeric ids as numbers and breaks ties in every
// listing, so repeated queries return rows in the same order.
const idOrder = "length(id) ASC, id ASC"

func orderBy(rank store.RankQuery) string {
	clauses := []string{}
	for _, key := range rank.SortKeys {
		column, ok := sortColumns[key.Field]
		if !ok {
			continue
		}
		if key.Desc {
			clauses = append(clauses, column+" DESC")
		} else {
			clauses = append(clauses, column+" ASC")
		}
	}
	if len(clauses) == 0 && rank.DefaultOrder {
		clauses = append(clauses, "updated_at DESC")
	}
	clauses = append(clauses, idOrder)
	return " ORDER BY " + strings.Join(clauses, ", ")
}

func (p *PostgresStore) GetVenture(ctx context.Context, ventureID string) (*store.Venture, error) {
	ventures, err := p.queryVentures(ctx, "SELECT "+ventureColumns+" FROM ventures WHERE id = $1", ventureID)
	if err != nil {
		return nil, err
	}
	if len(ventures) == 0 {
		return nil, nil
	}
	return &ventures[0], nil
}

func (p *PostgresStore) UpsertVenture(ctx context.Context, venture store.Venture) error {
	updatedAt := venture.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `
		INSERT INTO ventures (
			id, name, pod, stage, founder, health, burn_rate_monthly, runway_months,
			nps_score, pilot_customers_count, last_update_text, description, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			pod = EXCLUDED.pod,
			stage = EXCLUDED.stage,
			founder = EXCLUDED.founder,
			health = EXCLUDED.health,
			burn_rate_monthly = EXCLUDED.burn_rate_monthly,
			runway_months = EXCLUDED.runway_months,
			nps_score = EXCLUDED.nps_score,
			pilot_customers_count = EXCLUDED.pilot_customers_count,
			last_update_text = EXCLUDED.last_update_text,
			description = EXCLUDED.description,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.ExecContext(
		ctx,
		upsert,
		venture.ID,
		venture.Name,
		venture.Pod,
		venture.Stage,
		venture.Founder,
		string(venture.Health),
		venture.BurnRateMonthly,
		venture.RunwayMonths,
		venture.NPSScore,
		len(venture.PilotCustomers),
		venture.LastUpdateText,
		nullString(venture.Description),
		updatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("upsert venture %s: %w", venture.ID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM pilot_customers WHERE venture_id = $1", venture.ID); err != nil {
		return fmt.Errorf("clear pilot customers for %s: %w", venture.ID, err)
	}
	for _, pilot := range venture.PilotCustomers {
		status := pilot.Status
		if status == "" {
			status = store.PilotActive
		}
		if _, err := tx.ExecContext(
			ctx,
			"INSERT INTO pilot_customers (id, venture_id, name, contract_value, start_date, status) VALUES ($1, $2, $3, $4, $5, $6)",
			pilot.ID,
			venture.ID,
			pilot.Name,
			pilot.ContractValue,
			pilot.StartDate.UTC(),
			string(status),
		); err != nil {
			return fmt.Errorf("insert pilot customer %s: %w", pilot.ID, err)
		}
	}
	return tx.Commit()
}

func (p *PostgresStore) queryVentures(ctx context.Context, query string, args ...any) ([]store.Venture, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []store.Venture{}
	for rows.Next() {
		var (
			item        store.Venture
			health      string
			description sql.NullString
			updatedAt   time.Time
		)
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Pod,
			&item.Stage,
			&item.Founder,
			&health,
			&item.BurnRateMonthly,
			&item.RunwayMonths,
			&item.NPSScore,
			&item.PilotCustomersCount,
			&item.LastUpdateText,
			&description,
			&updatedAt,
		); err != nil {
			return nil, err
		}
		item.Health = store.Health(health)
		item.Description = description.String
		item.UpdatedAt = updatedAt.UTC()
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := p.attachPilots(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *PostgresStore) attachPilots(ctx context.Context, ventures []store.Venture) error {
	if len(ventures) == 0 {
		return nil
	}
	ids := make([]string, 0, len(ventures))
	index := make(map[string]int, len(ventures))
	for i, v := range ventures {
		ids = append(ids, v.ID)
		index[v.ID] = i
		ventures[i].PilotCustomers = []store.PilotCustomer{}
	}
	const query = `
		SELECT id, venture_id, name, contract_value, start_date, status
		FROM pilot_customers
		WHERE venture_id = ANY($1::text[])
		ORDER BY start_date ASC, id ASC
	`
	rows, err := p.db.QueryContext(ctx, query, formatTextArray(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pilot     store.PilotCustomer
			ventureID string
			status    string
			startDate time.Time
		)
		if err := rows.Scan(&pilot.ID, &ventureID, &pilot.Name, &pilot.ContractValue, &startDate, &status); err != nil {
			return err
		}
		pilot.Status = store.PilotStatus(status)
		pilot.StartDate = startDate.UTC()
		if i, ok := index[ventureID]; ok {
			ventures[i].PilotCustomers = append(ventures[i].PilotCustomers, pilot)
		}
	}
	return rows.Err()
}

// whereBuilder collects ANDed predicates. Each "?" in a clause is bound to
// the clause's single argument.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func nullString(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}

func formatTextArray(values []string) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		escaped := strings.ReplaceAll(value, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		parts = append(parts, `"`+escaped+`"`)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
