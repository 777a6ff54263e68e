// Package ledger implements the quality-check ledger: an append-only,
// audit-grade log of data-quality check executions. Entries are never
// edited or removed; a failing check is data, not a control-flow error.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/looplj/lakegate/internal/authz"
	"github.com/looplj/lakegate/internal/layers"
	"github.com/looplj/lakegate/internal/log"
)

// Status is the outcome class of one check execution.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusWarn Status = "warn"
)

// Entry is one appended check execution.
type Entry struct {
	CheckID        int64     `json:"check_id"`
	CheckName      string    `json:"check_name"`
	TargetTable    string    `json:"target_table"`
	Status         Status    `json:"status"`
	SuccessPercent float64   `json:"success_percent"`
	ErrorDetail    *string   `json:"error_detail,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

// Outcome is what an evaluator reports for one execution.
type Outcome struct {
	Status         Status
	SuccessPercent float64
	ErrorDetail    *string
}

// Evaluator runs one table-specific check. Check logic belongs to the
// calling collaborator; the ledger only persists outcomes. An evaluator
// error means the check could not run at all and nothing is appended.
type Evaluator func(ctx context.Context) (Outcome, error)

// timeFormat matches the store's canonical column encoding.
const timeFormat = time.RFC3339

// Ledger appends and lists quality-check entries.
type Ledger struct {
	db *sql.DB
}

// New wires a Ledger over an opened database.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// RecordCheck runs the evaluator and appends its outcome.
//
// Check ids come from the table's AUTOINCREMENT under the insert
// transaction: strictly increasing and duplicate-free under concurrency,
// gaps permitted. Running checks is a background-job concern, so the caller
// must hold the system or privileged-engineer role.
func (l *Ledger) RecordCheck(ctx context.Context, checkName, targetTable string, evaluator Evaluator) (Entry, error) {
	p, ok := authz.GetPrincipal(ctx)
	if !ok || !p.IsPrivileged() {
		return Entry{}, fmt.Errorf("%w: recording quality checks requires a privileged principal, got %s",
			authz.ErrAccessDenied, p.String())
	}

	outcome, err := evaluator(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("evaluate %s on %s: %w", checkName, targetTable, err)
	}

	if outcome.SuccessPercent < 0 || outcome.SuccessPercent > 100 {
		return Entry{}, fmt.Errorf("record check %s: success percent %.2f out of range", checkName, outcome.SuccessPercent)
	}

	entry := Entry{
		CheckName:      checkName,
		TargetTable:    targetTable,
		Status:         outcome.Status,
		SuccessPercent: outcome.SuccessPercent,
		ErrorDetail:    outcome.ErrorDetail,
		CheckedAt:      time.Now().UTC(),
	}

	var detail any
	if entry.ErrorDetail != nil {
		detail = *entry.ErrorDetail
	}

	query, args, err := builder().
		Insert("quality_checks").
		Columns("check_name", "target_table", "status", "success_percent", "error_detail", "checked_at").
		Values(entry.CheckName, entry.TargetTable, string(entry.Status),
			entry.SuccessPercent, detail, entry.CheckedAt.Format(timeFormat)).
		ToSql()
	if err != nil {
		return Entry{}, fmt.Errorf("build check insert: %w", err)
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Entry{}, fmt.Errorf("append check entry: %w", err)
	}

	entry.CheckID, err = res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("append check entry: %w", err)
	}

	log.Info(ctx, "ledger: quality check recorded",
		log.Int64("check_id", entry.CheckID),
		log.String("check_name", entry.CheckName),
		log.String("target_table", entry.TargetTable),
		log.String("status", string(entry.Status)),
		log.Float64("success_percent", entry.SuccessPercent),
	)

	return entry, nil
}

// ListChecks returns entries in ascending check_id order, optionally
// filtered by target table and a lower time bound.
func (l *Ledger) ListChecks(ctx context.Context, targetTable string, since *time.Time) ([]Entry, error) {
	p, ok := authz.GetPrincipal(ctx)
	if !ok || !layers.Known(p.Role) {
		return nil, fmt.Errorf("%w: listing quality checks requires a known role", authz.ErrAccessDenied)
	}

	b := builder().
		Select("check_id", "check_name", "target_table", "status", "success_percent", "error_detail", "checked_at").
		From("quality_checks").
		OrderBy("check_id ASC")

	if targetTable != "" {
		b = b.Where(sq.Eq{"target_table": targetTable})
	}

	if since != nil {
		b = b.Where(sq.GtOrEq{"checked_at": since.UTC().Format(timeFormat)})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build check list: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query check entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e         Entry
			status    string
			detail    sql.NullString
			checkedAt string
		)

		err := rows.Scan(&e.CheckID, &e.CheckName, &e.TargetTable, &status,
			&e.SuccessPercent, &detail, &checkedAt)
		if err != nil {
			return nil, fmt.Errorf("scan check entry: %w", err)
		}

		e.Status = Status(status)

		if detail.Valid {
			d := detail.String
			e.ErrorDetail = &d
		}

		if e.CheckedAt, err = time.Parse(timeFormat, checkedAt); err != nil {
			return nil, fmt.Errorf("decode checked_at: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check entries: %w", err)
	}

	return entries, nil
}

// LastStatus returns the status of the most recent check against a table.
// Deployments that want to gate derivation on ledger health consult this;
// the core itself never gates.
func (l *Ledger) LastStatus(ctx context.Context, targetTable string) (Status, bool, error) {
	entries, err := l.ListChecks(ctx, targetTable, nil)
	if err != nil {
		return "", false, err
	}

	if len(entries) == 0 {
		return "", false, nil
	}

	return entries[len(entries)-1].Status, true, nil
}
