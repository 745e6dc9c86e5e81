package attempt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/qtdeferred/internal/question"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) Create(ctx context.Context, a Attempt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO question_attempts
		(id,question_id,user_id,behaviour,max_mark,state,fraction,response_summary,resumed_from,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.QuestionID, a.UserID, a.Behaviour, a.MaxMark, string(a.State), nullFloat(a.Fraction),
		a.ResponseSummary, a.ResumedFrom, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert attempt: %w", err)
	}
	for _, st := range a.Steps {
		if err := insertStep(ctx, tx, a.ID, st); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Get(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,question_id,user_id,behaviour,max_mark,state,fraction,
		response_summary,resumed_from,created_at,updated_at FROM question_attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if err != nil {
		return Attempt{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id,seq,state,fraction,user_id,created_at
		FROM attempt_steps WHERE attempt_id=$1 ORDER BY seq`, id)
	if err != nil {
		return Attempt{}, err
	}
	defer rows.Close()

	bySID := map[int64]int{}
	for rows.Next() {
		var (
			sid   int64
			st    Step
			state string
			frac  sql.NullFloat64
		)
		if err := rows.Scan(&sid, &st.Seq, &state, &frac, &st.UserID, &st.CreatedAt); err != nil {
			return Attempt{}, err
		}
		st.State = question.State(state)
		st.Fraction = floatPtr(frac)
		st.Data = map[string]string{}
		bySID[sid] = len(a.Steps)
		a.Steps = append(a.Steps, st)
	}
	if err := rows.Err(); err != nil {
		return Attempt{}, err
	}

	drows, err := s.db.QueryContext(ctx, `SELECT d.step_id,d.name,d.value
		FROM attempt_step_data d JOIN attempt_steps s ON s.id=d.step_id
		WHERE s.attempt_id=$1`, id)
	if err != nil {
		return Attempt{}, err
	}
	defer drows.Close()
	for drows.Next() {
		var (
			sid         int64
			name, value string
		)
		if err := drows.Scan(&sid, &name, &value); err != nil {
			return Attempt{}, err
		}
		if i, ok := bySID[sid]; ok {
			a.Steps[i].Data[name] = value
		}
	}
	return a, drows.Err()
}

func (s *SQLStore) AppendStep(ctx context.Context, attemptID string, st Step, summary *string) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempt_steps WHERE attempt_id=$1`, attemptID).Scan(&n); err != nil {
		return Attempt{}, err
	}
	if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM question_attempts WHERE id=$1`, attemptID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Attempt{}, ErrNotFound
			}
			return Attempt{}, err
		}
	}
	if st.Seq != n {
		return Attempt{}, fmt.Errorf("%w: step %d, attempt has %d steps", ErrConflict, st.Seq, n)
	}
	if err := insertStep(ctx, tx, attemptID, st); err != nil {
		return Attempt{}, err
	}

	if summary != nil {
		_, err = tx.ExecContext(ctx, `UPDATE question_attempts SET state=$1, fraction=$2, updated_at=$3, response_summary=$4 WHERE id=$5`,
			string(st.State), nullFloat(st.Fraction), st.CreatedAt, *summary, attemptID)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE question_attempts SET state=$1, fraction=$2, updated_at=$3 WHERE id=$4`,
			string(st.State), nullFloat(st.Fraction), st.CreatedAt, attemptID)
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("update attempt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return Attempt{}, ErrConflict
		}
		return Attempt{}, err
	}
	return s.Get(ctx, attemptID)
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Attempt, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if opts.QuestionID != "" {
		add("question_id=$%d", opts.QuestionID)
	}
	if opts.UserID != "" {
		add("user_id=$%d", opts.UserID)
	}
	if opts.State != "" {
		add("state=$%d", string(opts.State))
	}

	q := `SELECT id,question_id,user_id,behaviour,max_mark,state,fraction,
		response_summary,resumed_from,created_at,updated_at FROM question_attempts`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, max(opts.Offset, 0))
	q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(r scanner) (Attempt, error) {
	var (
		a     Attempt
		state string
		frac  sql.NullFloat64
	)
	err := r.Scan(&a.ID, &a.QuestionID, &a.UserID, &a.Behaviour, &a.MaxMark, &state, &frac,
		&a.ResponseSummary, &a.ResumedFrom, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrNotFound
		}
		return Attempt{}, err
	}
	a.State = question.State(state)
	a.Fraction = floatPtr(frac)
	return a, nil
}

func insertStep(ctx context.Context, tx *sql.Tx, attemptID string, st Step) error {
	var sid int64
	err := tx.QueryRowContext(ctx, `INSERT INTO attempt_steps (attempt_id,seq,state,fraction,user_id,created_at)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		attemptID, st.Seq, string(st.State), nullFloat(st.Fraction), st.UserID, st.CreatedAt).Scan(&sid)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: step %d already stored", ErrConflict, st.Seq)
		}
		return fmt.Errorf("insert step: %w", err)
	}
	for name, value := range st.Data {
		if _, err := tx.ExecContext(ctx, `INSERT INTO attempt_step_data (step_id,name,value) VALUES ($1,$2,$3)`,
			sid, name, value); err != nil {
			return fmt.Errorf("insert step data %s: %w", name, err)
		}
	}
	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key value") // postgres
}
