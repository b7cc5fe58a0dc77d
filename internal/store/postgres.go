package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresModules, PostgresExercises and PostgresAlternatives implement the
// store interfaces over plain per-statement SQL. No statement here opens a
// transaction; the row stores are intentionally limited to single-write
// atomicity.

type PostgresModules struct {
	db *sql.DB
}

type PostgresExercises struct {
	db *sql.DB
}

type PostgresAlternatives struct {
	db *sql.DB
}

func NewPostgresModules(db *sql.DB) *PostgresModules {
	return &PostgresModules{db: db}
}

func NewPostgresExercises(db *sql.DB) *PostgresExercises {
	return &PostgresExercises{db: db}
}

func NewPostgresAlternatives(db *sql.DB) *PostgresAlternatives {
	return &PostgresAlternatives{db: db}
}

func mapConstraintErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 unique_violation, 23P01 exclusion_violation
		if pgErr.Code == "23505" || pgErr.Code == "23P01" {
			return fmt.Errorf("%s: %w: %s", op, ErrConstraintViolation, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *PostgresModules) Insert(ctx context.Context, row ModuleRow) (*ModuleRow, error) {
	r := s.db.QueryRowContext(ctx, `
		INSERT INTO modules (company_id, title, description, module_type, unlocked, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, company_id, title, description, module_type, unlocked, sort_order, created_at
	`, row.CompanyID, row.Title, row.Description, row.ModuleType, row.Unlocked, row.SortOrder)
	out, err := scanModule(r)
	if err != nil {
		return nil, mapConstraintErr("insert module", err)
	}
	return out, nil
}

func (s *PostgresModules) Update(ctx context.Context, id int64, patch ModulePatch) (*ModuleRow, error) {
	r := s.db.QueryRowContext(ctx, `
		UPDATE modules
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			module_type = COALESCE($4, module_type),
			unlocked = COALESCE($5, unlocked)
		WHERE id = $1
		RETURNING id, company_id, title, description, module_type, unlocked, sort_order, created_at
	`, id, nullString(patch.Title), nullString(patch.Description), nullString(patch.ModuleType), nullBool(patch.Unlocked))
	out, err := scanModule(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, mapConstraintErr("update module", err)
	}
	return out, nil
}

func (s *PostgresModules) SetOrder(ctx context.Context, id int64, order int) error {
	return execSetOrder(ctx, s.db, "modules", id, order)
}

func (s *PostgresModules) Delete(ctx context.Context, id int64) error {
	return execDelete(ctx, s.db, "modules", id)
}

func (s *PostgresModules) ListByCompany(ctx context.Context, companyID int64) ([]ModuleRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, title, description, module_type, unlocked, sort_order, created_at
		FROM modules
		WHERE company_id = $1
		ORDER BY sort_order ASC, id ASC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	items := make([]ModuleRow, 0)
	for rows.Next() {
		item, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}
	return items, nil
}

func (s *PostgresExercises) Insert(ctx context.Context, row ExerciseRow) (*ExerciseRow, error) {
	imagesRaw, err := marshalURLs(row.ImageURLs)
	if err != nil {
		return nil, err
	}
	r := s.db.QueryRowContext(ctx, `
		INSERT INTO exercises (module_id, question, image_urls, video_url, media_layout, weight, sort_order, created_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, now())
		RETURNING id, module_id, question, image_urls, video_url, media_layout, weight, sort_order, created_at
	`, row.ModuleID, row.Question, imagesRaw, nullString(row.VideoURL), nullString(row.MediaLayout), row.Weight, row.SortOrder)
	out, err := scanExercise(r)
	if err != nil {
		return nil, mapConstraintErr("insert exercise", err)
	}
	return out, nil
}

func (s *PostgresExercises) Update(ctx context.Context, id int64, patch ExercisePatch) (*ExerciseRow, error) {
	var imagesRaw any
	if patch.ImageURLs != nil {
		raw, err := marshalURLs(*patch.ImageURLs)
		if err != nil {
			return nil, err
		}
		imagesRaw = raw
	}
	r := s.db.QueryRowContext(ctx, `
		UPDATE exercises
		SET question = COALESCE($2, question),
			image_urls = COALESCE($3::jsonb, image_urls),
			video_url = COALESCE($4, video_url),
			media_layout = COALESCE($5, media_layout),
			weight = COALESCE($6, weight)
		WHERE id = $1
		RETURNING id, module_id, question, image_urls, video_url, media_layout, weight, sort_order, created_at
	`, id, nullString(patch.Question), imagesRaw, nullString(patch.VideoURL), nullString(patch.MediaLayout), nullFloat(patch.Weight))
	out, err := scanExercise(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, mapConstraintErr("update exercise", err)
	}
	return out, nil
}

func (s *PostgresExercises) SetOrder(ctx context.Context, id int64, order int) error {
	return execSetOrder(ctx, s.db, "exercises", id, order)
}

func (s *PostgresExercises) Delete(ctx context.Context, id int64) error {
	return execDelete(ctx, s.db, "exercises", id)
}

func (s *PostgresExercises) ListByModule(ctx context.Context, moduleID int64) ([]ExerciseRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, module_id, question, image_urls, video_url, media_layout, weight, sort_order, created_at
		FROM exercises
		WHERE module_id = $1
		ORDER BY sort_order ASC, id ASC
	`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer rows.Close()

	items := make([]ExerciseRow, 0)
	for rows.Next() {
		item, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exercises: %w", err)
	}
	return items, nil
}

// Insert rejects a correct-flagged row when the group already holds the full
// transient window of correct rows. The guard and the insert are one
// statement, so it needs nothing beyond per-statement atomicity.
func (s *PostgresAlternatives) Insert(ctx context.Context, row AlternativeRow) (*AlternativeRow, error) {
	imagesRaw, err := marshalURLs(row.ImageURLs)
	if err != nil {
		return nil, err
	}
	r := s.db.QueryRowContext(ctx, `
		INSERT INTO alternatives (exercise_id, content, is_correct, explanation, image_urls, sort_order, created_at)
		SELECT $1, $2, $3, $4, $5::jsonb, $6, now()
		WHERE NOT ($3::boolean AND (
			SELECT COUNT(*) FROM alternatives WHERE exercise_id = $1 AND is_correct
		) >= $7)
		RETURNING id, exercise_id, content, is_correct, explanation, image_urls, sort_order, created_at
	`, row.ExerciseID, row.Content, row.IsCorrect, nullString(row.Explanation), imagesRaw, row.SortOrder, maxCorrectRows)
	out, err := scanAlternative(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("insert alternative: %w: correct slot contended", ErrConstraintViolation)
		}
		return nil, mapConstraintErr("insert alternative", err)
	}
	return out, nil
}

func (s *PostgresAlternatives) Update(ctx context.Context, id int64, patch AlternativePatch) (*AlternativeRow, error) {
	var imagesRaw any
	if patch.ImageURLs != nil {
		raw, err := marshalURLs(*patch.ImageURLs)
		if err != nil {
			return nil, err
		}
		imagesRaw = raw
	}
	r := s.db.QueryRowContext(ctx, `
		UPDATE alternatives a
		SET content = COALESCE($2, content),
			is_correct = COALESCE($3, is_correct),
			explanation = COALESCE($4, explanation),
			image_urls = COALESCE($5::jsonb, image_urls)
		WHERE id = $1
		AND NOT ($3::boolean IS TRUE AND (
			SELECT COUNT(*) FROM alternatives o
			WHERE o.exercise_id = a.exercise_id AND o.is_correct AND o.id <> a.id
		) >= $6)
		RETURNING id, exercise_id, content, is_correct, explanation, image_urls, sort_order, created_at
	`, id, nullString(patch.Content), nullBool(patch.IsCorrect), nullString(patch.Explanation), imagesRaw, maxCorrectRows)
	out, err := scanAlternative(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The guard and a missing row both yield zero rows; a follow-up
			// existence probe tells them apart.
			var exists bool
			if probeErr := s.db.QueryRowContext(ctx, `
				SELECT EXISTS(SELECT 1 FROM alternatives WHERE id = $1)
			`, id).Scan(&exists); probeErr != nil {
				return nil, fmt.Errorf("probe alternative: %w", probeErr)
			}
			if exists {
				return nil, fmt.Errorf("update alternative: %w: correct slot contended", ErrConstraintViolation)
			}
			return nil, ErrNotFound
		}
		return nil, mapConstraintErr("update alternative", err)
	}
	return out, nil
}

func (s *PostgresAlternatives) SetOrder(ctx context.Context, id int64, order int) error {
	return execSetOrder(ctx, s.db, "alternatives", id, order)
}

func (s *PostgresAlternatives) Delete(ctx context.Context, id int64) error {
	return execDelete(ctx, s.db, "alternatives", id)
}

func (s *PostgresAlternatives) ListByExercise(ctx context.Context, exerciseID int64) ([]AlternativeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, exercise_id, content, is_correct, explanation, image_urls, sort_order, created_at
		FROM alternatives
		WHERE exercise_id = $1
		ORDER BY sort_order ASC, id ASC
	`, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("query alternatives: %w", err)
	}
	defer rows.Close()

	items := make([]AlternativeRow, 0)
	for rows.Next() {
		item, err := scanAlternative(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alternative: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alternatives: %w", err)
	}
	return items, nil
}

func execSetOrder(ctx context.Context, db *sql.DB, table string, id int64, order int) error {
	res, err := db.ExecContext(ctx, `UPDATE `+table+` SET sort_order = $2 WHERE id = $1`, id, order)
	if err != nil {
		return mapConstraintErr("set "+strings.TrimSuffix(table, "s")+" order", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set order affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func execDelete(ctx context.Context, db *sql.DB, table string, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalURLs(urls []string) ([]byte, error) {
	if urls == nil {
		urls = []string{}
	}
	raw, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("marshal image urls: %w", err)
	}
	return raw, nil
}

func scanModule(scanner interface{ Scan(dest ...any) error }) (*ModuleRow, error) {
	var out ModuleRow
	if err := scanner.Scan(
		&out.ID,
		&out.CompanyID,
		&out.Title,
		&out.Description,
		&out.ModuleType,
		&out.Unlocked,
		&out.SortOrder,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

func scanExercise(scanner interface{ Scan(dest ...any) error }) (*ExerciseRow, error) {
	var out ExerciseRow
	var imagesRaw []byte
	var videoURL sql.NullString
	var mediaLayout sql.NullString
	if err := scanner.Scan(
		&out.ID,
		&out.ModuleID,
		&out.Question,
		&imagesRaw,
		&videoURL,
		&mediaLayout,
		&out.Weight,
		&out.SortOrder,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(imagesRaw, &out.ImageURLs); err != nil {
		return nil, fmt.Errorf("unmarshal image urls: %w", err)
	}
	if videoURL.Valid {
		out.VideoURL = &videoURL.String
	}
	if mediaLayout.Valid {
		out.MediaLayout = &mediaLayout.String
	}
	return &out, nil
}

func scanAlternative(scanner interface{ Scan(dest ...any) error }) (*AlternativeRow, error) {
	var out AlternativeRow
	var explanation sql.NullString
	var imagesRaw []byte
	if err := scanner.Scan(
		&out.ID,
		&out.ExerciseID,
		&out.Content,
		&out.IsCorrect,
		&explanation,
		&imagesRaw,
		&out.SortOrder,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	if explanation.Valid {
		out.Explanation = &explanation.String
	}
	if err := json.Unmarshal(imagesRaw, &out.ImageURLs); err != nil {
		return nil, fmt.Errorf("unmarshal image urls: %w", err)
	}
	return &out, nil
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
