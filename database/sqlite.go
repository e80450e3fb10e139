package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/mbolis/quick-forms/model"
)

type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the SQLite3 database at path and brings its
// schema up to date.
func OpenSQLite(path string) (Store, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_foreign_keys=on&_busy_timeout=5000"
	} else {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite3")
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	err = migrateDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func newID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "generate id")
	}
	return id.String(), nil
}

func isUniqueViolation(err error) bool {
	var sqlErr sqlite3.Error
	return errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyViolation(err error) bool {
	var sqlErr sqlite3.Error
	return errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func (s *sqliteStore) CreateUser(ctx context.Context, u *model.User) error {
	id, err := newID()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user (id, first_name, last_name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return errors.Wrap(err, "insert user")
	}

	u.ID = id
	return nil
}

func (s *sqliteStore) findUser(ctx context.Context, where string, arg any) (u model.User, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, password_hash, created_at
		FROM user
		WHERE `+where+` = ?`,
		arg,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	} else if err != nil {
		err = errors.Wrap(err, "select user")
	}
	return
}

func (s *sqliteStore) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.findUser(ctx, "email", email)
}

func (s *sqliteStore) FindUserByID(ctx context.Context, id string) (model.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *sqliteStore) CreateForm(ctx context.Context, f *model.Form) error {
	id, err := newID()
	if err != nil {
		return err
	}

	questionsJson, err := json.Marshal(f.Questions)
	if err != nil {
		return errors.Wrap(err, "encode questions")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO form (id, title, questions, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, f.Title, string(questionsJson), f.CreatedBy, f.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "insert form")
	}

	f.ID = id
	return nil
}

const selectForm = `
	SELECT id, title, questions, created_by, created_at
	FROM form`

type scanner interface {
	Scan(dest ...any) error
}

func scanForm(row scanner) (f model.Form, err error) {
	var questions string
	err = row.Scan(&f.ID, &f.Title, &questions, &f.CreatedBy, &f.CreatedAt)
	if err != nil {
		return
	}
	err = json.Unmarshal([]byte(questions), &f.Questions)
	if err != nil {
		err = errors.Wrap(err, "decode questions")
	}
	return
}

func (s *sqliteStore) ListFormsByOwner(ctx context.Context, owner string) ([]model.Form, error) {
	rows, err := s.db.QueryContext(ctx, selectForm+`
		WHERE created_by = ?
		ORDER BY seq`,
		owner,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select forms")
	}
	defer rows.Close()

	forms := []model.Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan form")
		}
		forms = append(forms, f)
	}
	return forms, errors.Wrap(rows.Err(), "iterate forms")
}

func (s *sqliteStore) FindForm(ctx context.Context, id string) (model.Form, error) {
	f, err := scanForm(s.db.QueryRowContext(ctx, selectForm+`
		WHERE id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return f, ErrNotFound
	}
	return f, errors.Wrap(err, "select form")
}

func (s *sqliteStore) FindOwnedForm(ctx context.Context, id, owner string) (model.Form, error) {
	f, err := scanForm(s.db.QueryRowContext(ctx, selectForm+`
		WHERE id = ?
			AND created_by = ?`,
		id, owner,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return f, ErrNotFound
	}
	return f, errors.Wrap(err, "select owned form")
}

func (s *sqliteStore) DeleteOwnedForm(ctx context.Context, id, owner string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM form
		WHERE id = ?
			AND created_by = ?`,
		id, owner,
	)
	if err != nil {
		return errors.Wrap(err, "delete form")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete form.verify")
	}
	if n < 1 {
		return ErrNotFound
	}

	// foreign key cascade already removed them; this covers databases
	// opened without foreign key enforcement
	_, err = tx.ExecContext(ctx, `
		DELETE FROM form_response
		WHERE form_id = ?`,
		id,
	)
	if err != nil {
		return errors.Wrap(err, "delete form.responses")
	}

	return errors.Wrap(tx.Commit(), "delete form.commit")
}

func (s *sqliteStore) CreateResponse(ctx context.Context, r *model.FormResponse) error {
	id, err := newID()
	if err != nil {
		return err
	}

	answersJson, err := json.Marshal(r.Answers)
	if err != nil {
		return errors.Wrap(err, "encode answers")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO form_response (id, form_id, answers, created_at)
		VALUES (?, ?, ?, ?)`,
		id, r.FormID, string(answersJson), r.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert response")
	}

	r.ID = id
	return nil
}

func (s *sqliteStore) ListResponses(ctx context.Context, formID string) ([]model.FormResponse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form_id, answers, created_at
		FROM form_response
		WHERE form_id = ?
		ORDER BY created_at DESC, seq DESC`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "select responses")
	}
	defer rows.Close()

	responses := []model.FormResponse{}
	for rows.Next() {
		r := model.FormResponse{}
		var answers string
		err = rows.Scan(&r.ID, &r.FormID, &answers, &r.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scan response")
		}
		err = json.Unmarshal([]byte(answers), &r.Answers)
		if err != nil {
			return nil, errors.Wrap(err, "decode answers")
		}
		responses = append(responses, r)
	}
	return responses, errors.Wrap(rows.Err(), "iterate responses")
}
