package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"Mikrotik-Dashboard/errs"
	"Mikrotik-Dashboard/models"

	"github.com/google/uuid"
)

const connectionColumns = `id, name, address, port, username, password, is_default, created_at, last_connected_at`

// ConnectionRepository is the connection registry: plain CRUD over the
// router_connections table with the single-default invariant.
type ConnectionRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db, now: time.Now}
}

// Create stores a new record. The first record ever stored becomes the
// default, as does any record created with IsDefault set.
func (r *ConnectionRepository) Create(ctx context.Context, req *models.ConnectionCreateRequest) (*models.ConnectionRecord, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	port := models.DefaultRouterPort
	if req.Port != nil {
		port = *req.Port
	}

	rec := &models.ConnectionRecord{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Address:   strings.TrimSpace(req.Address),
		Port:      port,
		Username:  req.Username,
		Password:  req.Password,
		CreatedAt: r.now().UTC().Truncate(time.Second),
	}

	err := r.tx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM router_connections`).Scan(&count); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO router_connections (`+connectionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Name, rec.Address, rec.Port, rec.Username, rec.Password, false, rec.CreatedAt, nil,
		); err != nil {
			return err
		}

		if req.IsDefault || count == 0 {
			return setDefaultTx(ctx, tx, rec.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}

	return r.Get(ctx, rec.ID)
}

func (r *ConnectionRepository) List(ctx context.Context) ([]*models.ConnectionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM router_connections ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	records := make([]*models.ConnectionRecord, 0)
	for rows.Next() {
		rec, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *ConnectionRepository) Get(ctx context.Context, id string) (*models.ConnectionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM router_connections WHERE id = ?`, id)
	rec, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.Newf(errs.NotFound, "connection %s not found", id)
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return rec, nil
}

func (r *ConnectionRepository) GetDefault(ctx context.Context) (*models.ConnectionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM router_connections WHERE is_default = ?`, true)
	rec, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.New(errs.NotFound, "no default connection")
		}
		return nil, fmt.Errorf("get default connection: %w", err)
	}
	return rec, nil
}

// Update applies the non-nil fields of req.
func (r *ConnectionRepository) Update(ctx context.Context, id string, req *models.ConnectionUpdateRequest) (*models.ConnectionRecord, error) {
	var updates []string
	var args []any

	if req.Name != nil {
		updates = append(updates, "name = ?")
		args = append(args, strings.TrimSpace(*req.Name))
	}
	if req.Address != nil {
		updates = append(updates, "address = ?")
		args = append(args, strings.TrimSpace(*req.Address))
	}
	if req.Port != nil {
		if *req.Port < 1 || *req.Port > 65535 {
			return nil, errs.New(errs.Validation, "port must be between 1 and 65535")
		}
		updates = append(updates, "port = ?")
		args = append(args, *req.Port)
	}
	if req.Username != nil {
		updates = append(updates, "username = ?")
		args = append(args, *req.Username)
	}
	if req.Password != nil {
		updates = append(updates, "password = ?")
		args = append(args, *req.Password)
	}
	for i, arg := range args {
		if s, ok := arg.(string); ok && s == "" {
			return nil, errs.Newf(errs.Validation, "%s must not be empty", strings.TrimSuffix(updates[i], " = ?"))
		}
	}

	err := r.tx(ctx, func(tx *sql.Tx) error {
		if err := existsTx(ctx, tx, id); err != nil {
			return err
		}
		if len(updates) > 0 {
			query := fmt.Sprintf("UPDATE router_connections SET %s WHERE id = ?", strings.Join(updates, ", "))
			if _, err := tx.ExecContext(ctx, query, append(args, id)...); err != nil {
				return err
			}
		}
		if req.IsDefault != nil && *req.IsDefault {
			return setDefaultTx(ctx, tx, id)
		}
		if req.IsDefault != nil && !*req.IsDefault {
			_, err := tx.ExecContext(ctx, `UPDATE router_connections SET is_default = ? WHERE id = ?`, false, id)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, wrapNotFound("update connection", err)
	}

	return r.Get(ctx, id)
}

// SetDefault makes id the only default record.
func (r *ConnectionRepository) SetDefault(ctx context.Context, id string) (*models.ConnectionRecord, error) {
	err := r.tx(ctx, func(tx *sql.Tx) error {
		if err := existsTx(ctx, tx, id); err != nil {
			return err
		}
		return setDefaultTx(ctx, tx, id)
	})
	if err != nil {
		return nil, wrapNotFound("set default connection", err)
	}
	return r.Get(ctx, id)
}

// Delete removes the record. If it was the default, the oldest remaining
// record is promoted.
func (r *ConnectionRepository) Delete(ctx context.Context, id string) error {
	err := r.tx(ctx, func(tx *sql.Tx) error {
		var wasDefault bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_default FROM router_connections WHERE id = ?`, id).Scan(&wasDefault)
		if errors.Is(err, sql.ErrNoRows) {
			return errs.Newf(errs.NotFound, "connection %s not found", id)
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM router_connections WHERE id = ?`, id); err != nil {
			return err
		}

		if !wasDefault {
			return nil
		}
		var next string
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM router_connections ORDER BY created_at ASC, name ASC LIMIT 1`).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		return setDefaultTx(ctx, tx, next)
	})
	return wrapNotFound("delete connection", err)
}

// TouchLastConnected records a successful connect.
func (r *ConnectionRepository) TouchLastConnected(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE router_connections SET last_connected_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("touch last connected: %w", err)
	}
	return nil
}

// setDefaultTx flips every flag in one statement so no reader can observe
// zero or two defaults.
func setDefaultTx(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE router_connections SET is_default = CASE WHEN id = ? THEN TRUE ELSE FALSE END`, id)
	return err
}

func existsTx(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM router_connections WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Newf(errs.NotFound, "connection %s not found", id)
	}
	return err
}

func (r *ConnectionRepository) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConnection(s scanner) (*models.ConnectionRecord, error) {
	rec := &models.ConnectionRecord{}
	var last sql.NullTime
	if err := s.Scan(
		&rec.ID, &rec.Name, &rec.Address, &rec.Port, &rec.Username, &rec.Password,
		&rec.IsDefault, &rec.CreatedAt, &last,
	); err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time
		rec.LastConnectedAt = &t
	}
	return rec, nil
}

func validateCreate(req *models.ConnectionCreateRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return errs.New(errs.Validation, "name is required")
	case strings.TrimSpace(req.Address) == "":
		return errs.New(errs.Validation, "address is required")
	case req.Username == "":
		return errs.New(errs.Validation, "username is required")
	case req.Password == "":
		return errs.New(errs.Validation, "password is required")
	case req.Port != nil && (*req.Port < 1 || *req.Port > 65535):
		return errs.New(errs.Validation, "port must be between 1 and 65535")
	}
	return nil
}

func wrapNotFound(op string, err error) error {
	if err == nil {
		return nil
	}
	if errs.KindOf(err) != errs.Unknown {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
