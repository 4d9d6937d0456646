package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict: la versión guardada no coincide con la esperada (CAS perdido).
	ErrConflict = errors.New("version conflict")
	// ErrDuplicate: un índice único rechazó el insert.
	ErrDuplicate = errors.New("duplicate")
)

// SQLSTATE que mapeamos a errores del paquete.
const (
	pgUniqueViolation = "23505"
	pgInvalidText     = "22P02" // p.ej. un event_id que no es UUID
)

type rowScanner interface {
	Scan(dest ...any) error
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// missing: la fila no está o la clave no tiene forma de existir.
func missing(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || isPgCode(err, pgInvalidText)
}

// casMiss distingue, después de un UPDATE ... WHERE version = $n sin filas,
// entre una fila que no existe y una versión vieja.
func casMiss(ctx context.Context, db *sql.DB, table, keyCol, key string) error {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE `+keyCol+` = $1`, key).Scan(&one)
	if missing(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}
