package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

const pgUniqueViolation = "23505"

// Классы SQLSTATE, означающие проблемы соединения или ресурсов сервера.
var unavailableClasses = map[string]struct{}{
	"08": {}, // connection exception
	"53": {}, // insufficient resources
	"57": {}, // operator intervention (admin shutdown, cannot connect now)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

func isUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		_, ok := unavailableClasses[pgErr.Code[:2]]
		return ok
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// classify дополняет ошибку драйвера доменной ErrStoreUnavailable, если база недоступна.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) && !errors.Is(err, domain.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}
