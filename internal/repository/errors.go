package repository

import (
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Fault names a class of datastore failure
type Fault string

const (
	FaultNone           Fault = ""
	FaultDuplicateKey   Fault = "duplicate_key"
	FaultForeignKey     Fault = "foreign_key"
	FaultDataTooLong    Fault = "data_too_long"
	FaultInvalidDate    Fault = "invalid_date"
	FaultInvalidDecimal Fault = "invalid_decimal"
	FaultConnection     Fault = "connection"
	FaultLockTimeout    Fault = "lock_timeout"
	FaultUnknown        Fault = "unknown"
)

// IsNotFound reports whether err means the query matched no row
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKey reports whether err is a unique constraint violation
func IsDuplicateKey(err error) bool {
	return ClassifyFault(err) == FaultDuplicateKey
}

// ClassifyFault maps a driver error onto a Fault. Postgres and MySQL errors are
// matched by code; anything else falls back to message inspection.
func ClassifyFault(err error) Fault {
	if err == nil {
		return FaultNone
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPostgres(pgErr.Code)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return classifyMySQL(myErr.Number)
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return FaultConnection
	}

	return classifyMessage(err.Error())
}

func classifyPostgres(code string) Fault {
	switch {
	case code == "23505":
		return FaultDuplicateKey
	case code == "23503":
		return FaultForeignKey
	case code == "22001":
		return FaultDataTooLong
	case code == "22007" || code == "22008":
		return FaultInvalidDate
	case code == "22003" || code == "22P02":
		return FaultInvalidDecimal
	case code == "55P03" || code == "40P01" || code == "57014":
		return FaultLockTimeout
	case strings.HasPrefix(code, "08"):
		return FaultConnection
	}
	return FaultUnknown
}

func classifyMySQL(number uint16) Fault {
	switch number {
	case 1062:
		return FaultDuplicateKey
	case 1451, 1452:
		return FaultForeignKey
	case 1406:
		return FaultDataTooLong
	case 1292:
		return FaultInvalidDate
	case 1366, 1264:
		return FaultInvalidDecimal
	case 1205, 1213:
		return FaultLockTimeout
	case 2006, 2013:
		return FaultConnection
	}
	return FaultUnknown
}

func classifyMessage(msg string) Fault {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint"):
		return FaultDuplicateKey
	case strings.Contains(msg, "foreign key"):
		return FaultForeignKey
	case strings.Contains(msg, "too long"):
		return FaultDataTooLong
	case strings.Contains(msg, "incorrect date") || strings.Contains(msg, "invalid date"):
		return FaultInvalidDate
	case strings.Contains(msg, "decimal"):
		return FaultInvalidDecimal
	case strings.Contains(msg, "gone away") || strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "bad connection") || strings.Contains(msg, "broken pipe"):
		return FaultConnection
	case strings.Contains(msg, "lock wait timeout") || strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "deadlock"):
		return FaultLockTimeout
	}
	return FaultUnknown
}
