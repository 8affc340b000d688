package errx

import (
	"errors"
	"net/http"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers that describe a problem with the request rather
// than with the server. Retrying them never helps.
const (
	mysqlAccessDenied     = 1045
	mysqlDBAccessDenied   = 1044
	mysqlUnknownDatabase  = 1049
	mysqlUnknownColumn    = 1054
	mysqlSyntaxError      = 1064
	mysqlUnknownTable     = 1146
	mysqlAmbiguousColumn  = 1052
	mysqlTableAccessDeny  = 1142
	mysqlInvalidGroupFunc = 1111
	mysqlNonGroupingField = 1055
)

// IsPermanentQueryError reports whether err is a MySQL error caused by the
// statement itself (syntax, unknown objects, privileges).
func IsPermanentQueryError(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return errors.Is(err, ErrMultipleStatements) || errors.Is(err, ErrWriteStatement) || errors.Is(err, ErrEmptySQL)
	}
	switch myErr.Number {
	case mysqlSyntaxError, mysqlUnknownColumn, mysqlUnknownTable, mysqlAmbiguousColumn,
		mysqlTableAccessDeny, mysqlInvalidGroupFunc, mysqlNonGroupingField,
		mysqlAccessDenied, mysqlDBAccessDenied, mysqlUnknownDatabase:
		return true
	}
	return false
}

// WrapDatabase maps driver errors to the unified error type.
func WrapDatabase(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlAccessDenied, mysqlDBAccessDenied:
			return New(err, http.StatusUnauthorized, DatabaseErrorMessage)
		case mysqlUnknownDatabase:
			return New(err, http.StatusNotFound, DatabaseErrorMessage)
		}
	}
	if IsPermanentQueryError(err) {
		return New(err, http.StatusBadRequest, QueryErrorMessage)
	}
	return New(err, http.StatusBadGateway, DatabaseErrorMessage)
}
