package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// pqUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pqUniqueViolation = "23505"

// wrapPQError はPostgreSQLエラーをリポジトリのエラーに変換する。
// 一意制約違反はErrUniqueViolationとしてラップし、それ以外はmsgを付けてラップする。
func wrapPQError(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%s: %w (%s)", msg, ErrUniqueViolation, pqErr.Constraint)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// requireAffected は更新件数が0の場合にErrNotFoundを返す。
// 取得から更新までの間に行が削除された場合に発生する。
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
