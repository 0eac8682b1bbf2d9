package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/portfolio/internal/model"
	"github.com/lib/pq"
)

// PostgresTechnologyRepo はPostgreSQLを使用した技術タグリポジトリ。
type PostgresTechnologyRepo struct {
	db *sql.DB
}

// NewPostgresTechnologyRepo はPostgresTechnologyRepoを生成する。
func NewPostgresTechnologyRepo(db *sql.DB) *PostgresTechnologyRepo {
	return &PostgresTechnologyRepo{db: db}
}

// FindByID は指定IDの技術を取得する。見つからない場合はnilを返す。
func (r *PostgresTechnologyRepo) FindByID(ctx context.Context, id string) (*model.Technology, error) {
	tech := &model.Technology{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM technologies WHERE id = $1`,
		id,
	).Scan(&tech.ID, &tech.Name, &tech.Description)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("技術の取得に失敗しました: %w", err)
	}
	return tech, nil
}

// FindByIDs は指定IDの技術をまとめて取得する。存在しないIDは結果に含まれない。
func (r *PostgresTechnologyRepo) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Technology, error) {
	techs := make(map[string]*model.Technology, len(ids))
	if len(ids) == 0 {
		return techs, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description FROM technologies WHERE id = ANY($1::uuid[])`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("技術の一括取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		tech := &model.Technology{}
		if err := rows.Scan(&tech.ID, &tech.Name, &tech.Description); err != nil {
			return nil, fmt.Errorf("技術行の読み取りに失敗しました: %w", err)
		}
		techs[tech.ID] = tech
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("技術一覧の走査に失敗しました: %w", err)
	}
	return techs, nil
}

// List は全技術を名前順で返す。
func (r *PostgresTechnologyRepo) List(ctx context.Context) ([]*model.Technology, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description FROM technologies ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("技術一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	techs := []*model.Technology{}
	for rows.Next() {
		tech := &model.Technology{}
		if err := rows.Scan(&tech.ID, &tech.Name, &tech.Description); err != nil {
			return nil, fmt.Errorf("技術行の読み取りに失敗しました: %w", err)
		}
		techs = append(techs, tech)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("技術一覧の走査に失敗しました: %w", err)
	}
	return techs, nil
}

// Create は技術を作成する。名前が重複する場合はErrUniqueViolationを返す。
func (r *PostgresTechnologyRepo) Create(ctx context.Context, tech *model.Technology) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO technologies (id, name, description) VALUES ($1, $2, $3)`,
		tech.ID, tech.Name, tech.Description,
	)
	if err != nil {
		return wrapPQError(err, "技術の作成に失敗しました")
	}
	return nil
}

// Update は技術を更新する。名前が重複する場合はErrUniqueViolation、対象がない場合はErrNotFoundを返す。
func (r *PostgresTechnologyRepo) Update(ctx context.Context, tech *model.Technology) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE technologies SET name = $2, description = $3 WHERE id = $1`,
		tech.ID, tech.Name, tech.Description,
	)
	if err != nil {
		return wrapPQError(err, "技術の更新に失敗しました")
	}
	return requireAffected(result)
}

// Delete は指定IDの技術を削除する。対象が存在しなかった場合はfalseを返す。
func (r *PostgresTechnologyRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM technologies WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("技術の削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ TechnologyRepository = (*PostgresTechnologyRepo)(nil)
