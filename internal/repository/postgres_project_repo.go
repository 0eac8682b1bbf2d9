package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/portfolio/internal/model"
	"github.com/lib/pq"
)

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
// 技術の割り当てはproject_technologiesのpositionで順序を保持する。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

const projectColumns = `id, owner_id, title, description, main_image, created_at, updated_at`

// execer は*sql.DBと*sql.Txに共通するExecContextを抽象化する。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanProject(row interface{ Scan(...any) error }) (*model.Project, error) {
	p := &model.Project{}
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.MainImage, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Technologies = []model.Technology{}
	return p, nil
}

// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}

	if err := r.attachTechnologies(ctx, []*model.Project{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// List はプロジェクト一覧を作成日時の降順で返す。
// ownerIDが空文字列の場合は全ユーザーのプロジェクトを返す。
func (r *PostgresProjectRepo) List(ctx context.Context, ownerID string) ([]*model.Project, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if ownerID == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`,
		)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+projectColumns+` FROM projects WHERE owner_id = $1 ORDER BY created_at DESC`,
			ownerID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	projects := []*model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("プロジェクト行の読み取りに失敗しました: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の走査に失敗しました: %w", err)
	}

	if err := r.attachTechnologies(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// attachTechnologies はプロジェクトに割り当て順の技術一覧を設定する。
func (r *PostgresProjectRepo) attachTechnologies(ctx context.Context, projects []*model.Project) error {
	if len(projects) == 0 {
		return nil
	}

	byID := make(map[string]*model.Project, len(projects))
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT pt.project_id, t.id, t.name, t.description
		 FROM project_technologies pt
		 JOIN technologies t ON t.id = pt.technology_id
		 WHERE pt.project_id = ANY($1::uuid[])
		 ORDER BY pt.project_id, pt.position ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("プロジェクトの技術一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var projectID string
		var tech model.Technology
		if err := rows.Scan(&projectID, &tech.ID, &tech.Name, &tech.Description); err != nil {
			return fmt.Errorf("技術行の読み取りに失敗しました: %w", err)
		}
		if p, ok := byID[projectID]; ok {
			p.Technologies = append(p.Technologies, tech)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("技術一覧の走査に失敗しました: %w", err)
	}
	return nil
}

// Create はプロジェクトと技術の割り当てを同一トランザクションで作成する。
func (r *PostgresProjectRepo) Create(ctx context.Context, p *model.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, owner_id, title, description, main_image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.OwnerID, p.Title, p.Description, p.MainImage, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("プロジェクトの作成に失敗しました: %w", err)
	}

	if err := insertProjectTechnologies(ctx, tx, p.ID, p.TechnologyIDs()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// Update はタイトル・説明・updated_atを更新する。created_atは変更しない。
func (r *PostgresProjectRepo) Update(ctx context.Context, p *model.Project) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET title = $2, description = $3, updated_at = $4 WHERE id = $1`,
		p.ID, p.Title, p.Description, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("プロジェクトの更新に失敗しました: %w", err)
	}
	return requireAffected(result)
}

// SetTechnologies は技術の割り当てを技術IDの順序どおりに置き換える。
func (r *PostgresProjectRepo) SetTechnologies(ctx context.Context, projectID string, technologyIDs []string, updatedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM project_technologies WHERE project_id = $1`,
		projectID,
	)
	if err != nil {
		return fmt.Errorf("既存の技術割り当ての削除に失敗しました: %w", err)
	}

	if err := insertProjectTechnologies(ctx, tx, projectID, technologyIDs); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE projects SET updated_at = $2 WHERE id = $1`,
		projectID, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("プロジェクトの更新日時の更新に失敗しました: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

func insertProjectTechnologies(ctx context.Context, ex execer, projectID string, technologyIDs []string) error {
	for position, techID := range technologyIDs {
		_, err := ex.ExecContext(ctx,
			`INSERT INTO project_technologies (project_id, technology_id, position) VALUES ($1, $2, $3)`,
			projectID, techID, position,
		)
		if err != nil {
			return fmt.Errorf("技術の割り当てに失敗しました: %w", err)
		}
	}
	return nil
}

// UpdateImage はメイン画像のパスを更新する。空文字列は画像なしを表す。
func (r *PostgresProjectRepo) UpdateImage(ctx context.Context, projectID, imagePath string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET main_image = $2, updated_at = $3 WHERE id = $1`,
		projectID, imagePath, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("メイン画像の更新に失敗しました: %w", err)
	}
	return requireAffected(result)
}

// Delete は指定IDのプロジェクトを削除する。
func (r *PostgresProjectRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM projects WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}
	return nil
}

// ListImagePaths は参照されている全メイン画像パスを返す。
func (r *PostgresProjectRepo) ListImagePaths(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT main_image FROM projects WHERE main_image <> ''`,
	)
	if err != nil {
		return nil, fmt.Errorf("画像パス一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("画像パスの読み取りに失敗しました: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("画像パス一覧の走査に失敗しました: %w", err)
	}
	return paths, nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
