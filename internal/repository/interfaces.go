// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hitoshi/portfolio/internal/model"
)

// ErrUniqueViolation は一意制約違反を表す。
// サービス層で重複エラー（ユーザー名・技術名）に変換する。
var ErrUniqueViolation = errors.New("unique constraint violation")

// ErrNotFound は更新対象の行が存在しなかったことを表す。
// 取得系は従来どおりnil,nilを返し、更新系のみこのエラーを返す。
var ErrNotFound = errors.New("row not found")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複する場合はErrUniqueViolationを返す。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するprojects、sessionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// TechnologyRepository は技術タグの永続化インターフェース。
type TechnologyRepository interface {
	// FindByID は指定IDの技術を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Technology, error)

	// FindByIDs は指定IDの技術をまとめて取得する。存在しないIDは結果に含まれない。
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Technology, error)

	// List は全技術を名前順で返す。
	List(ctx context.Context) ([]*model.Technology, error)

	// Create は技術を作成する。名前が重複する場合はErrUniqueViolationを返す。
	Create(ctx context.Context, tech *model.Technology) error

	// Update は技術を更新する。名前が重複する場合はErrUniqueViolation、対象がない場合はErrNotFoundを返す。
	Update(ctx context.Context, tech *model.Technology) error

	// Delete は指定IDの技術を削除する。project_technologiesの行はCASCADE削除される。
	// 対象が存在しなかった場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// ProjectRepository はプロジェクトの永続化インターフェース。
// 取得系メソッドは割り当て順の技術一覧を含めて返す。
type ProjectRepository interface {
	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// List はプロジェクト一覧を作成日時の降順で返す。
	// ownerIDが空文字列の場合は全ユーザーのプロジェクトを返す。
	List(ctx context.Context, ownerID string) ([]*model.Project, error)

	// Create はプロジェクトと技術の割り当てを同一トランザクションで作成する。
	Create(ctx context.Context, project *model.Project) error

	// Update はタイトル・説明・updated_atを更新する。created_atは変更しない。
	// 対象がない場合はErrNotFoundを返す。
	Update(ctx context.Context, project *model.Project) error

	// SetTechnologies は技術の割り当てを技術IDの順序どおりに置き換える。
	// updated_atの更新と同一トランザクションで実行する。
	SetTechnologies(ctx context.Context, projectID string, technologyIDs []string, updatedAt time.Time) error

	// UpdateImage はメイン画像のパスを更新する。空文字列は画像なしを表す。
	// 対象がない場合はErrNotFoundを返す。
	UpdateImage(ctx context.Context, projectID, imagePath string, updatedAt time.Time) error

	// Delete は指定IDのプロジェクトを削除する。
	Delete(ctx context.Context, id string) error

	// ListImagePaths は参照されている全メイン画像パスを返す。
	ListImagePaths(ctx context.Context) ([]string, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
