// Package project はポートフォリオのプロジェクト管理のドメインロジックを提供する。
package project

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/portfolio/internal/metrics"
	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/repository"
	"github.com/hitoshi/portfolio/internal/security"
)

// TechnologyFinder は技術の一括取得インターフェース。
type TechnologyFinder interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Technology, error)
}

// ImageStore はプロジェクト画像の保存先インターフェース。
type ImageStore interface {
	Save(r io.Reader) (string, error)
	Import(ctx context.Context, rawURL string) (string, error)
	Delete(relPath string) error
}

// CreateInput はプロジェクト作成の入力値。
// TechnologyIDs の順序が割り当て順になる。
type CreateInput struct {
	Title         string
	Description   string
	TechnologyIDs []string
}

// UpdateInput はプロジェクト更新の入力値。
type UpdateInput struct {
	Title       string
	Description string
}

// Service はプロジェクト管理のサービス層。
// 変更操作はプロジェクトの所有者のみ実行できる。
type Service struct {
	repo      repository.ProjectRepository
	techs     TechnologyFinder
	images    ImageStore
	sanitizer security.DescriptionSanitizer
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.ProjectRepository,
	techs TechnologyFinder,
	images ImageStore,
	sanitizer security.DescriptionSanitizer,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		repo:      repo,
		techs:     techs,
		images:    images,
		sanitizer: sanitizer,
		metrics:   collector,
		now:       time.Now,
	}
}

// Create はプロジェクトを作成する。所有者は呼び出しユーザーになる。
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*model.Project, error) {
	p := &model.Project{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
	}
	s.prepare(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	techs, err := s.resolveTechnologies(ctx, in.TechnologyIDs)
	if err != nil {
		return nil, err
	}
	p.Technologies = techs
	p.Touch(s.now())

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("プロジェクトの作成に失敗しました: %w", err)
	}

	s.metrics.RecordProjectCreated()
	slog.Info("プロジェクトを作成しました",
		slog.String("project_id", p.ID),
		slog.String("owner_id", ownerID),
		slog.Int("technologies", len(p.Technologies)),
	)
	return p, nil
}

// Get は指定IDのプロジェクトを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewProjectNotFoundError(id)
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProjectNotFoundError(id)
	}
	return p, nil
}

// List はプロジェクト一覧を作成日時の降順で返す。
// ownerIDを指定した場合はそのユーザーのプロジェクトのみを返す。
func (s *Service) List(ctx context.Context, ownerID string) ([]*model.Project, error) {
	if ownerID != "" {
		if _, err := uuid.Parse(ownerID); err != nil {
			return []*model.Project{}, nil
		}
	}

	projects, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	return projects, nil
}

// Update はタイトルと説明を更新する。created_atは変更しない。
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*model.Project, error) {
	p, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	p.Title = in.Title
	p.Description = in.Description
	s.prepare(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Touch(s.now())

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewProjectNotFoundError(id)
		}
		return nil, fmt.Errorf("プロジェクトの更新に失敗しました: %w", err)
	}
	return p, nil
}

// SetTechnologies は技術の割り当てを指定順で置き換える。
// 重複したIDは最初の出現のみ残す。存在しないIDが含まれる場合はTECHNOLOGY_NOT_FOUNDを返す。
func (s *Service) SetTechnologies(ctx context.Context, userID, id string, technologyIDs []string) (*model.Project, error) {
	p, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	techs, err := s.resolveTechnologies(ctx, technologyIDs)
	if err != nil {
		return nil, err
	}
	p.Technologies = techs
	p.Touch(s.now())

	if err := s.repo.SetTechnologies(ctx, p.ID, p.TechnologyIDs(), p.UpdatedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewProjectNotFoundError(id)
		}
		return nil, fmt.Errorf("技術の割り当ての更新に失敗しました: %w", err)
	}
	return p, nil
}

// SetImage はアップロードされた画像をメイン画像として設定する。
func (s *Service) SetImage(ctx context.Context, userID, id string, r io.Reader) (*model.Project, error) {
	p, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	path, err := s.images.Save(r)
	if err != nil {
		return nil, err
	}
	if err := s.replaceImage(ctx, p, path); err != nil {
		return nil, err
	}

	s.metrics.RecordImageStored(metrics.ImageSourceUpload)
	return p, nil
}

// ImportImage はリモートURLの画像を取得してメイン画像として設定する。
func (s *Service) ImportImage(ctx context.Context, userID, id, rawURL string) (*model.Project, error) {
	p, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if rawURL == "" {
		return nil, model.NewValidationError("url", "this field is required")
	}

	path, err := s.images.Import(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if err := s.replaceImage(ctx, p, path); err != nil {
		return nil, err
	}

	s.metrics.RecordImageStored(metrics.ImageSourceImport)
	return p, nil
}

// ClearImage はメイン画像の設定を解除し、画像ファイルを削除する。
func (s *Service) ClearImage(ctx context.Context, userID, id string) (*model.Project, error) {
	p, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !p.HasImage() {
		return p, nil
	}
	if err := s.replaceImage(ctx, p, ""); err != nil {
		return nil, err
	}
	return p, nil
}

// replaceImage はメイン画像のパスを更新し、以前の画像ファイルを削除する。
// DB更新に失敗した場合は新しい画像ファイルを削除する。
func (s *Service) replaceImage(ctx context.Context, p *model.Project, path string) error {
	oldPath := p.MainImage
	p.MainImage = path
	p.Touch(s.now())

	if err := s.repo.UpdateImage(ctx, p.ID, p.MainImage, p.UpdatedAt); err != nil {
		if path != "" {
			s.removeImage(path)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewProjectNotFoundError(p.ID)
		}
		return fmt.Errorf("メイン画像の更新に失敗しました: %w", err)
	}
	if oldPath != "" {
		s.removeImage(oldPath)
	}
	return nil
}

// Delete はプロジェクトを削除する。メイン画像のファイルも削除する。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	p, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}
	if p.HasImage() {
		s.removeImage(p.MainImage)
	}

	slog.Info("プロジェクトを削除しました",
		slog.String("project_id", p.ID),
		slog.String("owner_id", userID),
	)
	return nil
}

// Excerpt は一覧表示用に説明文のテキスト抜粋を返す。
func (s *Service) Excerpt(p *model.Project) string {
	return s.sanitizer.Excerpt(p.Description, security.DefaultExcerptLength)
}

// prepare は入力値を正規化し、説明文をサニタイズする。
func (s *Service) prepare(p *model.Project) {
	p.Normalize()
	p.Description = s.sanitizer.Sanitize(p.Description)
}

// getOwned はプロジェクトを取得し、所有者であることを確認する。
func (s *Service) getOwned(ctx context.Context, userID, id string) (*model.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != userID {
		return nil, model.NewForbiddenError()
	}
	return p, nil
}

// resolveTechnologies は技術IDを指定順の技術一覧に変換する。
// 重複したIDは最初の出現のみ残す。
func (s *Service) resolveTechnologies(ctx context.Context, ids []string) ([]model.Technology, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return nil, model.NewTechnologyNotFoundError(raw)
		}
		// DBから返る正規形（小文字・ハイフン区切り）で照合する
		id := parsed.String()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return []model.Technology{}, nil
	}

	found, err := s.techs.FindByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("技術の取得に失敗しました: %w", err)
	}

	techs := make([]model.Technology, 0, len(unique))
	for _, id := range unique {
		tech, ok := found[id]
		if !ok {
			return nil, model.NewTechnologyNotFoundError(id)
		}
		techs = append(techs, *tech)
	}
	return techs, nil
}

// removeImage は画像ファイルを削除する。失敗してもログのみ出力し、定期ジョブでの回収に任せる。
func (s *Service) removeImage(path string) {
	if err := s.images.Delete(path); err != nil {
		slog.Warn("画像ファイルの削除に失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
