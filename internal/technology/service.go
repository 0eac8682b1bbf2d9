// Package technology は技術タグ管理のドメインロジックを提供する。
package technology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hitoshi/portfolio/internal/metrics"
	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/repository"
)

// Input は技術の作成・更新の入力値。
type Input struct {
	Name        string
	Description string
}

// Service は技術タグ管理のサービス層。
// 技術は特定ユーザーに属さず、認証済みユーザーであれば誰でも作成・更新・削除できる。
type Service struct {
	repo    repository.TechnologyRepository
	metrics metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.TechnologyRepository, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		repo:    repo,
		metrics: collector,
	}
}

// Create は技術を作成する。
func (s *Service) Create(ctx context.Context, in Input) (*model.Technology, error) {
	tech := &model.Technology{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
	}
	tech.Normalize()
	if err := tech.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, tech); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, model.NewDuplicateTechnologyError(tech.Name)
		}
		return nil, fmt.Errorf("技術の作成に失敗しました: %w", err)
	}

	s.metrics.RecordTechnologyCreated()
	slog.Info("技術を作成しました",
		slog.String("technology_id", tech.ID),
		slog.String("name", tech.Name),
	)
	return tech, nil
}

// Get は指定IDの技術を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Technology, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewTechnologyNotFoundError(id)
	}

	tech, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("技術の取得に失敗しました: %w", err)
	}
	if tech == nil {
		return nil, model.NewTechnologyNotFoundError(id)
	}
	return tech, nil
}

// List は全技術を名前順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Technology, error) {
	techs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("技術一覧の取得に失敗しました: %w", err)
	}
	return techs, nil
}

// Update は技術の名前と説明を更新する。
func (s *Service) Update(ctx context.Context, id string, in Input) (*model.Technology, error) {
	tech, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	tech.Name = in.Name
	tech.Description = in.Description
	tech.Normalize()
	if err := tech.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, tech); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, model.NewDuplicateTechnologyError(tech.Name)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewTechnologyNotFoundError(id)
		}
		return nil, fmt.Errorf("技術の更新に失敗しました: %w", err)
	}
	return tech, nil
}

// Delete は技術を削除する。
// プロジェクトとの割り当てはCASCADE削除され、プロジェクト自体は残る。
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.NewTechnologyNotFoundError(id)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("技術の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewTechnologyNotFoundError(id)
	}

	slog.Info("技術を削除しました", slog.String("technology_id", id))
	return nil
}
