// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/repository"
)

// ProjectLister は所有プロジェクトの一覧取得インターフェース。
type ProjectLister interface {
	List(ctx context.Context, ownerID string) ([]*model.Project, error)
}

// ImageDeleter は画像ファイルの削除インターフェース。
type ImageDeleter interface {
	Delete(relPath string) error
}

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	projects     ProjectLister
	imageDeleter ImageDeleter
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	projects ProjectLister,
	imageDeleter ImageDeleter,
) *Service {
	return &Service{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		projects:     projects,
		imageDeleter: imageDeleter,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → user（+ CASCADE: projects, project_technologies）→ 画像ファイル
// technologies は他ユーザーと共有するため残す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. CASCADE削除される前に画像パスを控える
	var imagePaths []string
	if s.projects != nil {
		projects, err := s.projects.List(ctx, userID)
		if err != nil {
			return fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
		}
		for _, p := range projects {
			if p.HasImage() {
				imagePaths = append(imagePaths, p.MainImage)
			}
		}
	}

	// 2. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 3. ユーザーを削除（projects, project_technologiesはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	// 4. 画像ファイルを削除。失敗しても退会は完了扱いとし、残ったファイルは定期ジョブで回収する
	if s.imageDeleter != nil {
		for _, path := range imagePaths {
			if err := s.imageDeleter.Delete(path); err != nil {
				slog.Warn("画像ファイルの削除に失敗しました",
					slog.String("user_id", userID),
					slog.String("path", path),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
		slog.Int("images_removed", len(imagePaths)),
	)

	return nil
}
