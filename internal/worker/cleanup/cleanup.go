// Package cleanup は期限切れセッションと未参照画像の定期削除ジョブを提供する。
// どちらのジョブも冪等で、削除対象がない場合でもエラーにならない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/portfolio/internal/media"
	"github.com/hitoshi/portfolio/internal/metrics"
)

// DefaultOrphanMinAge は未参照画像を削除対象とするまでの猶予期間。
// アップロード直後でDBへの反映前のファイルを削除しないために設ける。
const DefaultOrphanMinAge = time.Hour

// Job は定期実行されるジョブのインターフェース。
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// SessionPurger は期限切れセッションの一括削除インターフェース。
type SessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// ImagePathLister はDBから参照されている画像パスの一覧取得インターフェース。
type ImagePathLister interface {
	ListImagePaths(ctx context.Context) ([]string, error)
}

// ImageFiles はストレージ上の画像ファイル操作のインターフェース。
type ImageFiles interface {
	ListFiles() ([]media.FileInfo, error)
	Delete(relPath string) error
}

// SessionCleanupJob は期限切れセッションの削除ジョブ。
type SessionCleanupJob struct {
	sessions SessionPurger
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
}

// NewSessionCleanupJob は新しいSessionCleanupJobを生成する。
func NewSessionCleanupJob(sessions SessionPurger, logger *slog.Logger, collector metrics.MetricsCollector) *SessionCleanupJob {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &SessionCleanupJob{
		sessions: sessions,
		logger:   logger,
		metrics:  collector,
	}
}

// Name はログ出力用のジョブ名を返す。
func (j *SessionCleanupJob) Name() string { return "session_cleanup" }

// Run は有効期限を過ぎたセッションを削除する。
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	j.metrics.RecordSessionsCleaned(deletedCount)

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// OrphanImageJob はどのプロジェクトからも参照されていない画像ファイルの削除ジョブ。
// 退会やメイン画像の差し替えで削除に失敗したファイルを回収する。
type OrphanImageJob struct {
	projects ImagePathLister
	files    ImageFiles
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
	now      func() time.Time
	MinAge   time.Duration // 最終更新からこの期間が経過したファイルのみ削除する（デフォルト: 1時間）
}

// NewOrphanImageJob は新しいOrphanImageJobを生成する。
func NewOrphanImageJob(projects ImagePathLister, files ImageFiles, logger *slog.Logger, collector metrics.MetricsCollector) *OrphanImageJob {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &OrphanImageJob{
		projects: projects,
		files:    files,
		logger:   logger,
		metrics:  collector,
		now:      time.Now,
		MinAge:   DefaultOrphanMinAge,
	}
}

// Name はログ出力用のジョブ名を返す。
func (j *OrphanImageJob) Name() string { return "orphan_image_cleanup" }

// Run は未参照の画像ファイルを削除する。
// 個別ファイルの削除失敗はログに記録して処理を継続する。
func (j *OrphanImageJob) Run(ctx context.Context) error {
	start := time.Now()

	paths, err := j.projects.ListImagePaths(ctx)
	if err != nil {
		j.logger.Error("参照中の画像パスの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("画像パスの取得に失敗: %w", err)
	}
	referenced := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		referenced[p] = struct{}{}
	}

	files, err := j.files.ListFiles()
	if err != nil {
		j.logger.Error("画像ファイル一覧の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("画像ファイル一覧の取得に失敗: %w", err)
	}

	threshold := j.now().Add(-j.MinAge)
	removed := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := referenced[f.Path]; ok {
			continue
		}
		if f.ModTime.After(threshold) {
			continue
		}
		if err := j.files.Delete(f.Path); err != nil {
			j.logger.Warn("未参照画像の削除に失敗しました",
				slog.String("path", f.Path),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	j.metrics.RecordOrphanImagesRemoved(removed)

	duration := time.Since(start)
	j.logger.Info("未参照画像クリーンアップジョブが完了しました",
		slog.Int("scanned_count", len(files)),
		slog.Int("deleted_count", removed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// RunPeriodically は起動直後に全ジョブを1回実行し、以後intervalごとに実行する。
// ctxがキャンセルされるまでブロックする。ジョブのエラーはログに記録して次回に持ち越す。
func RunPeriodically(ctx context.Context, interval time.Duration, logger *slog.Logger, jobs ...Job) {
	runAll := func() {
		for _, job := range jobs {
			if ctx.Err() != nil {
				return
			}
			if err := job.Run(ctx); err != nil {
				logger.Error("定期ジョブの実行に失敗しました",
					slog.String("job", job.Name()),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	runAll()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runAll()
		}
	}
}
