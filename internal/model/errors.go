// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, portfolio, media, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeTechnologyNotFound  = "TECHNOLOGY_NOT_FOUND"
	ErrCodeProjectNotFound     = "PROJECT_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeDuplicateUsername   = "DUPLICATE_USERNAME"
	ErrCodeDuplicateTechnology = "DUPLICATE_TECHNOLOGY"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInvalidImage        = "INVALID_IMAGE"
	ErrCodeImageTooLarge       = "IMAGE_TOO_LARGE"
	ErrCodeImageFetchFailed    = "IMAGE_FETCH_FAILED"
	ErrCodeSSRFBlocked         = "SSRF_BLOCKED"
	ErrCodeMailNotConfigured   = "MAIL_NOT_CONFIGURED"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrCodeCSRFFailed          = "CSRF_FAILED"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeDisallowedHost      = "DISALLOWED_HOST"
)

// NewValidationError はフィールド単位の検証エラーを生成する。
// メッセージは "field: reason" の形式。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("%s: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewTechnologyNotFoundError は技術タグ未検出エラーを生成する。
func NewTechnologyNotFoundError(technologyID string) *APIError {
	return &APIError{
		Code:     ErrCodeTechnologyNotFound,
		Message:  fmt.Sprintf("指定された技術が見つかりません: %s", technologyID),
		Category: "portfolio",
		Action:   "技術IDを確認してください。",
	}
}

// NewProjectNotFoundError はプロジェクト未検出エラーを生成する。
func NewProjectNotFoundError(projectID string) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("指定されたプロジェクトが見つかりません: %s", projectID),
		Category: "portfolio",
		Action:   "プロジェクトIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewDuplicateUsernameError はユーザー名の重複エラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("ユーザー名は既に使用されています: %s", username),
		Category: "auth",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewDuplicateTechnologyError は技術名の重複エラーを生成する。
func NewDuplicateTechnologyError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateTechnology,
		Message:  fmt.Sprintf("同じ名前の技術が既に登録されています: %s", name),
		Category: "portfolio",
		Action:   "既存の技術を選択するか、別の名前を指定してください。",
	}
}

// NewInvalidCredentialsError は認証情報が一致しない場合のエラーを生成する。
// ユーザー名とパスワードのどちらが誤っているかは区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewForbiddenError は所有者以外による変更操作のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "自分が所有するプロジェクトのみ変更できます。",
	}
}

// NewInvalidImageError は画像形式が不正な場合のエラーを生成する。
func NewInvalidImageError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImage,
		Message:  fmt.Sprintf("画像ファイルが不正です: %s", reason),
		Category: "media",
		Action:   "PNG、JPEG、GIF、WebP形式の画像を指定してください。",
	}
}

// NewImageTooLargeError は画像サイズ超過エラーを生成する。
func NewImageTooLargeError(maxBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodeImageTooLarge,
		Message:  fmt.Sprintf("画像サイズが上限（%dバイト）を超えています。", maxBytes),
		Category: "media",
		Action:   "画像を縮小してから再度アップロードしてください。",
	}
}

// NewImageFetchFailedError はリモート画像の取得失敗エラーを生成する。
func NewImageFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeImageFetchFailed,
		Message:  fmt.Sprintf("画像の取得に失敗しました: %s", reason),
		Category: "media",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewMailNotConfiguredError はメール送信設定が未設定の場合のエラーを生成する。
func NewMailNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeMailNotConfigured,
		Message:  "メール送信が設定されていません。",
		Category: "system",
		Action:   "管理者に連絡してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewCSRFFailedError はCSRFトークン検証エラーを生成する。
func NewCSRFFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFFailed,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewNotFoundError は存在しないURLへのアクセスエラーを生成する。
func NewNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "指定されたURLは存在しません。",
		Category: "system",
		Action:   "URLを確認してください。",
	}
}

// NewDisallowedHostError は許可されていないHostヘッダーのエラーを生成する。
func NewDisallowedHostError() *APIError {
	return &APIError{
		Code:     ErrCodeDisallowedHost,
		Message:  "許可されていないホストへのリクエストです。",
		Category: "system",
		Action:   "アクセス先のURLを確認してください。",
	}
}
