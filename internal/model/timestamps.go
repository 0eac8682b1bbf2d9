// Package model はドメインモデルを定義する。
package model

import "time"

// Timestamps は作成日時と更新日時を保持する共通フィールド。
// Project など複数のエンティティに埋め込んで使用する。
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch は保存時のタイムスタンプを更新する。
// CreatedAt は未設定の場合のみ設定し、以後は変更しない。
// UpdatedAt は毎回更新するが、過去に戻ることはない。
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if now.Before(t.UpdatedAt) {
		return
	}
	t.UpdatedAt = now
}
