// Package model はドメインモデルを定義する。
package model

import "time"

// UsernameMaxLength はユーザー名の最大文字数。
const UsernameMaxLength = 150

// User はポートフォリオの所有者となるアカウントを表す。
// PasswordHash はbcryptでハッシュ化されたパスワード。
type User struct {
	ID           string
	Username     string
	Email        string
	Name         string
	PasswordHash string
	Timestamps
}

// String はユーザー名を返す。
func (u *User) String() string {
	return u.Username
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
