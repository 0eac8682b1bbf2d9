// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"unicode/utf8"
)

// 技術タグのフィールド定義。
const (
	TechnologyNameMaxLength       = 30
	TechnologyNameHelpText        = "Enter the name of the technology."
	TechnologyDescriptionHelpText = "Enter a description of the technology."
	TechnologyVerboseNamePlural   = "technologies"
)

// Technology はプロジェクトで使用した言語・フレームワーク・ツールを表すタグ。
// Name は表示用のキーとして扱い、一意である前提。
type Technology struct {
	ID          string
	Name        string
	Description string
}

// String は技術名を返す。
func (t *Technology) String() string {
	return t.Name
}

// Normalize は入力値の前後の空白を除去する。
func (t *Technology) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.Description = strings.TrimSpace(t.Description)
}

// Validate は技術タグのフィールド制約を検証する。
// 文字数はUnicodeコードポイント単位で数える。
func (t *Technology) Validate() error {
	if t.Name == "" {
		return NewValidationError("name", "this field is required")
	}
	if utf8.RuneCountInString(t.Name) > TechnologyNameMaxLength {
		return NewValidationError("name", "must be at most 30 characters")
	}
	if t.Description == "" {
		return NewValidationError("description", "this field is required")
	}
	return nil
}
