// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"unicode/utf8"
)

// プロジェクトのフィールド定義。
const (
	ProjectTitleMaxLength        = 100
	ProjectOwnerHelpText         = "Owner of this project."
	ProjectOwnerRelatedName      = "projects"
	ProjectDescriptionHelpText   = "Enter a description of the project."
	ProjectTechnologyHelpText    = "Select a technology for this project."
	ProjectTechnologyVerboseName = "technologies"
	ProjectTechnologyRelatedName = "projects"
	ProjectMainImageVerboseName  = "Main Image"
	ProjectMainImageHelpText     = "Add an image of the project."
	ProjectMainImageUploadTo     = "portfolio/"
	displayTechnologiesLimit     = 3
	displayTechnologiesSeparator = ", "
)

// Project はユーザーが公開するポートフォリオの1エントリを表す。
// Technologies は割り当て順を保持する。
// MainImage はメディアルートからの相対パス（portfolio/ 配下）で、未設定の場合は空文字列。
type Project struct {
	ID           string
	OwnerID      string
	Title        string
	Description  string
	Technologies []Technology
	MainImage    string
	Timestamps
}

// String はプロジェクトのタイトルを返す。
func (p *Project) String() string {
	return p.Title
}

// DisplayTechnologies は表示用に技術名を最大3件まで ", " で連結して返す。
// 4件目以降は省略記号なしで切り捨てる。技術が0件の場合は空文字列を返す。
func (p *Project) DisplayTechnologies() string {
	n := len(p.Technologies)
	if n > displayTechnologiesLimit {
		n = displayTechnologiesLimit
	}
	names := make([]string, 0, n)
	for _, t := range p.Technologies[:n] {
		names = append(names, t.Name)
	}
	return strings.Join(names, displayTechnologiesSeparator)
}

// TechnologyIDs は割り当て順の技術IDを返す。
func (p *Project) TechnologyIDs() []string {
	ids := make([]string, len(p.Technologies))
	for i, t := range p.Technologies {
		ids[i] = t.ID
	}
	return ids
}

// HasImage はメイン画像が設定されているかを返す。
func (p *Project) HasImage() bool {
	return p.MainImage != ""
}

// Normalize は入力値の前後の空白を除去する。
func (p *Project) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
}

// Validate はプロジェクトのフィールド制約を検証する。
func (p *Project) Validate() error {
	if p.OwnerID == "" {
		return NewValidationError("owner", "this field is required")
	}
	if p.Title == "" {
		return NewValidationError("title", "this field is required")
	}
	if utf8.RuneCountInString(p.Title) > ProjectTitleMaxLength {
		return NewValidationError("title", "must be at most 100 characters")
	}
	if p.MainImage != "" && !strings.HasPrefix(p.MainImage, ProjectMainImageUploadTo) {
		return NewValidationError("main_image", "must be stored under "+ProjectMainImageUploadTo)
	}
	return nil
}
