package db

import "gorm.io/gorm"

// Submission 定义用户投稿模型，状态流转仅限 pending → approved/rejected。
type Submission struct {
	gorm.Model
	ArtistName   string `gorm:"not null"`
	ArtistSocial string
	Description  string
	Status       string           `gorm:"default:pending;index"` // pending, approved, rejected
	Files        []SubmissionFile `gorm:"constraint:OnDelete:CASCADE"`
}

// SubmissionFile 是投稿携带的单张图片文件引用。
type SubmissionFile struct {
	gorm.Model
	SubmissionID     uint `gorm:"index"`
	Filename         string
	OriginalFilename string
	Width            int
	Height           int
}
