package project

import "time"

// Status 项目状态
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "InProgress"
	StatusComplete   Status = "Complete"
)

// Valid 判断状态是否合法
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusComplete:
		return true
	}
	return false
}

// Project 项目表
//
// 软删除时 ProjectCode 追加 "-<id>" 后缀，原编码可以被新项目复用。
type Project struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ProjectCode     string    `gorm:"size:64;uniqueIndex;not null" json:"project_code"`
	ProjectName     string    `gorm:"size:255" json:"project_name"`
	AssignedManager string    `gorm:"size:128;index" json:"assigned_manager"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	ProjectStatus   Status    `gorm:"size:16" json:"project_status"`
	ProjectDetail   string    `gorm:"type:text" json:"project_detail"`
	IsDeleted       bool      `gorm:"index" json:"-"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// TableName 表名
func (Project) TableName() string {
	return "projects"
}

// Details 项目及其任务完成情况
type Details struct {
	Project
	CompleteTaskCounts   int64 `json:"complete_task_counts"`
	UnfinishedTaskCounts int64 `json:"unfinished_task_counts"`
}
