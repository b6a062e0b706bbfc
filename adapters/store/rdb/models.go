package rdb

import "time"

// StackRecord is the RDB persistence model for a stack snapshot header.
// Table name: stacks
type StackRecord struct {
	Name      string    `gorm:"primaryKey;type:text;not null"`
	Outputs   string    `gorm:"type:text"` // JSON encoded stack outputs, secrets encrypted
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (StackRecord) TableName() string { return "stacks" }

// ResourceRecord is the persistence model for one resource of a snapshot.
// Seq keeps the dependency order of the snapshot.
type ResourceRecord struct {
	Stack        string    `gorm:"primaryKey;type:text;not null"` // references Stack
	URN          string    `gorm:"primaryKey;type:text;not null"`
	Seq          int       `gorm:"not null"`
	Type         string    `gorm:"type:text;not null"`
	Kind         int       `gorm:"not null"`
	ResourceID   string    `gorm:"type:text"`
	Inputs       string    `gorm:"type:text"` // JSON encoded inputs, secrets encrypted
	Outputs      string    `gorm:"type:text"` // JSON encoded outputs, secrets encrypted
	Dependencies string    `gorm:"type:text"` // JSON encoded []string
	Provider     string    `gorm:"type:text"`
	Protect      bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (ResourceRecord) TableName() string { return "resources" }
