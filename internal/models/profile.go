package models

import "gorm.io/gorm"

// Education is one schooling entry on a profile.
type Education struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	UserID      string `gorm:"size:36;not null;index" json:"userId"`
	CollegeName string `gorm:"size:255;not null" json:"collegeName"`
	Branch      string `gorm:"size:255" json:"branch"`
	FromYear    int    `json:"fromYear"`
	ToYear      int    `json:"toYear"`
}

func (e *Education) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// Experience is one job or internship on a profile.
type Experience struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	UserID      string `gorm:"size:36;not null;index" json:"userId"`
	Company     string `gorm:"size:255;not null" json:"company"`
	Position    string `gorm:"size:255" json:"position"`
	FromYear    int    `json:"fromYear"`
	ToYear      int    `json:"toYear"`
	Current     bool   `json:"current"`
	Description string `gorm:"type:text" json:"description"`
}

func (e *Experience) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// Project is a showcased side or course project.
type Project struct {
	ID          string   `gorm:"primaryKey;size:36" json:"id"`
	UserID      string   `gorm:"size:36;not null;index" json:"userId"`
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	TechStack   []string `gorm:"type:text;serializer:json" json:"techStack"`
	Link        string   `gorm:"size:512" json:"link"`
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Skill is a named skill with an optional proficiency level.
type Skill struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	UserID string `gorm:"size:36;not null;index" json:"userId"`
	Name   string `gorm:"size:128;not null" json:"name"`
	Level  string `gorm:"size:32" json:"level"`
}

func (s *Skill) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// Interest is a free-form interest tag.
type Interest struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	UserID string `gorm:"size:36;not null;index" json:"userId"`
	Name   string `gorm:"size:128;not null" json:"name"`
}

func (i *Interest) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
