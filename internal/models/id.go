// Package models defines the GORM models persisted by CampusConnect.
package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the primary key has not been set.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
