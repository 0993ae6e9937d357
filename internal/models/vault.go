package models

import "github.com/starford/wikivault/internal/periodic"

// VaultInfo pairs a discovered vault with its periodic-notes configuration.
type VaultInfo struct {
	Name     string          `json:"name"`
	Root     string          `json:"root"`
	Periodic periodic.Config `json:"periodic"`
}
