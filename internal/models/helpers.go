package models

import (
	"github.com/google/uuid"
)

// generateID 生成唯一ID
func generateID() string {
	return uuid.New().String()
}

// GenerateRunID 生成运行ID
func GenerateRunID() string {
	return uuid.New().String()
}
