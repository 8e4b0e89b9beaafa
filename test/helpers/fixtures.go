package helpers

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/models"
)

// CreateTestUser creates an active, email verified account aged ageDays
func CreateTestUser(role models.UserRole, ageDays int) *models.User {
	created := time.Now().AddDate(0, 0, -ageDays)
	return &models.User{
		ID:            uuid.New(),
		Email:         "user-" + uuid.NewString()[:8] + "@example.com",
		Username:      "user" + uuid.NewString()[:8],
		Role:          role,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

// CreateTestSeller creates a verified seller with a 120 day old account
func CreateTestSeller() *models.User {
	return CreateTestUser(models.RoleSeller, 120)
}
