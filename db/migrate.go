package db

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bookable/bookable/models"
)

// Migrate runs AutoMigrate for every core table. Only called explicitly
// (deploy step), never on normal startup.
func Migrate() {
	if DB == nil {
		Init()
	}

	err := DB.AutoMigrate(
		&models.Role{},
		&models.Permission{},
		&models.Business{},
		&models.Employee{},
		&models.Customer{},
		&models.Service{},
		&models.WorkingHoursEntry{},
		&models.AvailabilityOverride{},
		&models.Booking{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	seedRoles()
	log.Info().Msg("migrations applied")
}

// seedRoles loads the static role→permission table once.
func seedRoles() {
	for name, perms := range models.DefaultRolePermissions {
		var role models.Role
		if DB.Where("name = ?", name).First(&role).RowsAffected == 0 {
			role = models.Role{Name: name}
			DB.Create(&role)
		}
		for _, p := range perms {
			var perm models.Permission
			if DB.Where("name = ?", p).First(&perm).RowsAffected == 0 {
				resource, action, _ := strings.Cut(p, ":")
				perm = models.Permission{Name: p, Resource: resource, Action: action}
				DB.Create(&perm)
			}
			DB.Model(&role).Association("Permissions").Append(&perm)
		}
	}
}
