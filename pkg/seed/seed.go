package seed

import (
	"log"

	"gorm.io/gorm"

	"inmuebles_backend/internal/model"
)

// DefaultCategories are the listing categories every installation starts with.
var DefaultCategories = []string{
	"Casa",
	"Departamento",
	"Edificio",
	"Galpón",
	"Habitacion",
	"Local Comercial",
	"Oficina",
	"Parqueo",
	"Quinta Propiedad Agricola",
	"Terreno",
}

// SeedCategories inserts missing default categories. Safe to run on every boot.
func SeedCategories(db *gorm.DB) {
	for _, name := range DefaultCategories {
		category := model.Category{Name: name}
		if err := db.Where(model.Category{Name: name}).FirstOrCreate(&category).Error; err != nil {
			log.Printf("Error creating category %s: %v", name, err)
		}
	}

	log.Println("Categories seeded successfully!")
}

// SeedRoles makes sure the tenant has the admin and agent roles.
func SeedRoles(db *gorm.DB, companyID uint) {
	roles := []model.Role{
		{CompanyID: companyID, Name: "admin", DisplayName: "Administrador", IsActive: true},
		{CompanyID: companyID, Name: "agente", DisplayName: "Agente inmobiliario", IsActive: true},
	}

	for _, role := range roles {
		result := db.Where(model.Role{CompanyID: companyID, Name: role.Name}).FirstOrCreate(&role)
		if result.Error != nil {
			log.Printf("Error creating role %s: %v", role.Name, result.Error)
		}
	}

	log.Println("Roles seeded successfully!")
}
