package config

import (
	"log"
	"time"

	"librohub/internal/adapters/persistence/models"
	"librohub/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}
	if err := s.seedStarterCatalog(); err != nil {
		log.Printf("⚠️ Catalog seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds default admin user
// This is for development/testing only
// In production, create admin through secure process
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", "ADMIN").Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := password.Hash("admin123456")
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:     "Administrator",
		Email:    "admin@librohub.example.org",
		Password: hashedPassword,
		Role:     "ADMIN",
		IsActive: true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Email)
	return nil
}

// seedStarterCatalog seeds a handful of titles so a fresh dev install
// has something to borrow.
func (s *Seeder) seedStarterCatalog() error {
	var count int64
	s.db.Model(&models.Book{}).Count(&count)
	if count > 0 {
		return nil // Catalog already populated
	}

	now := time.Now()
	books := []models.Book{
		{
			ISBN: "9780307474728", Title: "Cien años de soledad", Author: "Gabriel García Márquez",
			Publisher: "Vintage Español", Genre: "Fiction", Year: 1967,
			TotalCopies: 3, AvailableCopies: 3, AcquiredAt: now, Version: 1,
		},
		{
			ISBN: "9780141439518", Title: "Pride and Prejudice", Author: "Jane Austen",
			Publisher: "Penguin Classics", Genre: "Fiction", Year: 1813,
			TotalCopies: 2, AvailableCopies: 2, AcquiredAt: now, Version: 1,
		},
		{
			ISBN: "9780132350884", Title: "Clean Code", Author: "Robert C. Martin",
			Publisher: "Prentice Hall", Genre: "Technology", Year: 2008,
			TotalCopies: 2, AvailableCopies: 2, AcquiredAt: now, Version: 1,
		},
		{
			ISBN: "9780062316097", Title: "Sapiens", Author: "Yuval Noah Harari",
			Publisher: "Harper", Genre: "History", Year: 2011,
			TotalCopies: 1, AvailableCopies: 1, AcquiredAt: now, Version: 1,
		},
	}

	if err := s.db.Create(&books).Error; err != nil {
		return err
	}

	log.Printf("✅ Starter catalog created: %d titles", len(books))
	return nil
}
