package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"equiptrack-backend/internal/app"
	"equiptrack-backend/internal/config"
	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/logger"
	"equiptrack-backend/internal/security"
)

// SeedData is the YAML layout of a seed file.
type SeedData struct {
	Users     []SeedUser      `yaml:"users"`
	Equipment []SeedEquipment `yaml:"equipment"`
	Operators []SeedOperator  `yaml:"operators"`
}

type SeedUser struct {
	ID         string `yaml:"id"`
	FirstName  string `yaml:"first_name"`
	LastName   string `yaml:"last_name"`
	Email      string `yaml:"email"`
	Phone      string `yaml:"phone"`
	Department string `yaml:"department"`
	Role       string `yaml:"role"`
}

type SeedEquipment struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	SerialNumber  string `yaml:"serial_number"`
	ArticleNumber string `yaml:"article_number"`
	Category      string `yaml:"category"`
	Location      string `yaml:"location"`
	Total         int32  `yaml:"total"`
	QRType        string `yaml:"qr_type"`
}

// SeedOperator carries a plaintext password; the tool prints the bcrypt hash
// to paste into the server configuration.
type SeedOperator struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	seedPath := flag.String("data", "config/seed.dev.yaml", "Path to seed data file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	data, err := readSeedFile(*seedPath)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	if err := populate(ctx, a, data); err != nil {
		log.Fatalf("Failed to seed data: %v", err)
	}
	log.Printf("Seed completed")
}

func readSeedFile(filename string) (*SeedData, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func populate(ctx context.Context, a *app.App, data *SeedData) error {
	for i, su := range data.Users {
		u := &domain.User{
			ID:         su.ID,
			FirstName:  su.FirstName,
			LastName:   su.LastName,
			Email:      su.Email,
			Phone:      su.Phone,
			Department: su.Department,
			Role:       domain.UserRole(su.Role),
		}
		if u.Role == "" {
			u.Role = domain.UserRoleBorrower
		}
		if err := u.Validate(); err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
		if err := a.Repos.Users.Create(ctx, u); err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.DisplayName(), err)
		}
		log.Printf("✓ User %s created with ID: %s", u.DisplayName(), u.ID)
	}

	for _, se := range data.Equipment {
		eq := &domain.Equipment{
			ID:            se.ID,
			Name:          se.Name,
			SerialNumber:  se.SerialNumber,
			ArticleNumber: se.ArticleNumber,
			Category:      se.Category,
			Location:      se.Location,
			TotalQuantity: se.Total,
			QRType:        domain.QRType(se.QRType),
		}
		instances, err := a.Inventory.CreateEquipment(ctx, eq)
		if err != nil {
			return fmt.Errorf("failed to create equipment %s: %w", se.Name, err)
		}
		log.Printf("✓ Equipment %s created with ID: %s (%d instances)", eq.Name, eq.ID, len(instances))
	}

	for _, op := range data.Operators {
		hash, err := security.HashPassword(op.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", op.Username, err)
		}
		fmt.Printf("  - username: %s\n    role: %s\n    password_hash: %q\n", op.Username, op.Role, hash)
	}
	return nil
}
