package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/database"
	"github.com/associacao-ensino/inscricoes-backend/internal/logger"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	profileRepo := repository.NewProfileRepository(pool)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Staff User ===")

	// Name
	fmt.Print("Enter Full Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		fmt.Println("Error: Name is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		fmt.Println("Error: A valid email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// Roles
	fmt.Printf("Enter Roles, comma separated (default %s): ", model.RoleAdmin)
	rolesStr, _ := reader.ReadString('\n')
	roles, err := parseRoles(rolesStr)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	profile := &model.UserProfile{
		Email:        email,
		FullName:     name,
		PasswordHash: string(hashedPassword),
		Active:       true,
	}
	if err := profileRepo.Create(ctx, profile); err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}
	if err := profileRepo.AssignRoles(ctx, profile.ID, roles); err != nil {
		log.Fatal().Err(err).Str("user_id", profile.ID.String()).Msg("User created but roles were not assigned")
	}

	fmt.Printf("\nSuccess! User '%s' (%s) created with ID %s and roles %v\n", profile.FullName, profile.Email, profile.ID, roles)
}

func parseRoles(raw string) ([]model.Role, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []model.Role{model.RoleAdmin}, nil
	}
	var roles []model.Role
	for _, part := range strings.Split(raw, ",") {
		r := model.Role(strings.TrimSpace(part))
		if r == "" {
			continue
		}
		if !r.Valid() {
			return nil, fmt.Errorf("unknown role %q", r)
		}
		roles = append(roles, r)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("at least one role is required")
	}
	return roles, nil
}
