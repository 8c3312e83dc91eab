package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/database"
	"github.com/associacao-ensino/inscricoes-backend/internal/logger"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/repository"
)

func main() {
	var email, roles string
	var all bool
	flag.StringVar(&email, "email", "", "Email of an existing staff user")
	flag.StringVar(&roles, "roles", string(model.RoleAdmin), "Comma separated roles to grant")
	flag.BoolVar(&all, "all", false, "Grant every known role")
	flag.Parse()

	if email == "" {
		fmt.Println("Usage: grant-role -email user@example.org [-roles admin,financeiro | -all]")
		return
	}

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

	fmt.Println("=== Grant Staff Roles ===")

	var grant []model.Role
	if all {
		grant = model.Roles
	} else {
		for _, part := range strings.Split(roles, ",") {
			r := model.Role(strings.TrimSpace(part))
			if r == "" {
				continue
			}
			if !r.Valid() {
				fmt.Printf("Error: unknown role %q\n", r)
				return
			}
			grant = append(grant, r)
		}
	}
	if len(grant) == 0 {
		fmt.Println("Error: no roles to grant")
		return
	}

	profile, err := profileRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			fmt.Printf("Error: no user with email %s. Create it first with create-admin.\n", email)
			return
		}
		log.Fatal().Err(err).Msg("Failed to look up user")
	}

	// Existing assignments are kept.
	if err := profileRepo.AssignRoles(ctx, profile.ID, grant); err != nil {
		log.Fatal().Err(err).Msg("Failed to assign roles")
	}

	fmt.Printf("\nSuccess! %s now holds %v (previously %v).\n", profile.Email, grant, profile.Roles)
}
