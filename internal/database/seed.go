package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// defaultSections are created on first start in development so the admin
// form has categories to choose from.
var defaultSections = []struct {
	Name        string
	Description string
}{
	{"Fútbol", "Táctica, análisis de partidos y estrategias de equipo"},
	{"Baloncesto", "Sistemas ofensivos y defensivos"},
	{"Tenis", "Patrones de juego y preparación mental"},
	{"Estrategia", "Principios generales de planificación deportiva"},
}

// Seed populates the database with initial development data. It only
// creates sections; admin accounts are provisioned through the CLI.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM custom_sections").Scan(&count); err != nil {
		return fmt.Errorf("seed check sections: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	for _, s := range defaultSections {
		_, err := db.ExecContext(ctx,
			`INSERT INTO custom_sections (name, description) VALUES ($1, $2)`,
			s.Name, s.Description,
		)
		if err != nil {
			return fmt.Errorf("seed insert section %q: %w", s.Name, err)
		}
	}

	slog.Info("database seeded with default sections", "count", len(defaultSections))
	return nil
}
