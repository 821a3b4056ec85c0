// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/user"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"estrategas/internal/models"
	"estrategas/internal/store"
)

// Roles are only ever changed out of band; the web app has no endpoint
// that writes them.

type identityFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
}

type roleWriter interface {
	Ensure(ctx context.Context, userID uuid.UUID, displayName string) (*models.Profile, error)
	SetRole(ctx context.Context, userID uuid.UUID, role models.Role) (bool, error)
}

type sectionCreator interface {
	Create(ctx context.Context, name string, description *string) (*models.Section, error)
}

var errNoIdentity = errors.New("no identity with that email")

// changeRole sets the role of the identity registered under email,
// creating its profile first if sign-up never did.
func changeRole(ctx context.Context, identities identityFinder, profiles roleWriter, email string, role models.Role, operator string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("--email is required")
	}

	ident, err := identities.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find identity: %w", err)
	}
	if ident == nil {
		return fmt.Errorf("%s: %w", email, errNoIdentity)
	}

	prof, err := profiles.Ensure(ctx, ident.ID, displayNameFor(ident.Email))
	if err != nil {
		return err
	}
	if prof.Role == role {
		slog.Info("role unchanged", "email", ident.Email, "role", role, "operator", operator)
		return nil
	}

	ok, err := profiles.SetRole(ctx, ident.ID, role)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: profile disappeared while changing role", email)
	}

	slog.Info("role changed",
		"email", ident.Email,
		"user_id", ident.ID,
		"from", prof.Role,
		"to", role,
		"operator", operator,
	)
	return nil
}

// addSection creates a section; an empty description is stored as NULL.
func addSection(ctx context.Context, sections sectionCreator, name, description string) (*models.Section, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("--name is required")
	}
	var desc *string
	if d := strings.TrimSpace(description); d != "" {
		desc = &d
	}
	sec, err := sections.Create(ctx, name, desc)
	if err != nil {
		return nil, err
	}
	slog.Info("section created", "id", sec.ID, "name", sec.Name)
	return sec, nil
}

// displayNameFor names a profile created here after the email local part.
func displayNameFor(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}

// operatorName identifies who ran a management command in the audit log.
func operatorName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

func (a *app) roleCommand(use, short string, grant bool) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			role := models.RoleMember
			if grant {
				role = models.RoleAdmin
			}
			return changeRole(cmd.Context(), store.NewIdentityStore(db), store.NewProfileStore(db), email, role, operatorName())
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the registered identity")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) sectionCommand() *cobra.Command {
	section := &cobra.Command{
		Use:   "section",
		Short: "Manage article sections",
	}

	var name, description string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a section",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			sec, err := addSection(cmd.Context(), store.NewSectionStore(db), name, description)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sec.ID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "section name")
	add.Flags().StringVar(&description, "description", "", "optional description")
	_ = add.MarkFlagRequired("name")

	section.AddCommand(add)
	return section
}
