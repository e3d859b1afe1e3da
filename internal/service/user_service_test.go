package service

import (
	"context"
	"testing"

	"careteam-chat-backend/internal/authz"
	"careteam-chat-backend/pkg/apperr"
)

func TestCreateUserScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.userAt(t, "root", authz.RoleGlobalAdmin, nil)
	admin := f.user(t, "admin", authz.RoleHospitalAdmin)
	other := f.otherHospital(t)

	created, err := f.users.Create(ctx, admin, CreateUserInput{
		Name:       "nina",
		Email:      "nina@example.com",
		Password:   "correct horse",
		Role:       string(authz.RoleClinician),
		HospitalID: &f.hospital.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.PasswordHash == "correct horse" {
		t.Error("password must be stored hashed")
	}

	// Duplicate e-mail is a conflict.
	_, err = f.users.Create(ctx, root, CreateUserInput{
		Name:       "nina again",
		Email:      "nina@example.com",
		Password:   "correct horse",
		Role:       string(authz.RoleClinician),
		HospitalID: &f.hospital.ID,
	})
	if apperr.CodeOf(err) != apperr.CodeConflict {
		t.Fatalf("duplicate e-mail: got %v, want conflict", err)
	}

	// A hospital admin cannot provision users for another hospital.
	_, err = f.users.Create(ctx, admin, CreateUserInput{
		Name:       "oscar",
		Email:      "oscar@example.com",
		Password:   "correct horse",
		Role:       string(authz.RoleClinician),
		HospitalID: &other.ID,
	})
	if apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Fatalf("cross-hospital create: got %v, want forbidden", err)
	}

	_, err = f.users.Create(ctx, root, CreateUserInput{
		Name:       "pat",
		Email:      "pat@example.com",
		Password:   "correct horse",
		Role:       "superuser",
		HospitalID: &f.hospital.ID,
	})
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Fatalf("unknown role: got %v, want invalid input", err)
	}
}

func TestFindByIDScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.userAt(t, "root", authz.RoleGlobalAdmin, nil)
	alice := f.user(t, "alice", authz.RoleClinician)
	bob := f.user(t, "bob", authz.RoleReceptionist)
	other := f.otherHospital(t)
	dave := f.userAt(t, "dave", authz.RoleClinician, &other.ID)

	// Same hospital: visible.
	user, err := f.users.FindByID(ctx, alice, bob.UserID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if user.Name != "bob" {
		t.Errorf("user = %q, want bob", user.Name)
	}

	// Other hospital: forbidden.
	if _, err := f.users.FindByID(ctx, alice, dave.UserID); apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Fatalf("cross-hospital lookup: got %v, want forbidden", err)
	}

	// Global administrators are hidden from tenant users.
	if _, err := f.users.FindByID(ctx, alice, root.UserID); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("global admin lookup: got %v, want not found", err)
	}

	// The global administrator sees everyone.
	if _, err := f.users.FindByID(ctx, root, dave.UserID); err != nil {
		t.Fatalf("global admin FindByID: %v", err)
	}
}
