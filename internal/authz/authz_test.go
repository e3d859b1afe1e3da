package authz

import (
	"errors"
	"testing"

	"careteam-chat-backend/pkg/apperr"
)

func uintPtr(v uint) *uint {
	return &v
}

func TestRoomParticipantsCoversAllRoles(t *testing.T) {
	for _, role := range AllRoles {
		if _, ok := roomParticipants[role]; !ok {
			t.Errorf("roomParticipants is missing role %s", role)
		}
	}
	if len(roomParticipants) != len(AllRoles) {
		t.Errorf("roomParticipants has %d entries, want %d", len(roomParticipants), len(AllRoles))
	}
}

func TestCanActInRoomScope(t *testing.T) {
	tests := []struct {
		name       string
		principal  Principal
		hospitalID uint
		wantCode   apperr.Code
	}{
		{
			name:       "clinician in own hospital",
			principal:  Principal{UserID: 1, HospitalID: uintPtr(1), Role: RoleClinician},
			hospitalID: 1,
		},
		{
			name:       "receptionist in own hospital",
			principal:  Principal{UserID: 2, HospitalID: uintPtr(1), Role: RoleReceptionist},
			hospitalID: 1,
		},
		{
			name:       "hospital admin in own hospital",
			principal:  Principal{UserID: 3, HospitalID: uintPtr(2), Role: RoleHospitalAdmin},
			hospitalID: 2,
		},
		{
			name:       "clinician in other hospital",
			principal:  Principal{UserID: 1, HospitalID: uintPtr(1), Role: RoleClinician},
			hospitalID: 2,
			wantCode:   apperr.CodeForbidden,
		},
		{
			name:       "global admin is always excluded",
			principal:  Principal{UserID: 4, Role: RoleGlobalAdmin},
			hospitalID: 1,
			wantCode:   apperr.CodeForbidden,
		},
		{
			name:       "global admin with hospital claim is still excluded",
			principal:  Principal{UserID: 4, HospitalID: uintPtr(1), Role: RoleGlobalAdmin},
			hospitalID: 1,
			wantCode:   apperr.CodeForbidden,
		},
		{
			name:       "missing hospital claim",
			principal:  Principal{UserID: 5, Role: RoleClinician},
			hospitalID: 1,
			wantCode:   apperr.CodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanActInRoomScope(tt.principal, tt.hospitalID)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if apperr.CodeOf(err) != tt.wantCode {
				t.Errorf("got code %s, want %s", apperr.CodeOf(err), tt.wantCode)
			}
		})
	}
}

func TestCanCreateUser(t *testing.T) {
	globalAdmin := Principal{UserID: 1, Role: RoleGlobalAdmin}
	hospitalAdmin := Principal{UserID: 2, HospitalID: uintPtr(1), Role: RoleHospitalAdmin}
	clinician := Principal{UserID: 3, HospitalID: uintPtr(1), Role: RoleClinician}

	tests := []struct {
		name     string
		actor    Principal
		newRole  Role
		hospital *uint
		wantErr  bool
	}{
		{"global admin creates clinician", globalAdmin, RoleClinician, uintPtr(1), false},
		{"global admin creates global admin", globalAdmin, RoleGlobalAdmin, nil, false},
		{"global admin binds global admin to hospital", globalAdmin, RoleGlobalAdmin, uintPtr(1), true},
		{"global admin creates clinician without hospital", globalAdmin, RoleClinician, nil, true},
		{"hospital admin creates clinician in own hospital", hospitalAdmin, RoleClinician, uintPtr(1), false},
		{"hospital admin creates clinician elsewhere", hospitalAdmin, RoleClinician, uintPtr(2), true},
		{"hospital admin creates global admin", hospitalAdmin, RoleGlobalAdmin, nil, true},
		{"clinician creates anyone", clinician, RoleReceptionist, uintPtr(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanCreateUser(tt.actor, tt.newRole, tt.hospital)
			if (err != nil) != tt.wantErr {
				t.Errorf("got err=%v, wantErr=%t", err, tt.wantErr)
			}
		})
	}
}

func TestCanListHospitalRooms(t *testing.T) {
	admin := Principal{UserID: 1, HospitalID: uintPtr(2), Role: RoleHospitalAdmin}
	if err := CanListHospitalRooms(admin, 2); err != nil {
		t.Errorf("hospital admin should list own hospital's rooms: %v", err)
	}
	if err := CanListHospitalRooms(admin, 3); !errors.Is(err, apperr.Forbidden("")) {
		t.Errorf("expected forbidden for foreign hospital, got %v", err)
	}

	clinician := Principal{UserID: 2, HospitalID: uintPtr(2), Role: RoleClinician}
	if err := CanListHospitalRooms(clinician, 2); !errors.Is(err, apperr.Forbidden("")) {
		t.Errorf("expected forbidden for clinician, got %v", err)
	}
	root := Principal{UserID: 3, Role: RoleGlobalAdmin}
	if err := CanListHospitalRooms(root, 2); !errors.Is(err, apperr.Forbidden("")) {
		t.Errorf("expected forbidden for global admin, got %v", err)
	}
}

func TestCanListUsers(t *testing.T) {
	if err := CanListUsers(Principal{UserID: 1, Role: RoleGlobalAdmin}, 7); err != nil {
		t.Errorf("global admin should list any hospital: %v", err)
	}
	member := Principal{UserID: 2, HospitalID: uintPtr(3), Role: RoleReceptionist}
	if err := CanListUsers(member, 3); err != nil {
		t.Errorf("member should list own hospital: %v", err)
	}
	if err := CanListUsers(member, 4); !errors.Is(err, apperr.Forbidden("")) {
		t.Errorf("expected forbidden for foreign hospital, got %v", err)
	}
}
