// Copyright (C) 2025 live-memory-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package auth

import (
	"github.com/live-memory-project/live-memory/core/token"
	"github.com/live-memory-project/live-memory/pkg/errors"
)

// Identity is the per-call capability resolved from a bearer
// credential. Every authenticated tool call carries exactly one.
type Identity struct {
	// Name is the token name, or "bootstrap" for the synthetic admin.
	Name string

	// Permissions are the capabilities of the credential.
	Permissions []token.Permission

	// SpaceIDs is the scope; empty means universal.
	SpaceIDs []string

	// Bootstrap marks the configured admin credential.
	Bootstrap bool

	// HashPrefix is the leading bytes of the stored hash, for audit
	// logs. Empty for the bootstrap identity.
	HashPrefix string
}

// BootstrapIdentity is the synthetic admin resolved from the
// configured bootstrap credential.
func BootstrapIdentity() *Identity {
	return &Identity{
		Name:        "bootstrap",
		Permissions: []token.Permission{token.PermissionAdmin},
		Bootstrap:   true,
	}
}

// identityFromRecord converts a token record into an identity.
func identityFromRecord(rec *token.Record) *Identity {
	return &Identity{
		Name:        rec.Name,
		Permissions: rec.Permissions,
		SpaceIDs:    rec.SpaceIDs,
		HashPrefix:  rec.HashPrefix(),
	}
}

// has reports whether the identity carries the permission, with admin
// implying write and write implying read.
func (id *Identity) has(p token.Permission) bool {
	for _, have := range id.Permissions {
		if have == p || have == token.PermissionAdmin {
			return true
		}
		if have == token.PermissionWrite && p == token.PermissionRead {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity carries admin.
func (id *Identity) IsAdmin() bool {
	return id.has(token.PermissionAdmin)
}

// InScope reports whether the identity may touch the space.
func (id *Identity) InScope(spaceID string) bool {
	if len(id.SpaceIDs) == 0 {
		return true
	}
	for _, s := range id.SpaceIDs {
		if s == spaceID {
			return true
		}
	}
	return false
}

// CheckAccess passes iff the identity's scope covers the space.
func (id *Identity) CheckAccess(spaceID string) error {
	if !id.InScope(spaceID) {
		return errors.ErrForbidden.WithDetail("space_id", spaceID)
	}
	return nil
}

// CheckRead requires the read permission.
func (id *Identity) CheckRead() error {
	if !id.has(token.PermissionRead) {
		return errors.ErrForbidden.WithMessage("read permission required")
	}
	return nil
}

// CheckWrite requires write or admin.
func (id *Identity) CheckWrite() error {
	if !id.has(token.PermissionWrite) {
		return errors.ErrForbidden.WithMessage("write permission required")
	}
	return nil
}

// CheckAdmin requires admin.
func (id *Identity) CheckAdmin() error {
	if !id.IsAdmin() {
		return errors.ErrForbidden.WithMessage("admin permission required")
	}
	return nil
}
