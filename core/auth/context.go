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
	"context"

	"github.com/live-memory-project/live-memory/pkg/errors"
)

type identityKey struct{}

// WithIdentity returns a context carrying the resolved identity for
// one in-flight request.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity carried by the context.
func IdentityFrom(ctx context.Context) (*Identity, error) {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	if id == nil {
		return nil, errors.ErrUnauthorized
	}
	return id, nil
}
