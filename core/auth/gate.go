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

// Package auth converts bearer credentials into per-call capabilities.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/live-memory-project/live-memory/core/token"
	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/pkg/errors"
)

// Gate resolves Authorization headers to identities.
type Gate struct {
	registry  *token.Registry
	bootstrap string
	logger    logging.Logger
}

// NewGate creates a gate with the configured bootstrap credential.
func NewGate(registry *token.Registry, bootstrap string, logger logging.Logger) *Gate {
	return &Gate{registry: registry, bootstrap: bootstrap, logger: logger}
}

// Resolve authenticates a raw Authorization header value. The
// bootstrap credential is matched first; anything else is hashed and
// looked up in the registry. last_used_at is updated out of band.
func (g *Gate) Resolve(ctx context.Context, header string) (*Identity, error) {
	raw := strings.TrimSpace(header)
	if after, ok := strings.CutPrefix(raw, "Bearer "); ok {
		raw = strings.TrimSpace(after)
	}
	if raw == "" {
		return nil, errors.ErrUnauthorized.WithMessage("missing Authorization header")
	}

	if subtle.ConstantTimeCompare([]byte(raw), []byte(g.bootstrap)) == 1 {
		return BootstrapIdentity(), nil
	}

	hash := token.HashCredential(raw)
	rec, err := g.registry.Lookup(ctx, hash)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := g.registry.Touch(context.Background(), hash); err != nil {
			g.logger.Warn(context.Background(), "failed to update token last_used_at",
				logging.String("token", rec.Name), logging.Error(err))
		}
	}()

	return identityFromRecord(rec), nil
}

// Audit emits the structured audit line for an authenticated call.
func (g *Gate) Audit(ctx context.Context, id *Identity, tool, spaceID string) {
	fields := []logging.Field{
		logging.String("identity", id.Name),
		logging.String("tool", tool),
	}
	if id.HashPrefix != "" {
		fields = append(fields, logging.String("token_hash", id.HashPrefix))
	}
	if spaceID != "" {
		fields = append(fields, logging.String("space", spaceID))
	}
	g.logger.Info(ctx, "tool call", fields...)
}
