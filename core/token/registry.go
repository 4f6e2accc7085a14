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

// Package token persists bearer credentials as hashes and answers
// lookups for the auth gate.
//
// The whole registry is one JSON object at _system/tokens.json.
// Mutations take the global tokens mutex around the full
// read-modify-write cycle; a corrupt registry is surfaced as an error
// and never silently rewritten.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/live-memory-project/live-memory/core/lock"
	"github.com/live-memory-project/live-memory/pkg/errors"
	"github.com/live-memory-project/live-memory/storage"
)

// RegistryKey is the object key holding the token registry.
const RegistryKey = "_system/tokens.json"

// CredentialPrefix starts every issued credential.
const CredentialPrefix = "lm_"

// Registry manages token records on the object store.
type Registry struct {
	store storage.ObjectStore
	locks *lock.Registry
}

// NewRegistry creates a token registry.
func NewRegistry(store storage.ObjectStore, locks *lock.Registry) *Registry {
	return &Registry{store: store, locks: locks}
}

// Generate returns a fresh credential and its storage hash. The
// credential is "lm_" followed by 43 url-safe base64 characters
// encoding 32 random bytes.
func Generate() (plain, hash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", errors.ErrInternal.WithMessage("generate credential").Wrap(err)
	}
	plain = CredentialPrefix + base64.RawURLEncoding.EncodeToString(raw)
	return plain, HashCredential(plain), nil
}

// HashCredential returns the storage key of a plain credential.
func HashCredential(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// LooksLikeCredential reports whether a raw bearer value has the
// issued-credential shape.
func LooksLikeCredential(raw string) bool {
	return strings.HasPrefix(raw, CredentialPrefix)
}

// load reads the registry file. An absent file is an empty registry.
func (r *Registry) load(ctx context.Context) (*registryFile, error) {
	data, found, err := r.store.Get(ctx, RegistryKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return &registryFile{Version: 1}, nil
	}
	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.ErrRegistryCorrupt.Wrap(err)
	}
	return &file, nil
}

// save writes the registry file.
func (r *Registry) save(ctx context.Context, file *registryFile) error {
	return storage.PutJSON(ctx, r.store, RegistryKey, file)
}

// Create issues a new token. It returns the plain credential exactly
// once; only the hash is stored. Token names are unique.
func (r *Registry) Create(ctx context.Context, name string, perms []Permission, spaceIDs []string, ttl time.Duration) (string, *Record, error) {
	if name == "" {
		return "", nil, errors.ErrInvalidInput.WithMessage("token name is required")
	}
	if len(perms) == 0 {
		return "", nil, errors.ErrInvalidInput.WithMessage("at least one permission is required")
	}
	for _, p := range perms {
		if !ValidPermission(p) {
			return "", nil, errors.ErrInvalidInput.WithMessage("unknown permission: " + string(p))
		}
	}

	plain, hash, err := Generate()
	if err != nil {
		return "", nil, err
	}

	record := &Record{
		Hash:        hash,
		Name:        name,
		Permissions: perms,
		SpaceIDs:    spaceIDs,
		CreatedAt:   time.Now().UTC(),
	}
	if ttl > 0 {
		expires := record.CreatedAt.Add(ttl)
		record.ExpiresAt = &expires
	}

	mu := r.locks.Tokens()
	mu.Lock()
	defer mu.Unlock()

	file, err := r.load(ctx)
	if err != nil {
		return "", nil, err
	}
	for _, existing := range file.Tokens {
		if existing.Name == name && !existing.Revoked {
			return "", nil, errors.New(errors.CategoryConflict, "TOKEN_NAME_TAKEN", "token name already in use").WithDetail("name", name)
		}
	}
	file.Tokens = append(file.Tokens, record)

	if err := r.save(ctx, file); err != nil {
		return "", nil, err
	}
	return plain, record, nil
}

// Lookup resolves a credential hash to a usable record.
func (r *Registry) Lookup(ctx context.Context, hash string) (*Record, error) {
	mu := r.locks.Tokens()
	mu.Lock()
	file, err := r.load(ctx)
	mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, record := range file.Tokens {
		if record.Hash != hash {
			continue
		}
		if record.Revoked {
			return nil, errors.ErrTokenRevoked
		}
		if record.Expired(time.Now().UTC()) {
			return nil, errors.ErrTokenExpired
		}
		return record, nil
	}
	return nil, errors.ErrTokenNotFound
}

// Touch updates last_used_at for a hash. Best effort: failures are
// returned for logging but callers do not fail the request on them.
func (r *Registry) Touch(ctx context.Context, hash string) error {
	mu := r.locks.Tokens()
	mu.Lock()
	defer mu.Unlock()

	file, err := r.load(ctx)
	if err != nil {
		return err
	}
	for _, record := range file.Tokens {
		if record.Hash == hash {
			now := time.Now().UTC()
			record.LastUsedAt = &now
			return r.save(ctx, file)
		}
	}
	return nil
}

// List returns every record, including revoked ones.
func (r *Registry) List(ctx context.Context) ([]*Record, error) {
	mu := r.locks.Tokens()
	mu.Lock()
	defer mu.Unlock()

	file, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return file.Tokens, nil
}

// UpdateScope replaces the space scope of the named token.
func (r *Registry) UpdateScope(ctx context.Context, name string, spaceIDs []string) (*Record, error) {
	mu := r.locks.Tokens()
	mu.Lock()
	defer mu.Unlock()

	file, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, record := range file.Tokens {
		if record.Name == name && !record.Revoked {
			record.SpaceIDs = spaceIDs
			if err := r.save(ctx, file); err != nil {
				return nil, err
			}
			return record, nil
		}
	}
	return nil, errors.ErrTokenNotFound.WithDetail("name", name)
}

// Revoke soft-deletes the named token.
func (r *Registry) Revoke(ctx context.Context, name string) error {
	mu := r.locks.Tokens()
	mu.Lock()
	defer mu.Unlock()

	file, err := r.load(ctx)
	if err != nil {
		return err
	}
	for _, record := range file.Tokens {
		if record.Name == name && !record.Revoked {
			record.Revoked = true
			return r.save(ctx, file)
		}
	}
	return errors.ErrTokenNotFound.WithDetail("name", name)
}
