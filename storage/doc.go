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

// Package storage provides the typed object-store facade that holds
// all durable state: space metadata, rules, live notes, bank files,
// the synthesis, the token registry, and backups.
//
// Two implementations exist: MinioStore against any S3-compatible
// bucket (path-style addressing, dual-signature dispatch for vendors
// that split signature families between data and metadata requests),
// and MemoryStore for tests. Reads after writes are assumed
// read-your-writes; transient failures are retried with bounded
// exponential backoff inside the facade.
package storage
