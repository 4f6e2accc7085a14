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

// Package errors provides structured error handling for Live Memory.
//
// Errors carry a category, a machine-readable code, a human-readable
// message, and optional details. Domain services return these errors;
// the tool surface maps categories onto envelope status codes
// (not_found, forbidden, conflict, error) without ever letting an
// error escape the protocol boundary.
//
// Example:
//
//	if meta == nil {
//	    return errors.ErrSpaceNotFound.WithDetail("space_id", spaceID)
//	}
package errors
