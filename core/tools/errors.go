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

package tools

import (
	"github.com/live-memory-project/live-memory/pkg/errors"
	"github.com/live-memory-project/live-memory/pkg/types"
)

// ResultFromError maps a domain error onto the envelope status codes.
func ResultFromError(err error) *types.Result {
	if err == nil {
		return types.OK(nil)
	}

	var lmErr *errors.Error
	if !errors.As(err, &lmErr) {
		return types.Errorf(err.Error())
	}

	switch lmErr.Category {
	case errors.CategoryNotFound:
		return types.Failure(types.StatusNotFound, lmErr.Message)
	case errors.CategoryUnauthorized:
		return types.Failure(types.StatusForbidden, lmErr.Message)
	case errors.CategoryConflict:
		if errors.Is(err, errors.ErrSpaceAlreadyExists) {
			return types.Failure(types.StatusAlreadyExists, lmErr.Message)
		}
		return types.Failure(types.StatusConflict, lmErr.Message)
	default:
		return types.Errorf(lmErr.Message)
	}
}
