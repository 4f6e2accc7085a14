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

package space

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/base64"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/live-memory-project/live-memory/pkg/types"
)

// exportFetchParallelism bounds concurrent object reads during export.
const exportFetchParallelism = 8

// Export packs the whole space prefix into a base64 tar.gz. Read-only.
func (r *Repo) Export(ctx context.Context, spaceID string) (archiveB64 string, objectCount int, err error) {
	if err := r.exists(ctx, spaceID); err != nil {
		return "", 0, err
	}

	infos, err := r.store.List(ctx, types.SpacePrefix(spaceID))
	if err != nil {
		return "", 0, err
	}

	// each goroutine writes a distinct index
	bodies := make([][]byte, len(infos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportFetchParallelism)
	for i, info := range infos {
		g.Go(func() error {
			data, found, err := r.store.Get(gctx, info.Key)
			if err != nil {
				return err
			}
			if !found {
				data = nil
			}
			bodies[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", 0, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for i, info := range infos {
		hdr := &tar.Header{
			Name:    info.Key,
			Mode:    0o644,
			Size:    int64(len(bodies[i])),
			ModTime: info.Modified,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return "", 0, err
		}
		if _, err := tw.Write(bodies[i]); err != nil {
			return "", 0, err
		}
	}
	if err := tw.Close(); err != nil {
		return "", 0, err
	}
	if err := gz.Close(); err != nil {
		return "", 0, err
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), len(infos), nil
}

// ArchiveObjects unpacks a tar.gz produced by Export into key/body
// pairs. Used by restore-style callers.
func ArchiveObjects(archive []byte) (map[string][]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	objects := map[string][]byte{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		var body bytes.Buffer
		if _, err := body.ReadFrom(tr); err != nil {
			return nil, err
		}
		objects[hdr.Name] = body.Bytes()
	}
	return objects, nil
}
