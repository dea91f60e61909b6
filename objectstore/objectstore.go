// Copyright © 2026 The PANGEA Authors.
//
//  This file is part of pangea.
//
//  pangea is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  pangea is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with pangea. If not, see <http://www.gnu.org/licenses/>.

/*
Package objectstore provides durable blob storage addressed by key, for
completion markers and pipeline products. The real implementation talks to an
S3-compatible store; a directory-backed implementation exists for tests and
single-host deployments.
*/
package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotExists is returned by Get and Stat when no object exists at the
// requested key.
var ErrNotExists = errors.New("object does not exist")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the durable blob storage contract the pipeline relies on: put,
// get, stat, list and delete by key. Keys are slash-separated paths; List
// takes a key prefix. Implementations must be safe for concurrent use by
// pipeline runs working on distinct samples.
type Store interface {
	// Put stores size bytes read from r at the given key, overwriting any
	// existing object there (last write wins).
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// PutFile stores the contents of the local file at path at the given
	// key.
	PutFile(ctx context.Context, key string, path string) error

	// Get returns a reader for the object at key, or ErrNotExists.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Stat returns info about the object at key, or ErrNotExists.
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// List returns info for every object whose key begins with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Delete removes the object at key; deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error
}
