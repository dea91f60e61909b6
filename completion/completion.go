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
Package completion implements the durable "done" markers that make pipeline
passes resumable. A marker at <namespace>/completed/<sampleID> in the object
store is the sole source of truth for "this sample fully succeeded"; markers
are written once after a successful run and never retracted by the pipeline.
*/
package completion

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/inconshreveable/log15"
	gocache "github.com/patrickmn/go-cache"

	"github.com/tanlabcode/PANGEA/objectstore"
)

const completedPrefix = "completed/"

// Store tracks completion markers in an object store, with a local cache so
// hot loops don't pay a remote round-trip per sample. The cache only ever
// holds positive results: a marker can appear behind our back (another
// invocation finishing a sample) but can never disappear, so cached trues
// stay correct and cache misses fall through to the remote store.
type Store struct {
	log15.Logger
	store     objectstore.Store
	namespace string
	cache     *gocache.Cache
}

// New creates a marker Store namespaced under the given prefix.
func New(store objectstore.Store, namespace string, logger log15.Logger) *Store {
	return &Store{
		Logger:    logger.New("namespace", namespace),
		store:     store,
		namespace: strings.TrimSuffix(namespace, "/"),
		cache:     gocache.New(gocache.NoExpiration, 0),
	}
}

// Key returns the object store key of the given sample's marker.
func (s *Store) Key(sampleID string) string {
	return s.namespace + "/" + completedPrefix + sampleID
}

// Sync fetches all existing markers into the local cache. This is an
// optimisation, not a correctness requirement; IsComplete works without it.
func (s *Store) Sync(ctx context.Context) error {
	infos, err := s.store.List(ctx, s.namespace+"/"+completedPrefix)
	if err != nil {
		return err
	}

	for _, info := range infos {
		id := strings.TrimPrefix(info.Key, s.namespace+"/"+completedPrefix)
		if id == "" {
			continue
		}
		s.cache.Set(id, true, gocache.NoExpiration)
	}

	s.Info("synced completion markers", "count", len(infos))
	return nil
}

// IsComplete tells you if the given sample has a completion marker.
func (s *Store) IsComplete(ctx context.Context, sampleID string) (bool, error) {
	if _, found := s.cache.Get(sampleID); found {
		return true, nil
	}

	_, err := s.store.Stat(ctx, s.Key(sampleID))
	if err != nil {
		if errors.Is(err, objectstore.ErrNotExists) {
			return false, nil
		}
		return false, err
	}

	s.cache.Set(sampleID, true, gocache.NoExpiration)
	return true, nil
}

// MarkComplete writes the given sample's marker with the given payload.
// Idempotent: writing twice is harmless, last write wins.
func (s *Store) MarkComplete(ctx context.Context, sampleID string, payload []byte) error {
	err := s.store.Put(ctx, s.Key(sampleID), bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return err
	}

	s.cache.Set(sampleID, true, gocache.NoExpiration)
	s.Debug("marked complete", "sample", sampleID)
	return nil
}
