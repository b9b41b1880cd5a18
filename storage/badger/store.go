// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/lectern/storage"
	"github.com/timshannon/badgerhold/v4"
)

const (
	defaultSequenceBandwidth = 100
	chatSequenceKey          = "seq:chat"
)

// Store wraps a badgerhold store shared by all repositories.
type Store struct {
	store   *badgerhold.Store
	chatSeq *badger.Sequence
	logger  *slog.Logger
	mu      sync.Mutex
	closed  bool
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenStore opens a database at the specified path, creating the directory
// if it doesn't exist. With inMemory set the path is ignored.
func OpenStore(filePath string, inMemory bool) (*Store, error) {
	opts := badgerhold.DefaultOptions

	if inMemory {
		opts.Dir = ""
		opts.ValueDir = ""
		opts.InMemory = true
	} else {
		if err := ensureDir(filePath); err != nil {
			return nil, err
		}
		opts.Dir = filePath
		opts.ValueDir = filePath
	}

	logger := slog.Default().With("component", "badger")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	store, err := badgerhold.Open(opts)
	if err != nil {
		return nil, err
	}

	seq, err := store.Badger().GetSequence([]byte(chatSequenceKey), defaultSequenceBandwidth)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Store{
		store:   store,
		chatSeq: seq,
		logger:  logger,
	}, nil
}

func ensureDir(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(filePath, 0755); err != nil {
			return err
		}
		info, err = os.Stat(filePath)
		if err != nil {
			return err
		}
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filePath)
	}
	return nil
}

// Close releases the sequence and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.chatSeq.Release(); err != nil {
		s.logger.Warn("failed to release chat sequence", "err", err)
	}
	return s.store.Close()
}

// IsClosed returns true if the database is closed.
func (s *Store) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) checkOpen() error {
	if s.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// nextChatSeq returns the next chat message sequence number.
// Badger sequences start at zero; one is added so zero means unassigned.
func (s *Store) nextChatSeq() (uint64, error) {
	n, err := s.chatSeq.Next()
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// translate maps badgerhold errors onto storage errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badgerhold.ErrNotFound):
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	case errors.Is(err, badgerhold.ErrKeyExists):
		return fmt.Errorf("%w: %w", storage.ErrDuplicateKey, err)
	}
	return err
}
