// Package store persists per-player death counts as a flat JSON
// object on disk. Every update rewrites the whole file; there is
// exactly one writer (the event consumer).
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the store. A missing file is an empty store. An
// unparseable file is also treated as an empty store so the process
// can come up, but that wipes every death count: the corrupt file is
// set aside as <path>.corrupt and the loss is logged loudly so it is
// recoverable by hand.
func (s *Store) Load() (map[string]int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("read player store: %w", err)
	}

	counts := map[string]int{}
	if err := json.Unmarshal(data, &counts); err != nil {
		quarantine := s.path + ".corrupt"
		log.Printf("ERROR: player store %s is unparseable (%v); resetting all death counts, original kept at %s", s.path, err, quarantine)
		if renameErr := os.Rename(s.path, quarantine); renameErr != nil {
			log.Printf("ERROR: could not quarantine corrupt store: %v", renameErr)
		}
		return map[string]int{}, nil
	}
	return counts, nil
}

// SetCount records one player's death count with a full
// read-modify-overwrite, matching the single-writer contract.
func (s *Store) SetCount(name string, deaths int) error {
	counts, err := s.Load()
	if err != nil {
		return err
	}
	counts[name] = deaths
	return s.save(counts)
}

// Clear resets the store to an empty object.
func (s *Store) Clear() error {
	return s.save(map[string]int{})
}

func (s *Store) save(counts map[string]int) error {
	data, err := json.MarshalIndent(counts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode player store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write player store: %w", err)
	}
	return nil
}
