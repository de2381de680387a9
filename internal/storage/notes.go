package storage

import (
	"encoding/json"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"
)

func (s *Store) SaveNote(note *Note) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(notesBucket), note.ID, note)
	})
}

func (s *Store) GetNote(id string) (*Note, error) {
	var note Note
	err := s.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(notesBucket), id, &note)
	})
	if err != nil {
		return nil, fmt.Errorf("note %s: %w", id, err)
	}
	return &note, nil
}

// GetAllNotes returns notes sorted by last update, newest first.
func (s *Store) GetAllNotes() ([]*Note, error) {
	var notes []*Note
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(notesBucket).ForEach(func(_ []byte, v []byte) error {
			var note Note
			if err := json.Unmarshal(v, &note); err != nil {
				return nil
			}
			notes = append(notes, &note)
			return nil
		})
	})
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
	return notes, err
}

func (s *Store) DeleteNote(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(notesBucket).Delete([]byte(id))
	})
}

// UpdateNote applies mutate to the stored note inside the write transaction.
// Unlike delete, it fails with ErrNotFound for a missing note.
func (s *Store) UpdateNote(id string, mutate func(*Note)) (*Note, error) {
	var note Note
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(notesBucket)
		if err := getJSON(b, id, &note); err != nil {
			return fmt.Errorf("note %s: %w", id, err)
		}
		mutate(&note)
		return putJSON(b, id, &note)
	})
	if err != nil {
		return nil, err
	}
	return &note, nil
}
