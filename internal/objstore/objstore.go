// Package objstore keeps track of the protocol objects belonging to a
// single connection.
package objstore

import (
	"fmt"

	"deedles.dev/cascade/wire"
	"golang.org/x/exp/maps"
)

// IDInUseError is returned by Add when an object with the same ID is
// already in the store.
type IDInUseError struct {
	ID uint32
}

func (err IDInUseError) Error() string {
	return fmt.Sprintf("object ID %v is already in use", err.ID)
}

type Store struct {
	objects map[uint32]wire.Object
	nextID  uint32
}

// New returns a store that allocates IDs for objects without one
// starting at start.
func New(start uint32) *Store {
	return &Store{
		objects: make(map[uint32]wire.Object),
		nextID:  start,
	}
}

func (s *Store) Add(obj wire.Object) error {
	id := obj.ID()
	if id == 0 {
		id = s.nextID
		obj.SetID(id)
		s.nextID++
	}

	if _, ok := s.objects[id]; ok {
		return IDInUseError{ID: id}
	}

	s.objects[id] = obj
	return nil
}

func (s *Store) Get(id uint32) wire.Object {
	return s.objects[id]
}

func (s *Store) Len() int {
	return len(s.objects)
}

// Delete removes the object with the given ID, calling its Delete
// method. It reports whether the object was present.
func (s *Store) Delete(id uint32) bool {
	obj, ok := s.objects[id]
	if !ok {
		return false
	}

	delete(s.objects, id)
	obj.Delete()
	return true
}

// Clear deletes every object in the store.
func (s *Store) Clear() {
	objects := maps.Clone(s.objects)
	clear(s.objects)
	for _, obj := range objects {
		obj.Delete()
	}
}
