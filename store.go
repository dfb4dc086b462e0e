package devguide

import (
	"github.com/couchbase/gocb/v2"
)

// DocumentStore is the slice of the key-value API the retry helpers need.
type DocumentStore interface {
	// Get decodes the document id into valuePtr and returns its CAS.
	Get(id string, valuePtr any) (gocb.Cas, error)

	// Insert creates the document id, failing if it already exists.
	Insert(id string, value any, durability gocb.DurabilityLevel) (gocb.Cas, error)

	// Replace overwrites the document id if its CAS still equals cas.
	// A zero cas replaces unconditionally.
	Replace(id string, value any, cas gocb.Cas) (gocb.Cas, error)
}

// CollectionStore is a DocumentStore backed by a collection.
type CollectionStore struct {
	Collection *gocb.Collection
}

var _ DocumentStore = (*CollectionStore)(nil)

// NewCollectionStore creates a DocumentStore for collection.
func NewCollectionStore(collection *gocb.Collection) *CollectionStore {
	return &CollectionStore{Collection: collection}
}

func (s *CollectionStore) Get(id string, valuePtr any) (gocb.Cas, error) {
	res, err := s.Collection.Get(id, nil)
	if err != nil {
		return 0, err
	}
	if err := res.Content(valuePtr); err != nil {
		return 0, err
	}
	return res.Cas(), nil
}

func (s *CollectionStore) Insert(id string, value any, durability gocb.DurabilityLevel) (gocb.Cas, error) {
	res, err := s.Collection.Insert(id, value, &gocb.InsertOptions{
		DurabilityLevel: durability,
	})
	if err != nil {
		return 0, err
	}
	return res.Cas(), nil
}

func (s *CollectionStore) Replace(id string, value any, cas gocb.Cas) (gocb.Cas, error) {
	res, err := s.Collection.Replace(id, value, &gocb.ReplaceOptions{
		Cas: cas,
	})
	if err != nil {
		return 0, err
	}
	return res.Cas(), nil
}
