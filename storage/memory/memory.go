// Package memory provides an in-process fulfillment store, used for tests
// and the "memory" storage mode. State goes through the same JSON
// serialization as the durable engines.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/eluv-io/errors-go"

	"handoffd/fulfillment"
)

type Store struct {
	mu    sync.Mutex
	state []byte
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Load(_ context.Context) ([]*fulfillment.Fulfillment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil, nil
	}
	var records []*fulfillment.Fulfillment
	if err := json.Unmarshal(s.state, &records); err != nil {
		return nil, errors.E("load state", errors.K.Invalid, err)
	}
	return records, nil
}

func (s *Store) Save(_ context.Context, records []*fulfillment.Fulfillment) error {
	data, err := json.Marshal(records)
	if err != nil {
		return errors.E("save state", errors.K.Invalid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = data
	return nil
}
