package fulfillment

import (
	"context"
	"strings"
	"sync"

	elog "github.com/eluv-io/log-go"
	"github.com/google/uuid"

	"handoffd/clock"
)

var log = elog.Get("/hd/fulfillment")

// Store persists the full record collection under one well-known key. The
// collection is read once at startup and rewritten wholesale on every
// mutation.
type Store interface {
	Load(ctx context.Context) ([]*Fulfillment, error)
	Save(ctx context.Context, records []*Fulfillment) error
}

// Repository owns the fulfillment collection and is the sole arbiter of
// transition legality. A single mutex is the serialization point for all
// checkpoint operations, so the exactly-once guarantee on the consumed
// flags holds even under concurrent callers.
type Repository struct {
	mu        sync.Mutex
	store     Store
	hasher    SecretHasher
	clock     clock.Clock
	newId     func() string
	newSecret func() (string, error)

	records []*Fulfillment
	subs    map[int]chan []*Fulfillment
	nextSub int
}

type Option func(*Repository)

// WithClock overrides the system clock (useful for tests).
func WithClock(c clock.Clock) Option {
	return func(r *Repository) { r.clock = c }
}

// WithIdGenerator overrides the id/token source (useful for tests).
func WithIdGenerator(fn func() string) Option {
	return func(r *Repository) { r.newId = fn }
}

// WithSecretGenerator overrides the collection secret source (useful for tests).
func WithSecretGenerator(fn func() (string, error)) Option {
	return func(r *Repository) { r.newSecret = fn }
}

// NewRepository loads the persisted collection from the store. Malformed or
// unreadable state starts the repository empty rather than failing.
func NewRepository(ctx context.Context, store Store, opts ...Option) *Repository {
	r := &Repository{
		store:     store,
		hasher:    NewSecretHasher(),
		clock:     clock.NewSystem(),
		newId:     uuid.NewString,
		newSecret: newCollectionSecret,
		subs:      make(map[int]chan []*Fulfillment),
	}
	for _, opt := range opts {
		opt(r)
	}

	records, err := store.Load(ctx)
	if err != nil {
		log.Warn("unable to load persisted state, starting empty", "err", err)
		records = nil
	}
	r.records = records
	log.Info("repository ready", "records", len(r.records))
	return r
}

// Create registers a new handoff in Pending state. The returned plaintext
// secret is disclosed here exactly once and is never retrievable afterward.
func (r *Repository) Create(ctx context.Context, itemDescription, senderName, intermediaryName, recipientName string) (record *Fulfillment, secret string, err error) {
	if secret, err = r.newSecret(); err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	f := &Fulfillment{
		Id:               r.newId(),
		ItemDescription:  itemDescription,
		SenderName:       senderName,
		IntermediaryName: intermediaryName,
		RecipientName:    recipientName,
		Status:           StatusPending,
		SecretHash:       r.hasher.Hash(secret),
		CreatedAt:        now,
		Timeline:         newTimeline(now),
	}
	// most-recent-first
	r.records = append([]*Fulfillment{f}, r.records...)
	r.persistAndNotify(ctx)

	log.Debug("created fulfillment", "id", f.Id)
	return f.clone(), secret, nil
}

// ConfirmDropOff passes the drop-off checkpoint. The token is the
// fulfillment id as scanned or typed by the intermediary; it is single-use.
func (r *Repository) ConfirmDropOff(ctx context.Context, token string) Result {
	id := NormalizeToken(token)

	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.find(id)
	switch {
	case f == nil:
		return failure(KindNotFound, "no fulfillment matches this transfer token")
	case f.TransferTokenConsumed:
		return failure(KindTokenAlreadyUsed, "transfer token has already been used")
	case f.Status != StatusPending:
		return failure(KindInvalidState, "fulfillment is not pending")
	}

	f.Status = StatusInTransit
	f.TransferTokenConsumed = true
	f.markStage(StageDroppedOff, r.clock.Now())
	r.persistAndNotify(ctx)

	log.Debug("drop-off confirmed", "id", f.Id)
	return success("drop-off confirmed", f.clone())
}

// ConfirmCollection passes the final checkpoint by presenting the 6-digit
// collection secret. The secret is single-use; verification compares hashes
// only.
func (r *Repository) ConfirmCollection(ctx context.Context, id, suppliedSecret string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.find(id)
	switch {
	case f == nil:
		return failure(KindNotFound, "fulfillment not found")
	case f.SecretConsumed:
		return failure(KindSecretAlreadyUsed, "collection secret has already been used")
	case f.Status != StatusInTransit:
		return failure(KindInvalidState, "item has not yet been dropped off")
	case r.hasher.Hash(strings.TrimSpace(suppliedSecret)) != f.SecretHash:
		return failure(KindSecretMismatch, "collection secret does not match")
	}

	f.Status = StatusCompleted
	f.SecretConsumed = true
	f.markStage(StageCollected, r.clock.Now())
	r.persistAndNotify(ctx)

	log.Debug("collection confirmed", "id", f.Id)
	return success("collection confirmed", f.clone())
}

// AdvanceStatusUnchecked is the administrative escape hatch: it moves the
// status and completes the matching timeline stage without consuming the
// transfer token or the collection secret.
func (r *Repository) AdvanceStatusUnchecked(ctx context.Context, id string, newStatus Status) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.find(id)
	if f == nil {
		return failure(KindNotFound, "fulfillment not found")
	}

	var stage Stage
	switch newStatus {
	case StatusInTransit:
		stage = StageDroppedOff
	case StatusCompleted:
		stage = StageCollected
	default:
		return failure(KindInvalidState, "cannot advance to status "+string(newStatus))
	}

	f.Status = newStatus
	f.markStage(stage, r.clock.Now())
	r.persistAndNotify(ctx)

	log.Warn("status advanced without checkpoint", "id", f.Id, "status", newStatus)
	return success("status advanced", f.clone())
}

// Delete removes the record unconditionally, regardless of its state.
func (r *Repository) Delete(ctx context.Context, id string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, f := range r.records {
		if f.Id == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			r.persistAndNotify(ctx)
			return success("fulfillment deleted", nil)
		}
	}
	return failure(KindNotFound, "fulfillment not found")
}

// Get returns a copy of one record.
func (r *Repository) Get(id string) (*Fulfillment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f := r.find(id); f != nil {
		return f.clone(), true
	}
	return nil, false
}

// List returns copies of all records, most-recent-first.
func (r *Repository) List() []*Fulfillment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Subscribe registers for the full record list after every mutation. The
// channel holds the latest snapshot only; slow consumers see the most
// recent state, not every intermediate one. The returned func cancels the
// subscription.
func (r *Repository) Subscribe() (<-chan []*Fulfillment, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan []*Fulfillment, 1)
	r.subs[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (r *Repository) find(id string) *Fulfillment {
	for _, f := range r.records {
		if f.Id == id {
			return f
		}
	}
	return nil
}

func (r *Repository) snapshot() []*Fulfillment {
	out := make([]*Fulfillment, len(r.records))
	for i, f := range r.records {
		out[i] = f.clone()
	}
	return out
}

// persistAndNotify writes the collection wholesale, then fans the snapshot
// out to subscribers. The write happens-before any notification. Persistence
// failures are logged, not surfaced: the in-memory collection stays
// authoritative for the session.
func (r *Repository) persistAndNotify(ctx context.Context) {
	snapshot := r.snapshot()
	if err := r.store.Save(ctx, snapshot); err != nil {
		log.Error("persist failed", err)
	}
	for _, ch := range r.subs {
		select {
		case ch <- snapshot:
		default:
			// replace the stale snapshot
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
