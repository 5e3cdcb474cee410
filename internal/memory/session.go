package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrCheckedOut = errors.New("record already checked out")
	ErrExists     = errors.New("record already exists")
	ErrClosed     = errors.New("session closed")
)

type slot struct {
	ns  Namespace
	key string
}

type entry struct {
	rec any
	// canon is the canonical encoding at checkout; nil for records created
	// during the session.
	canon []byte
	fresh bool
}

// Session hands out each persisted record at most once per tick. Records are
// mutated in place and written back by Commit or Close; a record whose
// encoding did not change is not written.
type Session struct {
	ctx    context.Context
	store  Store
	out    map[slot]*entry
	closed bool
	writes int
}

func NewSession(ctx context.Context, store Store) *Session {
	return &Session{ctx: ctx, store: store, out: map[slot]*entry{}}
}

func checkout[T record](s *Session, ns Namespace, key string) (*T, error) {
	if s.closed {
		return nil, ErrClosed
	}
	k := slot{ns: ns, key: key}
	if _, ok := s.out[k]; ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrCheckedOut, ns, key)
	}
	raw, _, err := s.store.Get(s.ctx, ns, key)
	if err != nil {
		return nil, fmt.Errorf("load %s/%s: %w", ns, key, err)
	}
	v, err := Decode[T](raw)
	if err != nil {
		return nil, fmt.Errorf("load %s/%s: %w", ns, key, err)
	}
	canon, err := Encode(v)
	if err != nil {
		return nil, err
	}
	s.out[k] = &entry{rec: v, canon: canon}
	return v, nil
}

// Agent checks out the record of the named agent. Absent records load as
// defaults and are not written unless they change.
func (s *Session) Agent(name string) (*AgentRecord, error) {
	return checkout[AgentRecord](s, Creeps, name)
}

// Room checks out the record of the named room.
func (s *Session) Room(name string) (*RoomRecord, error) {
	return checkout[RoomRecord](s, Rooms, name)
}

// CreateAgent registers a new agent record that is written on commit. It fails
// when a record for name already exists in the store or the session.
func (s *Session) CreateAgent(name string, rec *AgentRecord) error {
	if s.closed {
		return ErrClosed
	}
	k := slot{ns: Creeps, key: name}
	if _, ok := s.out[k]; ok {
		return fmt.Errorf("%w: %s/%s", ErrCheckedOut, Creeps, name)
	}
	if _, found, err := s.store.Get(s.ctx, Creeps, name); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: %s/%s", ErrExists, Creeps, name)
	}
	s.out[k] = &entry{rec: rec, fresh: true}
	return nil
}

// Discard drops a checked-out record without writing it.
func (s *Session) Discard(ns Namespace, key string) {
	delete(s.out, slot{ns: ns, key: key})
}

// Held reports whether ns/key is currently checked out.
func (s *Session) Held(ns Namespace, key string) bool {
	_, ok := s.out[slot{ns: ns, key: key}]
	return ok
}

// HeldKeys lists the keys of ns currently checked out, including records
// created this session, in ascending order.
func (s *Session) HeldKeys(ns Namespace) []string {
	var out []string
	for k := range s.out {
		if k.ns == ns {
			out = append(out, k.key)
		}
	}
	sort.Strings(out)
	return out
}

// Commit writes back one record and releases it.
func (s *Session) Commit(ns Namespace, key string) error {
	k := slot{ns: ns, key: key}
	e, ok := s.out[k]
	if !ok {
		return nil
	}
	delete(s.out, k)
	return s.flush(k, e)
}

func (s *Session) flush(k slot, e *entry) error {
	var (
		b   []byte
		err error
	)
	switch r := e.rec.(type) {
	case *AgentRecord:
		b, err = Encode(r)
	case *RoomRecord:
		b, err = Encode(r)
	default:
		return fmt.Errorf("commit %s/%s: unsupported record %T", k.ns, k.key, e.rec)
	}
	if err != nil {
		return fmt.Errorf("commit %s/%s: %w", k.ns, k.key, err)
	}
	if !e.fresh && bytes.Equal(b, e.canon) {
		return nil
	}
	if err := s.store.Set(s.ctx, k.ns, k.key, b); err != nil {
		return fmt.Errorf("commit %s/%s: %w", k.ns, k.key, err)
	}
	s.writes++
	return nil
}

// Close commits every outstanding record in a stable order and ends the
// session. All commit errors are returned joined.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	keys := make([]slot, 0, len(s.out))
	for k := range s.out {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ns != keys[j].ns {
			return keys[i].ns < keys[j].ns
		}
		return keys[i].key < keys[j].key
	})
	var errs []error
	for _, k := range keys {
		if err := s.flush(k, s.out[k]); err != nil {
			errs = append(errs, err)
		}
	}
	s.out = map[slot]*entry{}
	return errors.Join(errs...)
}

// Writes is the number of records written so far.
func (s *Session) Writes() int { return s.writes }
