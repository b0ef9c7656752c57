package schema

import "sync"

// Actor is the minimal view of a record acting as the current session
// principal. Implemented by record.Record.
type Actor interface {
	TypeName() string
	Get(field string) any
}

// OwnerProvider is the capability an owner type exposes: a process-scoped
// notion of who is acting now, used as the default owner for owned-record
// queries when no explicit owner id is supplied.
type OwnerProvider interface {
	CurrentActor() Actor
	SetCurrentActor(Actor)
}

// ActorSession is the default OwnerProvider implementation. Safe for
// concurrent use.
type ActorSession struct {
	mu    sync.RWMutex
	actor Actor
}

func NewActorSession() *ActorSession {
	return &ActorSession{}
}

func (s *ActorSession) CurrentActor() Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actor
}

func (s *ActorSession) SetCurrentActor(actor Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actor = actor
}
