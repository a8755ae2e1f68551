// Package acl implements the access service of the ledger. The grants of a
// credential are stored in the snapshot as a permission that maps a rule to
// the set of identities allowed to use it.
//
// The service is created with the identity of the contract that owns the
// values. This identity is implicitly granted every rule so that the
// contract can always evaluate the values it holds.
package acl

import (
	"sort"

	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/store"
	"go.dedis.ch/sealbid/serde"
	"go.dedis.ch/sealbid/serde/cbor"
	"golang.org/x/xerrors"
)

// permission is the persisted form of the grants of a credential.
type permission struct {
	Rules map[string][]string `cbor:"1,keyasint"`
}

func newPermission() permission {
	return permission{
		Rules: make(map[string][]string),
	}
}

// evolve adds the identities to the rule, keeping the list sorted and free of
// duplicates.
func (p permission) evolve(rule string, idents ...string) {
	set := make(map[string]struct{})

	for _, ident := range p.Rules[rule] {
		set[ident] = struct{}{}
	}

	for _, ident := range idents {
		set[ident] = struct{}{}
	}

	list := make([]string, 0, len(set))
	for ident := range set {
		list = append(list, ident)
	}

	sort.Strings(list)

	p.Rules[rule] = list
}

func (p permission) match(rule string, idents ...string) bool {
	granted := p.Rules[rule]

	for _, ident := range idents {
		i := sort.SearchStrings(granted, ident)
		if i < len(granted) && granted[i] == ident {
			return true
		}
	}

	return false
}

// Service is an implementation of an access service that will allow one to
// store and verify access for a group of identities.
//
// - implements access.Service
type Service struct {
	self    string
	context serde.Context
}

// NewService creates a new service where the given identity is implicitly
// granted every credential.
func NewService(self access.Identity) (Service, error) {
	text, err := self.MarshalText()
	if err != nil {
		return Service{}, xerrors.Errorf("failed to marshal identity: %v", err)
	}

	return Service{
		self:    string(text),
		context: cbor.NewContext(),
	}, nil
}

// Match implements access.Service. It returns nil if the group of identities
// have access to the given credentials, otherwise a meaningful error on the
// reason it does not have access.
func (srvc Service) Match(store store.Readable, creds access.Credential,
	idents ...access.Identity) error {

	if len(idents) == 0 {
		return xerrors.New("expect at least one identity")
	}

	texts, err := marshalIdentities(idents)
	if err != nil {
		return err
	}

	for _, text := range texts {
		if text == srvc.self {
			return nil
		}
	}

	perm, err := srvc.load(store, creds.GetID())
	if err != nil {
		return err
	}

	if !perm.match(creds.GetRule(), texts...) {
		return xerrors.Errorf("rule '%s' not granted to %v", creds.GetRule(), texts)
	}

	return nil
}

// Grant implements access.Service. It updates or create the permission of
// the credential and grants the access to the group of identities.
func (srvc Service) Grant(store store.Snapshot, creds access.Credential,
	idents ...access.Identity) error {

	texts, err := marshalIdentities(idents)
	if err != nil {
		return err
	}

	perm, err := srvc.load(store, creds.GetID())
	if err != nil {
		return err
	}

	perm.evolve(creds.GetRule(), texts...)

	value, err := srvc.context.Marshal(perm)
	if err != nil {
		return xerrors.Errorf("failed to serialize permission: %v", err)
	}

	err = store.Set(creds.GetID(), value)
	if err != nil {
		return xerrors.Errorf("failed to store permission: %v", err)
	}

	return nil
}

func (srvc Service) load(store store.Readable, id []byte) (permission, error) {
	value, err := store.Get(id)
	if err != nil {
		return permission{}, xerrors.Errorf("failed to read permission: %v", err)
	}

	perm := newPermission()

	if value == nil {
		return perm, nil
	}

	err = srvc.context.Unmarshal(value, &perm)
	if err != nil {
		return permission{}, xerrors.Errorf("failed to deserialize permission: %v", err)
	}

	if perm.Rules == nil {
		perm.Rules = make(map[string][]string)
	}

	return perm, nil
}

func marshalIdentities(idents []access.Identity) ([]string, error) {
	texts := make([]string, len(idents))

	for i, ident := range idents {
		text, err := ident.MarshalText()
		if err != nil {
			return nil, xerrors.Errorf("failed to marshal identity: %v", err)
		}

		texts[i] = string(text)
	}

	return texts, nil
}
