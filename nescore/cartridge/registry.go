package cartridge

import (
	"log/slog"
	"sort"
)

// Constructor builds a mapper from the full header, not just the section
// sizes, so boards can honor battery, trainer and submapper information.
type Constructor func(h Header, rom ROM) (Mapper, error)

// Provider supplies mappers that live outside this package.
type Provider interface {
	Supports(id uint16, submapper uint8) bool
	New(h Header, rom ROM) (Mapper, error)
}

// Registry resolves mapper numbers to constructors. Lookups never fall
// back to a different board: an unknown id is an error.
type Registry struct {
	constructors map[uint16]Constructor
	providers    []Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[uint16]Constructor)}
}

// DefaultRegistry returns a registry with the built-in boards.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(0, NewNROM)
	r.Register(2, NewUxROM)
	r.Register(3, NewCNROM)
	r.Register(7, NewAxROM)
	return r
}

// Register installs ctor for id, replacing any previous entry.
func (r *Registry) Register(id uint16, ctor Constructor) {
	r.constructors[id] = ctor
}

// AddProvider appends an external provider. Built-in constructors are
// consulted first, then providers in registration order.
func (r *Registry) AddProvider(p Provider) {
	r.providers = append(r.providers, p)
}

// Supported lists the built-in mapper ids in ascending order.
func (r *Registry) Supported() []uint16 {
	ids := make([]uint16, 0, len(r.constructors))
	for id := range r.constructors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// New constructs the mapper named by h.Mapper and resets it to power-on state.
func (r *Registry) New(h Header, rom ROM) (Mapper, error) {
	ctor, ok := r.constructors[h.Mapper]
	if !ok {
		for _, p := range r.providers {
			if p.Supports(h.Mapper, h.Submapper) {
				ctor = p.New
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, &UnsupportedMapperError{ID: h.Mapper, Submapper: h.Submapper}
	}

	m, err := ctor(h, rom)
	if err != nil {
		return nil, err
	}
	m.Reset(PowerOn)

	slog.Debug("Mapper created", "id", h.Mapper, "submapper", h.Submapper, "name", m.Name())
	return m, nil
}
