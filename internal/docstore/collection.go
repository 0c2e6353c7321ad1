package docstore

import (
	"encoding/json"
	"maps"
	"slices"
)

// Option configures a Collection
type Option[K comparable, V any] func(*Collection[K, V])

// AutoIncrement makes Add and Put assign the next sequence number to documents
// whose key is the zero value. seqOf maps explicit keys back onto the sequence
// so later assignments never collide with them.
func AutoIncrement[K comparable, V any](seqOf func(K) int64, assign func(v *V, seq int64)) Option[K, V] {
	return func(c *Collection[K, V]) {
		c.seqOf = seqOf
		c.assign = assign
	}
}

// Index adds a named secondary index. extract returns false for documents that
// have no value for the index; those are left out of it. Values must be comparable.
func Index[K comparable, V any](name string, extract func(V) (any, bool)) Option[K, V] {
	return func(c *Collection[K, V]) {
		c.indexes[name] = &index[K, V]{
			extract: extract,
			entries: make(map[any]map[K]struct{}),
		}
	}
}

type index[K comparable, V any] struct {
	extract func(V) (any, bool)
	entries map[any]map[K]struct{}
}

func (ix *index[K, V]) add(k K, v V) {
	val, ok := ix.extract(v)
	if !ok {
		return
	}
	set, ok := ix.entries[val]
	if !ok {
		set = make(map[K]struct{})
		ix.entries[val] = set
	}
	set[k] = struct{}{}
}

func (ix *index[K, V]) remove(k K, v V) {
	val, ok := ix.extract(v)
	if !ok {
		return
	}
	if set, ok := ix.entries[val]; ok {
		delete(set, k)
		if len(set) == 0 {
			delete(ix.entries, val)
		}
	}
}

// Collection holds documents of one type keyed by K
type Collection[K comparable, V any] struct {
	name    string
	keyOf   func(V) K
	compare func(a, b K) int
	seqOf   func(K) int64
	assign  func(*V, int64)
	seq     int64
	rows    map[K]V
	indexes map[string]*index[K, V]
}

// NewCollection registers a collection named name with s. keyOf extracts the
// primary key and compare orders keys for All and Where.
func NewCollection[K comparable, V any](s *Store, name string, keyOf func(V) K, compare func(a, b K) int, opts ...Option[K, V]) *Collection[K, V] {
	c := &Collection[K, V]{
		name:    name,
		keyOf:   keyOf,
		compare: compare,
		rows:    make(map[K]V),
		indexes: make(map[string]*index[K, V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	s.register(c)
	return c
}

// Add inserts v and returns its key. It fails if the key is already taken.
func (c *Collection[K, V]) Add(tx *Tx, v V) (K, error) {
	var zero K
	if err := tx.check(true); err != nil {
		return zero, err
	}
	k := c.prepare(&v)
	if _, exists := c.rows[k]; exists {
		return zero, ErrKeyExists
	}
	c.insert(k, v)
	return k, nil
}

// Put inserts or replaces v and returns its key
func (c *Collection[K, V]) Put(tx *Tx, v V) (K, error) {
	var zero K
	if err := tx.check(true); err != nil {
		return zero, err
	}
	k := c.prepare(&v)
	if old, exists := c.rows[k]; exists {
		c.unindex(k, old)
	}
	c.insert(k, v)
	return k, nil
}

// Get returns the document stored under k
func (c *Collection[K, V]) Get(tx *Tx, k K) (V, bool) {
	var zero V
	if tx.check(false) != nil {
		return zero, false
	}
	v, ok := c.rows[k]
	return v, ok
}

// Delete removes the document stored under k. Missing keys are ignored.
func (c *Collection[K, V]) Delete(tx *Tx, k K) error {
	if err := tx.check(true); err != nil {
		return err
	}
	if old, ok := c.rows[k]; ok {
		c.unindex(k, old)
		delete(c.rows, k)
	}
	return nil
}

// DeleteWhere removes every document whose index value equals value
func (c *Collection[K, V]) DeleteWhere(tx *Tx, name string, value any) (int, error) {
	if err := tx.check(true); err != nil {
		return 0, err
	}
	keys, err := c.lookup(name, value)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		c.unindex(k, c.rows[k])
		delete(c.rows, k)
	}
	return len(keys), nil
}

// All returns every document in key order
func (c *Collection[K, V]) All(tx *Tx) []V {
	if tx.check(false) != nil {
		return nil
	}
	keys := slices.Collect(maps.Keys(c.rows))
	slices.SortFunc(keys, c.compare)
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.rows[k])
	}
	return out
}

// Where returns the documents whose index value equals value, in key order
func (c *Collection[K, V]) Where(tx *Tx, name string, value any) ([]V, error) {
	if err := tx.check(false); err != nil {
		return nil, err
	}
	keys, err := c.lookup(name, value)
	if err != nil {
		return nil, err
	}
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.rows[k])
	}
	return out, nil
}

// Count returns the number of documents
func (c *Collection[K, V]) Count(tx *Tx) int {
	if tx.check(false) != nil {
		return 0
	}
	return len(c.rows)
}

// Clear removes every document. The sequence is kept so keys are never reused.
func (c *Collection[K, V]) Clear(tx *Tx) error {
	if err := tx.check(true); err != nil {
		return err
	}
	c.rows = make(map[K]V)
	c.reindex()
	return nil
}

func (c *Collection[K, V]) prepare(v *V) K {
	k := c.keyOf(*v)
	if c.assign == nil {
		return k
	}
	var zero K
	if k == zero {
		c.seq++
		c.assign(v, c.seq)
		return c.keyOf(*v)
	}
	if n := c.seqOf(k); n > c.seq {
		c.seq = n
	}
	return k
}

func (c *Collection[K, V]) insert(k K, v V) {
	c.rows[k] = v
	for _, ix := range c.indexes {
		ix.add(k, v)
	}
}

func (c *Collection[K, V]) unindex(k K, v V) {
	for _, ix := range c.indexes {
		ix.remove(k, v)
	}
}

func (c *Collection[K, V]) lookup(name string, value any) ([]K, error) {
	ix, ok := c.indexes[name]
	if !ok {
		return nil, ErrNoIndex
	}
	keys := slices.Collect(maps.Keys(ix.entries[value]))
	slices.SortFunc(keys, c.compare)
	return keys, nil
}

func (c *Collection[K, V]) reindex() {
	for _, ix := range c.indexes {
		ix.entries = make(map[any]map[K]struct{})
		for k, v := range c.rows {
			ix.add(k, v)
		}
	}
}

func (c *Collection[K, V]) collectionName() string {
	return c.name
}

func (c *Collection[K, V]) checkpoint() func() {
	rows := maps.Clone(c.rows)
	seq := c.seq
	return func() {
		c.rows = rows
		c.seq = seq
		c.reindex()
	}
}

type collectionSnapshot[V any] struct {
	Seq  int64 `json:"seq"`
	Rows []V   `json:"rows"`
}

func (c *Collection[K, V]) snapshot() (json.RawMessage, error) {
	return json.Marshal(collectionSnapshot[V]{Seq: c.seq, Rows: c.All(&Tx{})})
}

func (c *Collection[K, V]) restore(data json.RawMessage) error {
	var snap collectionSnapshot[V]
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	c.rows = make(map[K]V, len(snap.Rows))
	c.seq = snap.Seq
	for _, v := range snap.Rows {
		k := c.prepare(&v)
		c.rows[k] = v
	}
	c.reindex()
	return nil
}
