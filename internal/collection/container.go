package collection

import (
	"cmp"
	"iter"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/handiism/moviedata/internal/codec"
	"github.com/handiism/moviedata/internal/model"
)

// entry is one slot of the ordered index. seq records insertion order and
// breaks ties between records whose keys are equal.
type entry struct {
	key   string
	seq   uint64
	movie *model.Movie
}

func compareEntries(a, b entry) int {
	if c := cmp.Compare(a.key, b.key); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// Container holds a set of movies kept in Key order.
//
// Records are tracked by identity: a movie is added once and is then found
// again through its ID. Title and year changes must go through Update so the
// record can be moved to its new position.
//
// A Container has a single owner and is not safe for concurrent use.
type Container struct {
	filename string
	entries  []entry
	byID     map[uuid.UUID]entry
	nextSeq  uint64
	dirty    bool

	registry *codec.Registry
	logger   *slog.Logger
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for save and load reports.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegistry replaces the extension-to-codec table used by Save and Load.
func WithRegistry(r *codec.Registry) Option {
	return func(c *Container) {
		if r != nil {
			c.registry = r
		}
	}
}

// New creates an empty container using the default codec registry.
func New(opts ...Option) *Container {
	c := &Container{
		byID:     make(map[uuid.UUID]entry),
		registry: codec.DefaultRegistry(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add inserts m at its sorted position and marks the container dirty.
// It returns false without changing anything when m is already tracked.
// A movie without an identity is given one.
func (c *Container) Add(m *model.Movie) bool {
	if m == nil {
		return false
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if _, ok := c.byID[m.ID]; ok {
		return false
	}
	c.insert(entry{key: Key(m.Title, m.Year), seq: c.nextSeq, movie: m})
	c.nextSeq++
	c.dirty = true
	return true
}

// AddAll adds each movie in turn and returns how many were added.
func (c *Container) AddAll(movies []*model.Movie) int {
	n := 0
	for _, m := range movies {
		if c.Add(m) {
			n++
		}
	}
	return n
}

// Delete removes m and marks the container dirty. It returns false, leaving
// the dirty flag alone, when m is not tracked.
func (c *Container) Delete(m *model.Movie) bool {
	if m == nil {
		return false
	}
	i, ok := c.index(m)
	if !ok {
		return false
	}
	c.remove(i)
	c.dirty = true
	return true
}

// UpdateOption changes a field that does not affect sort order.
type UpdateOption func(*model.Movie)

// WithMinutes sets the running time during Update.
func WithMinutes(minutes int) UpdateOption {
	return func(m *model.Movie) { m.Minutes = minutes }
}

// WithNotes sets the notes during Update.
func WithNotes(notes string) UpdateOption {
	return func(m *model.Movie) { m.Notes = notes }
}

// Update sets m's title and year, applies opts and marks the container dirty.
// When the title or year changes the record is moved to its new position.
// It returns false when m is not tracked by this container.
func (c *Container) Update(m *model.Movie, title string, year int, opts ...UpdateOption) bool {
	if m == nil {
		return false
	}
	i, ok := c.index(m)
	if !ok {
		c.logger.Warn("update of untracked movie", "id", m.ID, "title", m.Title)
		return false
	}
	m = c.entries[i].movie
	for _, opt := range opts {
		opt(m)
	}
	if title != m.Title || year != m.Year {
		e := c.entries[i]
		c.entries = slices.Delete(c.entries, i, i+1)
		m.Title, m.Year = title, year
		e.key = Key(title, year)
		c.insert(e)
	}
	c.dirty = true
	return true
}

// All yields the movies in sort order. The sequence may be ranged over any
// number of times; each pass reflects the container's contents at that time.
func (c *Container) All() iter.Seq[*model.Movie] {
	return func(yield func(*model.Movie) bool) {
		for _, e := range c.entries {
			if !yield(e.movie) {
				return
			}
		}
	}
}

// Movies returns the movies in sort order as a new slice.
func (c *Container) Movies() []*model.Movie {
	return slices.Collect(c.All())
}

// Len returns the number of movies.
func (c *Container) Len() int {
	return len(c.entries)
}

// MovieAt returns the i-th movie in sort order. It panics if i is out of
// range.
func (c *Container) MovieAt(i int) *model.Movie {
	return c.entries[i].movie
}

// MovieFromID returns the tracked movie with the given identity.
func (c *Container) MovieFromID(id uuid.UUID) (*model.Movie, bool) {
	e, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return e.movie, true
}

// IsDirty reports whether the container changed since it was last saved or
// loaded.
func (c *Container) IsDirty() bool {
	return c.dirty
}

// SetDirty overrides the dirty flag.
func (c *Container) SetDirty(dirty bool) {
	c.dirty = dirty
}

// Clear removes every movie and resets the dirty flag. The filename is
// forgotten as well when clearFilename is true.
func (c *Container) Clear(clearFilename bool) {
	c.entries = nil
	c.byID = make(map[uuid.UUID]entry)
	c.nextSeq = 0
	if clearFilename {
		c.filename = ""
	}
	c.dirty = false
}

// Filename returns the file the container was last saved to or loaded from.
func (c *Container) Filename() string {
	return c.filename
}

// SetFilename sets the file used by Save and Load when they are given no
// path.
func (c *Container) SetFilename(name string) {
	c.filename = name
}

// Formats returns the supported native formats as a file-dialog pattern,
// e.g. "*.mqb *.mpb *.mqt *.mpt".
func (c *Container) Formats() string {
	return c.registry.Formats()
}

// Registry returns the codec table used by Save and Load.
func (c *Container) Registry() *codec.Registry {
	return c.registry
}

func (c *Container) insert(e entry) {
	pos, _ := slices.BinarySearchFunc(c.entries, e, compareEntries)
	c.entries = slices.Insert(c.entries, pos, e)
	c.byID[e.movie.ID] = e
}

func (c *Container) remove(i int) {
	delete(c.byID, c.entries[i].movie.ID)
	c.entries = slices.Delete(c.entries, i, i+1)
}

// index locates a tracked movie by its stored key and identity.
func (c *Container) index(m *model.Movie) (int, bool) {
	e, ok := c.byID[m.ID]
	if !ok {
		return 0, false
	}
	return slices.BinarySearchFunc(c.entries, e, compareEntries)
}

// replace swaps the contents for movies in one step. Movies sharing an
// identity with an earlier one are given a fresh ID.
func (c *Container) replace(movies []*model.Movie) {
	c.entries = make([]entry, 0, len(movies))
	c.byID = make(map[uuid.UUID]entry, len(movies))
	c.nextSeq = 0
	for _, m := range movies {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		if _, dup := c.byID[m.ID]; dup {
			m.ID = uuid.New()
		}
		e := entry{key: Key(m.Title, m.Year), seq: c.nextSeq, movie: m}
		c.entries = append(c.entries, e)
		c.byID[m.ID] = e
		c.nextSeq++
	}
	slices.SortFunc(c.entries, compareEntries)
}
