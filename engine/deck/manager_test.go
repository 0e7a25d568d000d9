package deck

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/jason-s-yu/groupsolitaire/engine"
)

// memSource is an in-memory Source.
type memSource struct {
	groups []GroupDefinition
	decks  map[string]DeckDefinition
	err    error
}

func (s *memSource) LoadGroups(context.Context) ([]GroupDefinition, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.groups, nil
}

func (s *memSource) LoadDeck(_ context.Context, id string) (*DeckDefinition, error) {
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.decks[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func groupDef(id string, partnerLabels ...string) GroupDefinition {
	d := GroupDefinition{
		GroupID:   id,
		GroupName: "Group " + id,
		BaseCard:  CardDefinition{ID: "base", Label: id, Type: "base"},
	}
	for i, label := range partnerLabels {
		d.PartnerCards = append(d.PartnerCards, CardDefinition{
			ID:    "p" + string(rune('1'+i)),
			Label: label,
			Type:  "partner",
		})
	}
	return d
}

func samplePool() []GroupDefinition {
	return []GroupDefinition{
		groupDef("fr", "Paris", "Lyon"),
		groupDef("it", "Rome", "Milan"),
		groupDef("es", "Madrid"),
		groupDef("de", "Berlin", "Munich"),
		groupDef("jp", "Tokyo"),
		groupDef("us", "Paris", "Austin"),
		groupDef("br", "Rio"),
		groupDef("ca", "Toronto"),
	}
}

func newTestManager(src Source) (*Manager, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewManager(src, WithLogger(logger)), hook
}

func groupIDs(d engine.Deck) []string {
	ids := make([]string, len(d.Groups))
	for i, g := range d.Groups {
		ids[i] = g.ID
	}
	return ids
}

func seedPtr(s uint64) *uint64 { return &s }

// ---------------------------------------------------------------------------
// BuildRandomDeck
// ---------------------------------------------------------------------------

func TestBuildRandomDeckSeededIsReproducible(t *testing.T) {
	m, _ := newTestManager(&memSource{groups: samplePool()})
	ctx := context.Background()

	a, err := m.BuildRandomDeck(ctx, RandomOptions{GroupCount: 4, Seed: seedPtr(2024)})
	if err != nil {
		t.Fatalf("BuildRandomDeck: %v", err)
	}
	b, err := m.BuildRandomDeck(ctx, RandomOptions{GroupCount: 4, Seed: seedPtr(2024)})
	if err != nil {
		t.Fatalf("BuildRandomDeck: %v", err)
	}
	if !reflect.DeepEqual(groupIDs(a), groupIDs(b)) {
		t.Fatalf("same seed gave %v and %v", groupIDs(a), groupIDs(b))
	}
	if a.Seed == nil || *a.Seed != 2024 {
		t.Errorf("deck seed = %v, want 2024", a.Seed)
	}

	// The selection is the head of a seeded Fisher-Yates over the pool.
	pool := []string{"fr", "it", "es", "de", "jp", "us", "br", "ca"}
	engine.Shuffle(pool, engine.NewXorshift64(2024))
	if got := groupIDs(a); !reflect.DeepEqual(got, pool[:4]) {
		t.Errorf("selection = %v, want %v", got, pool[:4])
	}
}

func TestBuildRandomDeckDeduplicates(t *testing.T) {
	dup := groupDef("fr", "Marseille")
	dup.GroupName = "Second France"
	src := &memSource{groups: []GroupDefinition{
		groupDef("fr", "Paris"), groupDef("it", "Rome"), dup,
	}}
	m, _ := newTestManager(src)

	d, err := m.BuildRandomDeck(context.Background(), RandomOptions{Seed: seedPtr(1)})
	if err != nil {
		t.Fatalf("BuildRandomDeck: %v", err)
	}
	if d.GroupCount() != 2 {
		t.Fatalf("GroupCount() = %d, want 2 (%v)", d.GroupCount(), groupIDs(d))
	}
	fr, ok := d.Group("fr")
	if !ok || fr.Name != "Group fr" {
		t.Errorf("fr = %+v, want the first definition", fr)
	}
}

func TestBuildRandomDeckExclusion(t *testing.T) {
	m, hook := newTestManager(&memSource{groups: []GroupDefinition{
		groupDef("fr", "Paris"), groupDef("it", "Rome"), groupDef("es", "Madrid"),
	}})
	ctx := context.Background()

	d, err := m.BuildRandomDeck(ctx, RandomOptions{Exclude: []string{"fr"}})
	if err != nil {
		t.Fatalf("BuildRandomDeck: %v", err)
	}
	if _, ok := d.Group("fr"); ok || d.GroupCount() != 2 {
		t.Errorf("groups = %v, want it and es", groupIDs(d))
	}

	_, err = m.BuildRandomDeck(ctx, RandomOptions{GroupCount: 3, Exclude: []string{"fr"}})
	var ie *InsufficientGroupsError
	if !errors.As(err, &ie) || ie.Available != 2 || ie.Requested != 3 {
		t.Errorf("err = %v, want insufficient 2/3", err)
	}

	hook.Reset()
	d, err = m.BuildRandomDeck(ctx, RandomOptions{Exclude: []string{"fr", "it", "es"}})
	if err != nil {
		t.Fatalf("BuildRandomDeck: %v", err)
	}
	if d.GroupCount() != 3 {
		t.Errorf("full exclusion should fall back to every group, got %v", groupIDs(d))
	}
	logged := false
	for _, e := range hook.AllEntries() {
		if e.Data["excluded"] == 3 {
			logged = true
		}
	}
	if !logged {
		t.Error("fallback was not logged")
	}
}

func TestBuildRandomDeckErrors(t *testing.T) {
	ctx := context.Background()

	m, _ := newTestManager(&memSource{})
	if _, err := m.BuildRandomDeck(ctx, RandomOptions{}); !errors.Is(err, ErrNoGroupsFound) {
		t.Errorf("empty source: err = %v", err)
	}

	m, _ = newTestManager(&memSource{groups: samplePool()})
	_, err := m.BuildRandomDeck(ctx, RandomOptions{GroupCount: 9})
	if !errors.Is(err, ErrInsufficientGroups) {
		t.Errorf("too many: err = %v", err)
	}
	if _, err := m.BuildRandomDeck(ctx, RandomOptions{GroupCount: -1}); err == nil {
		t.Error("negative count accepted")
	}

	boom := errors.New("disk on fire")
	m, _ = newTestManager(&memSource{err: boom})
	if _, err := m.BuildRandomDeck(ctx, RandomOptions{}); !errors.Is(err, boom) {
		t.Errorf("source failure not wrapped: %v", err)
	}

	bad := groupDef("xx")
	m, _ = newTestManager(&memSource{groups: []GroupDefinition{bad}})
	if _, err := m.BuildRandomDeck(ctx, RandomOptions{}); !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("malformed definition: err = %v", err)
	}
}

func TestBuildRandomDeckAssignsPossibleGroupIDs(t *testing.T) {
	m, _ := newTestManager(&memSource{groups: samplePool()})
	d, err := m.BuildRandomDeck(context.Background(), RandomOptions{Seed: seedPtr(3)})
	if err != nil {
		t.Fatalf("BuildRandomDeck: %v", err)
	}
	fr, _ := d.Group("fr")
	paris := fr.PartnerCards()[0]
	if paris.ID != "fr_p1" {
		t.Fatalf("first fr partner = %s", paris.ID)
	}
	if want := []string{"fr", "us"}; !reflect.DeepEqual(paris.PossibleGroupIDs, want) {
		t.Errorf("PossibleGroupIDs = %v, want %v", paris.PossibleGroupIDs, want)
	}
}

// ---------------------------------------------------------------------------
// BuildDeck
// ---------------------------------------------------------------------------

func TestBuildDeck(t *testing.T) {
	src := &memSource{
		groups: samplePool(),
		decks: map[string]DeckDefinition{
			"capitals": {
				DeckID:      "capitals",
				DeckName:    "Capitals",
				Groups:      []string{"it", "atlantis", "fr", "it"},
				ShuffleSeed: seedPtr(77),
			},
		},
	}
	m, hook := newTestManager(src)

	d, err := m.BuildDeck(context.Background(), "capitals")
	if err != nil {
		t.Fatalf("BuildDeck: %v", err)
	}
	if got := groupIDs(d); !reflect.DeepEqual(got, []string{"it", "fr"}) {
		t.Errorf("groups = %v, want [it fr]", got)
	}
	if d.ID != "capitals" || d.Name != "Capitals" {
		t.Errorf("id/name = %q/%q", d.ID, d.Name)
	}
	if d.Seed == nil || *d.Seed != 77 {
		t.Errorf("Seed = %v, want 77", d.Seed)
	}
	warned := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["group"] == "atlantis" {
			warned = true
		}
	}
	if !warned {
		t.Error("unknown group was not logged")
	}
}

func TestBuildDeckMissing(t *testing.T) {
	m, _ := newTestManager(&memSource{groups: samplePool()})
	_, err := m.BuildDeck(context.Background(), "nope")
	var nd *NoDeckDefinitionError
	if !errors.As(err, &nd) || nd.ID != "nope" {
		t.Fatalf("err = %v, want NoDeckDefinitionError", err)
	}
	if !errors.Is(err, ErrNoDeckDefinition) {
		t.Error("errors.Is(err, ErrNoDeckDefinition) = false")
	}
}
