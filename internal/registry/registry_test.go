package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/kirinuki/internal/chunking"
	"github.com/hyperjump/kirinuki/internal/embedding"
	"github.com/hyperjump/kirinuki/internal/manifest"
	"github.com/hyperjump/kirinuki/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoContent = errors.New("content unavailable")

// memCorpus is an in-memory DocumentSource. A document whose id is in
// gates blocks in LoadContent until the gate channel is closed.
type memCorpus struct {
	mu    sync.Mutex
	docs  map[string]string
	gates map[string]chan struct{}
}

func newMemCorpus(docs map[string]string) *memCorpus {
	return &memCorpus{docs: docs, gates: map[string]chan struct{}{}}
}

func (c *memCorpus) set(id, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[id] = text
}

func (c *memCorpus) ListDocuments(context.Context) ([]models.Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	docs := make([]models.Document, 0, len(c.docs))
	for id := range c.docs {
		docs = append(docs, models.Document{ID: id, Kind: "text", Source: models.SourceFile})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID > docs[j].ID })
	return docs, nil
}

func (c *memCorpus) LoadContent(ctx context.Context, id string) (string, error) {
	c.mu.Lock()
	gate := c.gates[id]
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.docs[id]
	if !ok {
		return "", errNoContent
	}
	return text, nil
}

type fixture struct {
	corpus  *memCorpus
	catalog *embedding.Catalog
	dir     string
	store   *manifest.FileStore
	reg     *Registry
}

func newFixture(t *testing.T, docs map[string]string) *fixture {
	t.Helper()
	f := &fixture{
		corpus:  newMemCorpus(docs),
		catalog: embedding.NewCatalog(embedding.CatalogConfig{HashDimensions: 64}),
		dir:     filepath.Join(t.TempDir(), "indexes"),
	}
	f.reopen(t)
	return f
}

// reopen simulates a process restart over the same manifest directory.
func (f *fixture) reopen(t *testing.T) {
	t.Helper()
	store, err := manifest.NewFileStore(f.dir)
	require.NoError(t, err)
	reg, err := New(context.Background(), f.corpus, f.catalog, store, WithInitialCapacity(4))
	require.NoError(t, err)
	f.store, f.reg = store, reg
}

var sampleDocs = map[string]string{
	"d1": "Tea is grown in the hills.\n\nCoffee needs a warm climate.\n\nCocoa comes from pods.",
	"d2": "Rivers flow to the sea.\n\nGlaciers carve valleys.",
	"d3": "Compilers translate source code.",
}

func copyDocs() map[string]string {
	out := make(map[string]string, len(sampleDocs))
	for k, v := range sampleDocs {
		out[k] = v
	}
	return out
}

func TestBuild_RoundTripThroughManifest(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()

	status, err := f.reg.Build(ctx, models.BuildRequest{
		Name: "tea", Model: embedding.ModelTextHash, Policy: chunking.NameDocument, Documents: []string{"d1"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.Status{Name: "tea", Model: "text-hash", Policy: "document", Documents: 1, Chunks: 1}, status)

	before, err := f.reg.Query(ctx, "tea", "coffee climate", 3, nil)
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, "d1:0", before[0].ChunkID)

	f.reopen(t)
	coll, err := f.reg.Get(ctx, "tea")
	require.NoError(t, err)
	assert.Equal(t, status, coll.Status())

	after, err := f.reg.Query(ctx, "tea", "coffee climate", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBuild_SlidingConfigRoundTrips(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()

	status, err := f.reg.Build(ctx, models.BuildRequest{
		Name: "win", Model: embedding.ModelTextHash, Policy: "sliding",
		ChunkConfig: models.ChunkConfig{WindowChars: 20, OverlapChars: 5},
	})
	require.NoError(t, err)

	m, ok := f.reg.Manifest("win")
	require.True(t, ok)
	assert.Equal(t, models.ChunkConfig{WindowChars: 20, OverlapChars: 5}, m.ChunkConfig)
	assert.Equal(t, []string{"d1", "d2", "d3"}, m.Documents)

	before, err := f.reg.Query(ctx, "win", "glaciers carve", 5, nil)
	require.NoError(t, err)

	f.reopen(t)
	got, err := f.reg.Status(ctx, "win")
	require.NoError(t, err)
	assert.Equal(t, status, got)
	after, err := f.reg.Query(ctx, "win", "glaciers carve", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBuild_DefaultNameAndDocuments(t *testing.T) {
	f := newFixture(t, copyDocs())
	status, err := f.reg.Build(context.Background(), models.BuildRequest{Model: "text-hash", Policy: "paragraph"})
	require.NoError(t, err)
	assert.Equal(t, "text-hash_paragraph", status.Name)
	assert.Equal(t, 3, status.Documents)
	assert.Equal(t, 6, status.Chunks)
}

func TestBuild_ReplacesPreviousCollection(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()
	req := models.BuildRequest{Name: "x", Model: "text-hash", Policy: "paragraph", Documents: []string{"d1", "d2"}}

	_, err := f.reg.Build(ctx, req)
	require.NoError(t, err)
	status, err := f.reg.Build(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 5, status.Chunks, "a rebuild starts from scratch")
}

func TestBuild_AbortsOnUnavailableDocument(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()

	original, err := f.reg.Build(ctx, models.BuildRequest{Name: "x", Model: "text-hash", Policy: "document", Documents: []string{"d1"}})
	require.NoError(t, err)

	_, err = f.reg.Build(ctx, models.BuildRequest{Name: "x", Model: "text-hash", Policy: "document", Documents: []string{"d2", "missing", "d3"}})
	assert.ErrorIs(t, err, errNoContent)

	got, err := f.reg.Status(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, original, got)
	m, _ := f.reg.Manifest("x")
	assert.Equal(t, []string{"d1"}, m.Documents)

	f.reopen(t)
	m, ok := f.reg.Manifest("x")
	require.True(t, ok)
	assert.Equal(t, []string{"d1"}, m.Documents)
}

func TestBuild_FailedFirstBuildLeavesNothing(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()
	_, err := f.reg.Build(ctx, models.BuildRequest{Name: "x", Model: "text-hash", Policy: "document", Documents: []string{"missing"}})
	require.Error(t, err)

	_, err = f.reg.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrUnknownCollection)
	_, err = os.Stat(filepath.Join(f.dir, "x.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuild_Errors(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()

	_, err := f.reg.Build(ctx, models.BuildRequest{Model: "text-nope", Policy: "document"})
	assert.ErrorIs(t, err, embedding.ErrUnknownModel)

	_, err = f.reg.Build(ctx, models.BuildRequest{Model: "text-hash", Policy: "sentences"})
	assert.ErrorIs(t, err, chunking.ErrUnknownPolicy)

	_, err = f.reg.Build(ctx, models.BuildRequest{Model: "text-hash", Policy: "sliding", ChunkConfig: models.ChunkConfig{WindowChars: 5, OverlapChars: 5}})
	assert.ErrorIs(t, err, chunking.ErrInvalidConfig)

	_, err = f.reg.Build(ctx, models.BuildRequest{Name: "../up", Model: "text-hash", Policy: "document"})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = f.reg.Build(ctx, models.BuildRequest{Model: "text-mini", Policy: "document", Documents: []string{"d1"}})
	assert.ErrorIs(t, err, embedding.ErrBackendUnavailable)
	assert.Empty(t, f.reg.Names())
}

func TestReset(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()

	_, err := f.reg.Build(ctx, models.BuildRequest{Name: "gone", Model: "text-hash", Policy: "document"})
	require.NoError(t, err)
	require.NoError(t, f.reg.Reset(ctx, "gone"))

	_, err = f.reg.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrUnknownCollection)
	_, err = f.reg.Query(ctx, "gone", "x", 1, nil)
	assert.ErrorIs(t, err, ErrUnknownCollection)

	require.NoError(t, f.reg.Reset(ctx, "gone"))
	require.NoError(t, f.reg.Reset(ctx, "never-built"))

	f.reopen(t)
	_, err = f.reg.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestResetAll(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()
	for _, name := range []string{"a", "b"} {
		_, err := f.reg.Build(ctx, models.BuildRequest{Name: name, Model: "text-hash", Policy: "document"})
		require.NoError(t, err)
	}
	require.NoError(t, f.reg.ResetAll(ctx))
	assert.Empty(t, f.reg.Names())

	manifests, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, manifests)
}

func TestNew_DropsStaleManifests(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()

	_, err := f.reg.Build(ctx, models.BuildRequest{Name: "keep", Model: "text-hash", Policy: "document"})
	require.NoError(t, err)
	require.NoError(t, f.store.Save(ctx, models.Manifest{Name: "old-model", Model: "text-retired", Policy: "document"}))
	require.NoError(t, f.store.Save(ctx, models.Manifest{Name: "old-policy", Model: "text-hash", Policy: "sentences"}))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "bad name.json"), []byte(`{"name":"bad name","model":"text-retired","policy":"document"}`), 0644))

	f.reopen(t)
	assert.Equal(t, []string{"keep"}, f.reg.Names())
	for _, name := range []string{"old-model", "old-policy"} {
		_, err := os.Stat(filepath.Join(f.dir, name+".json"))
		assert.True(t, os.IsNotExist(err), name)
	}
}

func TestList_SortedAndMaterialized(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := f.reg.Build(ctx, models.BuildRequest{Name: name, Model: "text-hash", Policy: "paragraph"})
		require.NoError(t, err)
	}

	f.reopen(t)
	statuses, err := f.reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	assert.Equal(t, "alpha", statuses[0].Name)
	assert.Equal(t, "mid", statuses[1].Name)
	assert.Equal(t, "zeta", statuses[2].Name)
	for _, st := range statuses {
		assert.Equal(t, 6, st.Chunks)
	}
}

func TestList_RebuildFailureIsReturned(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()
	_, err := f.reg.Build(ctx, models.BuildRequest{Name: "a", Model: "text-hash", Policy: "document", Documents: []string{"d3"}})
	require.NoError(t, err)

	f.corpus.mu.Lock()
	delete(f.corpus.docs, "d3")
	f.corpus.mu.Unlock()

	f.reopen(t)
	_, err = f.reg.List(ctx)
	assert.ErrorIs(t, err, errNoContent)

	// nothing was cached, so restoring the document makes the next call succeed
	f.corpus.set("d3", sampleDocs["d3"])
	statuses, err := f.reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
}

func TestQuery_MinScoreAndTopK(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()
	_, err := f.reg.Build(ctx, models.BuildRequest{Name: "p", Model: "text-hash", Policy: "paragraph"})
	require.NoError(t, err)

	all, err := f.reg.Query(ctx, "p", "Rivers flow to the sea.", 10, nil)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "d2:0", all[0].ChunkID)
	assert.Equal(t, "d2", all[0].DocumentID)
	assert.InDelta(t, 1.0, all[0].Score, 1e-6)

	min := 0.99
	strong, err := f.reg.Query(ctx, "p", "Rivers flow to the sea.", 10, &min)
	require.NoError(t, err)
	require.Len(t, strong, 1)

	none, err := f.reg.Query(ctx, "p", "Rivers flow to the sea.", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInvalidate_RebuildsWithFreshContent(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()
	_, err := f.reg.Build(ctx, models.BuildRequest{Name: "a", Model: "text-hash", Policy: "paragraph", Documents: []string{"d3"}})
	require.NoError(t, err)
	_, err = f.reg.Build(ctx, models.BuildRequest{Name: "b", Model: "text-hash", Policy: "paragraph", Documents: []string{"d1"}})
	require.NoError(t, err)

	f.corpus.set("d3", "Compilers translate source code.\n\nLinkers join object files.")
	assert.Equal(t, []string{"a"}, f.reg.Invalidate("d3"))
	assert.Empty(t, f.reg.Invalidate("d3"), "already dropped")

	st, err := f.reg.Status(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Chunks)
}

func TestConcurrency_BuildDoesNotBlockOtherNames(t *testing.T) {
	docs := copyDocs()
	docs["slow"] = "slow document"
	f := newFixture(t, docs)
	ctx := context.Background()

	_, err := f.reg.Build(ctx, models.BuildRequest{Name: "fast", Model: "text-hash", Policy: "document", Documents: []string{"d2"}})
	require.NoError(t, err)
	_, err = f.reg.Build(ctx, models.BuildRequest{Name: "busy", Model: "text-hash", Policy: "document", Documents: []string{"d1"}})
	require.NoError(t, err)

	gate := make(chan struct{})
	f.corpus.mu.Lock()
	f.corpus.gates["slow"] = gate
	f.corpus.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := f.reg.Build(ctx, models.BuildRequest{Name: "busy", Model: "text-hash", Policy: "document", Documents: []string{"d1", "slow"}})
		done <- err
	}()

	// the build of "busy" is parked on the gate; other names and the
	// published "busy" collection stay queryable
	deadline := time.After(5 * time.Second)
	for _, name := range []string{"fast", "busy"} {
		resCh := make(chan error, 1)
		go func() {
			_, err := f.reg.Query(ctx, name, "rivers", 3, nil)
			resCh <- err
		}()
		select {
		case err := <-resCh:
			require.NoError(t, err)
		case <-deadline:
			t.Fatalf("query on %s blocked by a build", name)
		}
	}
	st, err := f.reg.Status(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Documents, "a build in flight is not visible")

	close(gate)
	require.NoError(t, <-done)
	st, err = f.reg.Status(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Documents)
}

func TestConcurrency_InvalidateDuringBuild(t *testing.T) {
	docs := copyDocs()
	docs["slow"] = "slow document"
	f := newFixture(t, docs)
	ctx := context.Background()

	gate := make(chan struct{})
	f.corpus.mu.Lock()
	f.corpus.gates["slow"] = gate
	f.corpus.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := f.reg.Build(ctx, models.BuildRequest{Name: "x", Model: "text-hash", Policy: "paragraph", Documents: []string{"d3", "slow"}})
		done <- err
	}()

	// d3 changes while the build waits on "slow"
	f.corpus.set("d3", "Compilers translate source code.\n\nLinkers join object files.")
	f.reg.Invalidate("d3")
	close(gate)
	require.NoError(t, <-done)

	st, err := f.reg.Status(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 3, st.Chunks)
	m, ok := f.reg.Manifest("x")
	require.True(t, ok)
	assert.Equal(t, []string{"d3", "slow"}, m.Documents)
}

func TestConcurrency_ParallelQueries(t *testing.T) {
	f := newFixture(t, copyDocs())
	ctx := context.Background()
	_, err := f.reg.Build(ctx, models.BuildRequest{Name: "p", Model: "text-hash", Policy: "paragraph"})
	require.NoError(t, err)
	f.reopen(t)

	var wg sync.WaitGroup
	results := make([][]models.QueryResult, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.reg.Query(ctx, "p", "glaciers carve valleys", 2, nil)
		}()
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}
