package core

import (
	"path/filepath"
	"testing"

	"github.com/factengine/factengine/internal/store"
	"github.com/factengine/factengine/internal/testutil"
)

func newTestEngine(t *testing.T) (*Engine, *testutil.FakeEmbedder, *testutil.FakeLLMClient) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	emb := testutil.NewFakeEmbedder(4)
	llm := testutil.NewFakeLLMClient()
	e := New(st, emb, llm)
	return e, emb, llm
}
