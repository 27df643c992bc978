package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solm0/solmee-xyz-keystone/domain/core/entities"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/config"
	"github.com/solm0/solmee-xyz-keystone/infrastructure/di"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
	"github.com/solm0/solmee-xyz-keystone/tests/fixtures"
)

// sharedLoader keeps one in-memory container across commands of a test
func sharedLoader(t *testing.T) loader {
	t.Helper()
	cfg := config.Default()
	cfg.Environment = "test"
	cfg.Logging.Level = "error"
	container, cleanup, err := di.InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return func(context.Context) (*di.Container, func(), error) {
		return container, func() {}, nil
	}
}

func run(t *testing.T, load loader, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(load)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T, dir, name string, b *fixtures.DocumentBuilder) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b.JSON(), 0o644))
	return path
}

func TestExtractCmd_JSON(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	first := writeDoc(t, dir, "first.json", fixtures.NewDocumentBuilder().Paragraph("서버 서버 서버").InternalLinkBlock("b"))
	second := writeDoc(t, dir, "second.json", fixtures.NewDocumentBuilder().Heading("짧은 글"))

	// Act
	out, err := run(t, sharedLoader(t), "extract", "--json", first, second)

	// Assert
	require.NoError(t, err)
	var results []fileExtraction
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, first, results[0].File)
	assert.Equal(t, []string{"서버"}, results[0].Keywords)
	assert.Equal(t, []string{"b"}, results[0].Targets)
	assert.Equal(t, second, results[1].File)
	assert.Empty(t, results[1].Keywords)
}

func TestExtractCmd_MissingFile(t *testing.T) {
	_, err := run(t, sharedLoader(t), "extract", filepath.Join(t.TempDir(), "nope.json"))

	assert.ErrorContains(t, err, "nope.json")
}

func TestProcessGraphKeywords(t *testing.T) {
	load := sharedLoader(t)
	dir := t.TempDir()
	doc := writeDoc(t, dir, "post.json", fixtures.NewDocumentBuilder().Paragraph("여행 여행 여행 바다 바다 바다"))

	out, err := run(t, load, "process", "--operation", "create", "--title", "여름", "post-1", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "keywords: 여행, 바다")
	assert.Contains(t, out, "created: 여행, 바다")

	out, err = run(t, load, "graph", "post-1")
	require.NoError(t, err)
	var graph entities.ArticleGraph
	require.NoError(t, json.Unmarshal([]byte(out), &graph))
	assert.Equal(t, "여름", graph.Title)
	assert.Len(t, graph.Keywords, 2)

	out, err = run(t, load, "keywords", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "\t여행\n")
	assert.Contains(t, out, "(1 of 2)")
}

func TestProcessCmd_UnknownArticle(t *testing.T) {
	doc := writeDoc(t, t.TempDir(), "post.json", fixtures.NewDocumentBuilder().Paragraph("글"))

	_, err := run(t, sharedLoader(t), "process", "ghost", doc)

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestGraphCmd_RequiresArticleID(t *testing.T) {
	_, err := run(t, sharedLoader(t), "graph")

	assert.Error(t, err)
}
