package entities

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

func TestNewArticle(t *testing.T) {
	article, err := NewArticle(valueobjects.MustArticleID("a1"), "  서울 여행  ")

	require.NoError(t, err)
	assert.Equal(t, "서울 여행", article.Title())
	assert.Equal(t, valueobjects.StatusDraft, article.Status())
	assert.False(t, article.HasTag())
}

func TestNewArticle_Validation(t *testing.T) {
	_, err := NewArticle(valueobjects.ArticleID{}, "title")
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = NewArticle(valueobjects.MustArticleID("a1"), strings.Repeat("가", maxTitleLength+1))
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestArticle_AssignTag(t *testing.T) {
	article, _ := NewArticle(valueobjects.MustArticleID("a1"), "t")

	assert.Error(t, article.AssignTag(" "))
	require.NoError(t, article.AssignTag("tag-default"))
	assert.True(t, article.HasTag())
	assert.Equal(t, "tag-default", article.TagID())
}

func TestArticle_SetStatus(t *testing.T) {
	article, _ := NewArticle(valueobjects.MustArticleID("a1"), "t")
	before := article.UpdatedAt()

	article.SetStatus(valueobjects.StatusPublished)

	assert.Equal(t, valueobjects.StatusPublished, article.Status())
	assert.False(t, article.UpdatedAt().Before(before))
}

func TestArticle_SetDetailsIsCopied(t *testing.T) {
	article, _ := NewArticle(valueobjects.MustArticleID("a1"), "t")
	published := time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("KST", 9*60*60))
	order := 4

	article.SetDetails(Details{PublishedAt: &published, Order: &order, Meta: true})
	order = 9

	details := article.Details()
	require.NotNil(t, details.PublishedAt)
	assert.True(t, published.Equal(*details.PublishedAt))
	assert.Equal(t, time.UTC, details.PublishedAt.Location())
	require.NotNil(t, details.Order)
	assert.Equal(t, 4, *details.Order)
	assert.True(t, details.Meta)

	*details.Order = 1
	assert.Equal(t, 4, *article.Details().Order)
}

func TestVocabulary_FirstRecordWins(t *testing.T) {
	vocab := NewVocabulary([]Keyword{
		ReconstructKeyword("1", "apple"),
		ReconstructKeyword("2", "apple"),
		ReconstructKeyword("3", "cherry"),
	})

	id, ok := vocab.Lookup("apple")
	require.True(t, ok)
	assert.Equal(t, "1", id.String())

	_, ok = vocab.Lookup("banana")
	assert.False(t, ok)
}

func TestNewKeyword(t *testing.T) {
	k, err := NewKeyword("도시")
	require.NoError(t, err)
	assert.Equal(t, "도시", k.Name)
	assert.False(t, k.ID.IsZero())

	_, err = NewKeyword("")
	assert.True(t, pkgerrors.IsValidation(err))
}
