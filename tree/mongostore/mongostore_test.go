package mongostore

import (
	"context"
	"os"
	"testing"

	"github.com/matthieu-boussard/craft-ai-client-python/property"
	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	treejson "github.com/matthieu-boussard/craft-ai-client-python/tree/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

func sampleTree(t *testing.T) *tree.Tree {
	t.Helper()
	dt, err := tree.New("1.1.0", tree.Configuration{
		Context: map[string]property.Spec{
			"x":   {Type: property.Continuous},
			"out": {Type: property.Continuous},
		},
		Output:                  []string{"out"},
		DeactivateMissingValues: true,
	}, map[string]*tree.Node{
		"out": tree.NewBranch(
			tree.Child{Rule: property.NewLT("x", 1), Node: tree.NewLeaf(&tree.Prediction{Value: 1.5})},
			tree.Child{Rule: property.NewGTE("x", 1), Node: tree.NewLeaf(&tree.Prediction{Value: 3.0})},
		),
	})
	require.NoError(t, err)
	return dt
}

func TestDocumentRoundTrip(t *testing.T) {
	ms := &mongoStore{encdec: treejson.NewEncodeDecoder()}
	dt := sampleTree(t)
	dt.ID = "tree-1"

	doc, err := ms.document(dt)
	require.NoError(t, err)
	assert.Equal(t, "tree-1", doc.ID)
	assert.Equal(t, "1.1.0", doc.Version)
	assert.Equal(t, []string{"out"}, doc.Outputs)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "tree-1", m["_id"])

	decoded := &document{}
	require.NoError(t, bson.Unmarshal(raw, decoded))
	got, err := ms.tree(decoded)
	require.NoError(t, err)
	assert.Equal(t, dt, got)

	_, err = ms.tree(&document{ID: "broken", Data: []byte("{}")})
	var mtErr *tree.MalformedTreeError
	assert.ErrorAs(t, err, &mtErr)
}

// TestMongoStore runs against the MongoDB server at CRAFTAI_TEST_MONGO_URL.
func TestMongoStore(t *testing.T) {
	url := os.Getenv("CRAFTAI_TEST_MONGO_URL")
	if url == "" {
		t.Skip("CRAFTAI_TEST_MONGO_URL is not set")
	}
	ctx := context.Background()
	session, err := mgo.Dial(url)
	require.NoError(t, err)
	s, err := Open(ctx, session, "craftai_test_trees", treejson.NewEncodeDecoder())
	require.NoError(t, err)
	defer s.Close(ctx)

	dt := sampleTree(t)
	require.NoError(t, s.Create(ctx, dt))
	got, err := s.Get(ctx, dt.ID)
	require.NoError(t, err)
	assert.Equal(t, dt, got)
	require.NoError(t, s.Store(ctx, dt))

	require.NoError(t, s.Delete(ctx, dt.ID))
	_, err = s.Get(ctx, dt.ID)
	assert.ErrorIs(t, err, tree.ErrTreeNotFound)
}
