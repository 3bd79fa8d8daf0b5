/*
Package mongostore provides a tree.Store that uses a MongoDB database as
backend, keeping every tree as a document of a collection.
*/
package mongostore

import (
	"context"
	"fmt"
	"strings"

	"github.com/matthieu-boussard/craft-ai-client-python/tree"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

const defaultCollectionName = "trees"

type document struct {
	ID      string   `bson:"_id"`
	Version string   `bson:"version"`
	Outputs []string `bson:"outputs"`
	Data    []byte   `bson:"data"`
}

type mongoStore struct {
	session    *mgo.Session
	collection string
	encdec     tree.EncodeDecoder
}

/*
Open takes a MongoDB database session, the name of a collection and a
tree.EncodeDecoder and returns a tree.Store that works on the collection
of the default database for that session. An empty collection name
stands for "trees".
*/
func Open(ctx context.Context, session *mgo.Session, collection string, encdec tree.EncodeDecoder) (tree.Store, error) {
	if collection == "" {
		collection = defaultCollectionName
	}
	if strings.ContainsAny(collection, "$\x00") || strings.HasPrefix(collection, "system.") {
		return nil, fmt.Errorf("invalid collection name %q", collection)
	}
	ms := &mongoStore{session: session, collection: collection, encdec: encdec}
	index := mgo.Index{
		Key:        []string{"version"},
		Background: true,
	}
	if err := ms.trees().EnsureIndex(index); err != nil {
		return nil, fmt.Errorf("ensuring indexes on %s: %v", collection, err)
	}
	return ms, nil
}

func (ms *mongoStore) Create(ctx context.Context, t *tree.Tree) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.ID = tree.NewID()
		doc, err := ms.document(t)
		if err != nil {
			return fmt.Errorf("creating tree: %v", err)
		}
		err = ms.trees().Insert(doc)
		if mgo.IsDup(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("creating tree %q in mongo: %v", t.ID, err)
		}
		return nil
	}
}

func (ms *mongoStore) Get(ctx context.Context, id string) (*tree.Tree, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	doc := &document{}
	err := ms.trees().Find(bson.M{"_id": id}).One(doc)
	if err == mgo.ErrNotFound {
		return nil, tree.ErrTreeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving tree %q: %v", id, err)
	}
	return ms.tree(doc)
}

func (ms *mongoStore) Store(ctx context.Context, t *tree.Tree) error {
	if t.ID == "" {
		return fmt.Errorf("storing tree: tree has no ID")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	doc, err := ms.document(t)
	if err != nil {
		return fmt.Errorf("storing tree %q: %v", t.ID, err)
	}
	if _, err = ms.trees().UpsertId(t.ID, doc); err != nil {
		return fmt.Errorf("storing tree %q in mongo: %v", t.ID, err)
	}
	return nil
}

func (ms *mongoStore) Delete(ctx context.Context, id string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	err := ms.trees().RemoveId(id)
	if err != nil && err != mgo.ErrNotFound {
		return fmt.Errorf("deleting tree %q from mongo: %v", id, err)
	}
	return nil
}

// Close closes the underlying session.
func (ms *mongoStore) Close(ctx context.Context) error {
	ms.session.Close()
	return nil
}

func (ms *mongoStore) trees() *mgo.Collection {
	return ms.session.DB("").C(ms.collection)
}

func (ms *mongoStore) document(t *tree.Tree) (*document, error) {
	data, err := ms.encdec.Encode(t)
	if err != nil {
		return nil, fmt.Errorf("encoding tree: %v", err)
	}
	return &document{ID: t.ID, Version: t.Version, Outputs: t.Configuration.Output, Data: data}, nil
}

func (ms *mongoStore) tree(doc *document) (*tree.Tree, error) {
	t, err := ms.encdec.Decode(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("retrieving tree %q: decoding: %w", doc.ID, err)
	}
	t.ID = doc.ID
	return t, nil
}
