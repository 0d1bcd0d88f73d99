package post

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store keeps ranked posts partitioned by date.
type Store interface {
	ByDate(ctx context.Context, date string) ([]*Post, error)
	SaveAll(ctx context.Context, posts []*Post) error
}

type Repo struct {
	posts IMongoCollection
}

func NewPostRepo(postsCol *mongo.Collection) *Repo {
	posts := &MongoCollection{
		Coll: postsCol,
	}
	return &Repo{
		posts: posts,
	}
}

// EnsureIndexes creates the unique (date, rank) index.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	err := r.posts.CreateIndex(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}, {Key: "rank", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("post/repo: failed creating index: %w", err)
	}
	return nil
}

// ByDate returns the posts of the day ordered by rank.
func (r *Repo) ByDate(ctx context.Context, date string) ([]*Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "rank", Value: 1}})
	cursor, err := r.posts.Find(ctx, bson.D{{Key: "date", Value: date}}, opts)
	if err != nil {
		return nil, fmt.Errorf("post/repo: failed finding posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []*Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("post/repo: failed geting posts from cursor: %w", err)
	}
	return posts, nil
}

// SaveAll upserts every post by (date, rank); the last write wins.
func (r *Repo) SaveAll(ctx context.Context, posts []*Post) error {
	if len(posts) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(posts))
	for _, p := range posts {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "date", Value: p.Date}, {Key: "rank", Value: p.Rank}}).
			SetReplacement(p).
			SetUpsert(true))
	}

	_, err := r.posts.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("post/repo: failed writing %d posts: %w", len(posts), err)
	}
	return nil
}
