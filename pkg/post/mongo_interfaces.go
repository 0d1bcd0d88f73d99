package post

//go:generate mockgen -source=mongo_interfaces.go -destination=mock_mongo_interfaces.go -package=post

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ( // Interfaces
	IMongoCollection interface {
		Find(context.Context, interface{}, ...*options.FindOptions) (IMongoCursor, error)
		BulkWrite(context.Context, []mongo.WriteModel, ...*options.BulkWriteOptions) (IMongoBulkWriteResult, error)
		CreateIndex(context.Context, mongo.IndexModel) error
	}

	IMongoCursor interface {
		Close(context.Context) error
		All(context.Context, interface{}) error
	}

	IMongoBulkWriteResult interface {
		Upserted() int64
		Modified() int64
	}
)

type ( // Structs
	MongoCursor struct{ cur *mongo.Cursor }

	MongoCollection struct {
		Coll *mongo.Collection
	}

	MongoBulkWriteResult struct{ res *mongo.BulkWriteResult }
)

// MongoBulkWriteResult

func (r *MongoBulkWriteResult) Upserted() int64 {
	return r.res.UpsertedCount
}

func (r *MongoBulkWriteResult) Modified() int64 {
	return r.res.ModifiedCount
}

// MongoCursor

func (cur *MongoCursor) Close(ctx context.Context) error {
	return cur.cur.Close(ctx)
}

func (cur *MongoCursor) All(ctx context.Context, results interface{}) error {
	return cur.cur.All(ctx, results)
}

// MongoCollection

func (col *MongoCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (IMongoCursor, error) {
	cursorResult, err := col.Coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &MongoCursor{cur: cursorResult}, nil
}

func (col *MongoCollection) BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (IMongoBulkWriteResult, error) {
	bulkResult, err := col.Coll.BulkWrite(ctx, models, opts...)
	if err != nil {
		return nil, err
	}
	return &MongoBulkWriteResult{res: bulkResult}, nil
}

func (col *MongoCollection) CreateIndex(ctx context.Context, model mongo.IndexModel) error {
	_, err := col.Coll.Indexes().CreateOne(ctx, model)
	return err
}
