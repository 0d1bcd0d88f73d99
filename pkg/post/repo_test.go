package post

import (
	"context"
	"fmt"
	"testing"

	gomock "github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestByDate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()

	mockMongoColl := NewMockIMongoCollection(ctrl)
	mockCursor := NewMockIMongoCursor(ctrl)

	repo := &Repo{
		posts: mockMongoColl,
	}

	t.Run("success", func(t *testing.T) {
		expectedPosts := []*Post{
			{Date: "2024-03-01", Rank: 0, Title: "first"},
			{Date: "2024-03-01", Rank: 1, Title: "second"},
		}

		mockMongoColl.EXPECT().
			Find(ctx, gomock.Any(), gomock.Any()).
			Return(mockCursor, nil)
		mockCursor.EXPECT().
			All(ctx, gomock.AssignableToTypeOf(&expectedPosts)).
			SetArg(1, expectedPosts).
			Return(nil)
		mockCursor.EXPECT().Close(ctx).Return(nil)

		posts, err := repo.ByDate(ctx, "2024-03-01")
		assert.Nil(t, err)
		assert.Equal(t, []*Post{
			{Date: "2024-03-01", Rank: 0, Title: "first"},
			{Date: "2024-03-01", Rank: 1, Title: "second"},
		}, posts)
	})

	t.Run("find error", func(t *testing.T) {
		expectedErr := fmt.Errorf("find_failed")
		mockMongoColl.EXPECT().
			Find(ctx, gomock.Any(), gomock.Any()).
			Return(nil, expectedErr)

		posts, err := repo.ByDate(ctx, "2024-03-01")
		assert.Nil(t, posts)
		assert.ErrorIs(t, err, expectedErr)
	})

	t.Run("cursor error", func(t *testing.T) {
		expectedErr := fmt.Errorf("decode_failed")
		mockMongoColl.EXPECT().
			Find(ctx, gomock.Any(), gomock.Any()).
			Return(mockCursor, nil)
		mockCursor.EXPECT().All(ctx, gomock.Any()).Return(expectedErr)
		mockCursor.EXPECT().Close(ctx).Return(nil)

		_, err := repo.ByDate(ctx, "2024-03-01")
		assert.ErrorIs(t, err, expectedErr)
		assert.ErrorContains(t, err, "cursor")
	})
}

func TestSaveAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()

	mockMongoColl := NewMockIMongoCollection(ctrl)
	mockResult := NewMockIMongoBulkWriteResult(ctrl)

	repo := &Repo{
		posts: mockMongoColl,
	}

	posts := []*Post{
		{Date: "2024-03-01", Rank: 0},
		{Date: "2024-03-01", Rank: 1},
		{Date: "2024-03-01", Rank: 2},
	}

	t.Run("one upsert per post", func(t *testing.T) {
		mockMongoColl.EXPECT().
			BulkWrite(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, models []mongo.WriteModel, _ ...*options.BulkWriteOptions) (IMongoBulkWriteResult, error) {
				assert.Len(t, models, len(posts))
				for _, m := range models {
					replace, ok := m.(*mongo.ReplaceOneModel)
					assert.True(t, ok)
					assert.True(t, *replace.Upsert)
				}
				return mockResult, nil
			})

		assert.Nil(t, repo.SaveAll(ctx, posts))
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		assert.Nil(t, repo.SaveAll(ctx, nil))
	})

	t.Run("write error", func(t *testing.T) {
		expectedErr := fmt.Errorf("write_failed")
		mockMongoColl.EXPECT().
			BulkWrite(ctx, gomock.Any(), gomock.Any()).
			Return(nil, expectedErr)

		err := repo.SaveAll(ctx, posts)
		assert.ErrorIs(t, err, expectedErr)
	})
}

func TestEnsureIndexes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := NewMockIMongoCollection(ctrl)
	repo := &Repo{posts: mockMongoColl}

	mockMongoColl.EXPECT().
		CreateIndex(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, model mongo.IndexModel) error {
			assert.True(t, *model.Options.Unique)
			return nil
		})

	assert.Nil(t, repo.EnsureIndexes(context.Background()))
}
