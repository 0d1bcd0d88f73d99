package main

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jaswdr/faker"

	"memereport/pkg/post"
)

var f = faker.New()

// seed fills a date with n plausible posts so reports can be tried out
// without reddit credentials.
func seed(ctx context.Context, store post.Store, date string, n int) error {
	day, err := time.Parse(post.DateLayout, date)
	if err != nil {
		return fmt.Errorf("seed: bad date %q: %w", date, err)
	}

	posts := make([]*post.Post, 0, n)
	for rank := 0; rank < n; rank++ {
		posts = append(posts, genPost(day, rank))
	}
	if err := store.SaveAll(ctx, posts); err != nil {
		return fmt.Errorf("seed: can't save posts: %w", err)
	}
	return nil
}

func genTitle() string {
	return strings.Join(f.Lorem().Words(rand.Intn(5)+3), " ")
}

func genPost(day time.Time, rank int) *post.Post {
	created := day.Add(time.Duration(rand.Intn(24*60)) * time.Minute)
	p := &post.Post{
		Date:      day.Format(post.DateLayout),
		Rank:      rank,
		Title:     genTitle(),
		Author:    strings.ToLower(f.Person().FirstName()) + f.Numerify("##"),
		CreatedAt: created.UTC().Format(time.RFC3339),
		Upvotes:   rand.Intn(50000) + 1000,
		Awards:    rand.Intn(5),
		URL:       fmt.Sprintf("https://picsum.photos/seed/%s-%d/640/480", day.Format(post.DateLayout), rank),
	}

	switch rand.Intn(4) {
	case 0:
		p.MediaType = post.MediaGif
		p.GifURL = f.Internet().URL()
	case 1:
		p.MediaType = post.MediaVideo
		p.VideoURL = f.Internet().URL()
	}
	return p
}
