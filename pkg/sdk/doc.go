// Package readnext embeds the readnext recommendation engine in a Go program
// without running the HTTP service.
//
// The client stores reading resources in Redis with the search module and
// recommends the closest ones for a free-text note:
//
//	client, _ := readnext.New(ctx,
//	    readnext.WithRedis("localhost:6379", ""),
//	    readnext.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	_, _ = client.AddResource(ctx, readnext.Resource{
//	    ID:    "abc",
//	    Title: "Eloquent JavaScript",
//	    URL:   "https://eloquentjavascript.net",
//	    Tags:  []string{"javascript"},
//	})
//	recs, _ := client.Recommend(ctx, "closures and prototypes in javascript")
package readnext
