// Package ragrec embeds the recommendation pipeline in a Go program:
// corpus items are embedded and indexed, and each request retrieves the
// nearest items, asks a language model for recommendations and validates
// the answer.
//
//	client, _ := ragrec.New(ctx,
//	    ragrec.WithHashingEmbedder(384),
//	    ragrec.WithBackend(ragrec.OpenAIBackend("groq", key, groqURL, "llama-3.1-8b-instant"), 2),
//	    ragrec.WithBackend(ragrec.StaticBackend("fallback", ""), 1),
//	)
//	defer client.Close()
//
//	_, _ = client.Add(ctx, []ragrec.Item{{ID: "1", Title: "Dune", Text: "Desert planet epic"}})
//	out, _ := client.Recommend(ctx, "likes space opera", "something epic", 0)
//	for _, r := range out.Recommendations {
//	    fmt.Println(r.Title, r.Score, r.Reason)
//	}
//
// Items live in process memory unless WithRedis or WithValkey is given.
package ragrec
