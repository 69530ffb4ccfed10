// Package nbserve embeds a pre-trained Naive Bayes text classifier in a Go program.
//
// The client runs the same pipeline as the nbserve HTTP service: text is
// lowercased, stripped of ASCII punctuation and English stopwords,
// vectorized against a fixed vocabulary and classified.
//
//	client, err := nbserve.New(ctx,
//	    nbserve.WithModelPath("nb_classifier_model.json"),
//	    nbserve.WithVocabularyPath("vocab.json"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	p, _ := client.Predict(ctx, "This is a GREAT product!!!")
//	fmt.Println(p.Label)
//
// # Prediction cache
//
// Repeated texts can be served from Valkey or Redis. Entries are keyed by
// normalized text and the artifact fingerprint:
//
//	client, _ := nbserve.New(ctx,
//	    nbserve.WithValkeyCache("localhost:6379", ""),
//	    nbserve.WithCacheTTL(time.Hour),
//	)
package nbserve
