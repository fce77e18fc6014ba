// Package patsim embeds the patent similarity search in a Go program
// without running the HTTP service.
//
// Records live either in Valkey (imported with Client.Import) or in a
// directory of parquet chunks:
//
//	client, _ := patsim.New(ctx, patsim.WithValkey("localhost:6379", ""))
//	defer client.Close()
//
//	res, _ := client.Similar(ctx, patsim.Document{
//	    PublicationNumber:   "JP-2020123456-A",
//	    Country:             "JP",
//	    ClassificationCodes: []string{"G06F16/30"},
//	}, patsim.TopK(50))
//	for _, m := range res.Matches {
//	    fmt.Println(m.PublicationNumber, m.Score)
//	}
package patsim
