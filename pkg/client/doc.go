/*
Package client is a Go client for the dimcluster HTTP API.

Cluster rows inline:

	c, err := client.New(client.Config{Endpoint: "http://localhost:8080"})
	if err != nil {
	    log.Fatal(err)
	}
	resp, err := c.Cluster(ctx, codec.Request{
	    Rows:       rows,
	    Dimensions: []string{"cpu", "mem", "disk"},
	    Settings:   cluster.Settings{Eps: cluster.FloatPtr(1.5)},
	})

Stream rows into a stored dataset. The Batcher buffers rows and appends
them in batches, either when MaxBatchSize rows are pending or every
FlushEvery:

	b := client.NewBatcher(c, "hosts", client.BatchConfig{
	    MaxBatchSize: 500,
	    FlushEvery:   5 * time.Second,
	    Watch:        &codec.Watch{Settings: settings},
	})
	b.Start(ctx)
	defer b.Stop()

	b.Add(cluster.Row{"timestamp": now, "cpu": 0.7, "mem": 0.4})

With Watch set, every append reclusters the dataset on the server and
pushes the result to WebSocket subscribers of /v1/ws.
*/
package client
