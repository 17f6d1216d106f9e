/*
Package storage provides the pluggable dataset store behind the HTTP service.

A dataset is a named, append-only sequence of rows (cluster.Row). Clients
stream rows in over time and ask the service to cluster the latest window.
The clustering engine itself never touches storage: handlers read rows and
call cluster.Run.

# Backends

  - memory: in-process maps, for tests and ephemeral servers
  - badger: BadgerDB (LSM tree) with zstd-compressed row batches

# Usage Example

	store, err := badger.New(badger.Config{Path: "./data"})
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	_, err = store.Append(ctx, "cpu", []cluster.Row{
	    {"timestamp": 1, "core0": 12.5, "core1": 80},
	})

	rows, err := store.Rows(ctx, "cpu", storage.RowsRequest{Last: 500})

# Fields

Each Dataset records the union of non-timestamp fields it has seen, in
first-seen order. Handlers use it as the default dimension list when a
cluster request does not name dimensions.
*/
package storage
