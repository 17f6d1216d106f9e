// Command example streams a simulated host fleet into a dimcluster server
// and logs how the hosts cluster as rows arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nicktill/dimcluster/pkg/client"
	"github.com/nicktill/dimcluster/pkg/cluster"
	"github.com/nicktill/dimcluster/pkg/codec"
)

func main() {
	endpoint := flag.String("endpoint", client.DefaultEndpoint, "dimcluster server URL")
	dataset := flag.String("dataset", "fleet", "dataset to append to")
	groups := flag.Int("groups", 3, "number of load groups")
	hosts := flag.Int("hosts", 4, "hosts per group")
	eps := flag.Float64("eps", 5, "clustering distance threshold")
	window := flag.Int("window", 30, "rows clustered on every update")
	every := flag.Duration("every", time.Second, "interval between rows")
	flag.Parse()

	c, err := client.New(client.Config{Endpoint: *endpoint})
	if err != nil {
		log.Fatalf("❌ Failed to create client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := cluster.Settings{
		Eps:        cluster.FloatPtr(*eps),
		WindowSize: cluster.IntPtr(*window),
	}
	batcher := client.NewBatcher(c, *dataset, client.BatchConfig{
		MaxBatchSize: 10,
		FlushEvery:   5 * time.Second,
		Watch:        &codec.Watch{Settings: settings},
		OnError: func(err error) {
			log.Printf("⚠️  Append failed: %v", err)
		},
	})
	batcher.Start(ctx)

	sim := newFleet(*groups, *hosts, time.Now().UnixNano())
	log.Printf("🚦 Streaming %d hosts into %q every %v", len(sim.dimensions()), *dataset, *every)
	log.Printf("💡 Watch live updates on %s/v1/ws", strings.Replace(*endpoint, "http", "ws", 1))

	go report(ctx, c, *dataset, settings)

	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			batcher.Add(sim.next())
		case <-quit:
			log.Println("🛑 Shutting down example...")
			cancel()
			if err := batcher.Stop(); err != nil {
				log.Printf("⚠️  Final flush failed: %v", err)
			}
			log.Println("👋 Example stopped")
			return
		}
	}
}

// report logs the dataset's clusters every ten seconds
func report(ctx context.Context, c *client.Client, dataset string, settings cluster.Settings) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resp, err := c.ClusterDataset(ctx, dataset, codec.DatasetClusterRequest{Settings: settings})
			if client.IsNotFound(err) {
				continue
			}
			if err != nil {
				log.Printf("⚠️  Cluster request failed: %v", err)
				continue
			}
			log.Printf("📊 %d clusters: %s", len(resp.Clusters), summarize(resp.Assignment))
		}
	}
}

// summarize renders an assignment as "0=[a b] 1=[c]"
func summarize(assignment []codec.Pair) string {
	byCluster := map[int][]string{}
	maxIdx := -1
	for _, p := range assignment {
		byCluster[p.Cluster] = append(byCluster[p.Cluster], p.Dimension)
		if p.Cluster > maxIdx {
			maxIdx = p.Cluster
		}
	}

	var parts []string
	for i := 0; i <= maxIdx; i++ {
		if names, ok := byCluster[i]; ok {
			parts = append(parts, fmt.Sprintf("%d=%v", i, names))
		}
	}
	if names, ok := byCluster[codec.UnassignedIndex]; ok {
		parts = append(parts, fmt.Sprintf("unassigned=%v", names))
	}
	return strings.Join(parts, " ")
}
