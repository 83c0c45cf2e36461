// Package main writes the synthetic demo dataset as CSV files the planner
// can load.
//
// Usage:
//
//	go run ./cmd/seed -dir data
//	go run ./cmd/seed -dir data -seed 7 -orders 5000
package main

import (
	"flag"
	"fmt"

	"github.com/listenupapp/liveplan/internal/loader"
	"github.com/listenupapp/liveplan/internal/logger"
	"github.com/listenupapp/liveplan/internal/sample"
)

var (
	dir      = flag.String("dir", "data", "Directory to write the CSV files to")
	seed     = flag.Uint64("seed", sample.DefaultSeed, "Generator seed")
	orders   = flag.Int("orders", 0, "Number of orders (0 keeps the default)")
	sessions = flag.Int("sessions", 0, "Number of sessions (0 keeps the default)")
)

func main() {
	flag.Parse()
	log := logger.New(logger.Config{})

	sizes := sample.DefaultSizes()
	if *orders > 0 {
		sizes.Orders = *orders
		sizes.OrderItems = 2 * *orders
	}
	if *sessions > 0 {
		sizes.Sessions = *sessions
		sizes.Engagement = *sessions
	}

	ds := sample.New(*seed).WithSizes(sizes).Dataset()
	paths, err := loader.WriteDataset(*dir, ds)
	if err != nil {
		log.WithError(err).Fatalf("Failed to write dataset to %s", *dir)
	}

	c := ds.Counts()
	fmt.Printf("Seed %d: %d creators, %d products, %d orders, %d order items, %d sessions, %d engagement rows\n",
		*seed, c.Creators, c.Products, c.Orders, c.OrderItems, c.Sessions, c.Engagement)
	for _, p := range paths {
		fmt.Printf("  wrote %s\n", p)
	}
}
