// Package main renders the discogs2spotify architecture diagrams as Graphviz
// dot files under ./go-diagrams.
package main

import (
	"github.com/blushft/go-diagrams/diagram"
	"github.com/blushft/go-diagrams/nodes/gcp"
	log "github.com/sirupsen/logrus"
)

func main() {
	generateArchitectureDiagram()
	generateComponentDiagram()
	log.Info("Diagrams written to ./go-diagrams")
}

// generateArchitectureDiagram shows how a request flows from a client through
// the matcher to Discogs, Spotify and the cache.
func generateArchitectureDiagram() {
	d, err := diagram.New(
		diagram.Filename("architecture"),
		diagram.Label("discogs2spotify architecture"),
		diagram.Direction("LR"),
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to create architecture diagram")
	}

	client := gcp.Network.Dns(diagram.NodeLabel("CLI / HTTP client"))
	api := gcp.Network.LoadBalancing(diagram.NodeLabel("HTTP API"))
	discogs := gcp.Compute.ComputeEngine(diagram.NodeLabel("Discogs API"))
	spotify := gcp.Compute.ComputeEngine(diagram.NodeLabel("Spotify Web API"))
	cache := gcp.Database.Memorystore(diagram.NodeLabel("Cache (memory / Redis)"))

	app := diagram.NewGroup("discogs2spotify").Label("discogs2spotify")
	app.NewGroup("services").
		Label("Services").
		Add(
			gcp.Compute.ComputeEngine(diagram.NodeLabel("Collection service")),
			gcp.Compute.ComputeEngine(diagram.NodeLabel("Matcher")),
		).
		ConnectAllFrom(api.ID(), diagram.Forward()).
		ConnectAllTo(cache.ID(), diagram.Forward())

	d.Connect(client, api, diagram.Forward()).Group(app)
	d.Connect(api, discogs, diagram.Forward())
	d.Connect(api, spotify, diagram.Forward())
	d.Connect(api, cache, diagram.Forward())

	if err := d.Render(); err != nil {
		log.WithError(err).Fatal("Failed to render architecture diagram")
	}
}

// generateComponentDiagram shows the matching pipeline for a single record.
func generateComponentDiagram() {
	d, err := diagram.New(
		diagram.Filename("components"),
		diagram.Label("discogs2spotify matching pipeline"),
		diagram.Direction("LR"),
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to create component diagram")
	}

	orchestrator := gcp.Compute.ComputeEngine(diagram.NodeLabel("Match orchestrator"))
	pacer := gcp.Network.LoadBalancing(diagram.NodeLabel("Pacer"))
	normalizer := gcp.Compute.ComputeEngine(diagram.NodeLabel("Normalizer"))
	exact := gcp.Network.Dns(diagram.NodeLabel("EXACT search"))
	broad := gcp.Network.Dns(diagram.NodeLabel("BROAD search"))
	selector := gcp.Compute.ComputeEngine(diagram.NodeLabel("Candidate selector"))
	scorer := gcp.Compute.ComputeEngine(diagram.NodeLabel("Similarity scorer"))
	albums := gcp.Database.Memorystore(diagram.NodeLabel("spotify:album"))
	searches := gcp.Database.Sql(diagram.NodeLabel("spotify:search"))

	lookup := diagram.NewGroup("lookup").Label("Search client")
	lookup.Add(normalizer, exact, broad, selector, scorer)

	storage := diagram.NewGroup("cache").Label("Cache")
	storage.Add(albums, searches)

	d.Connect(orchestrator, albums, diagram.Forward()).Group(storage)
	d.Connect(orchestrator, pacer, diagram.Forward())
	d.Connect(pacer, normalizer, diagram.Forward()).Group(lookup)
	d.Connect(normalizer, exact, diagram.Forward())
	d.Connect(exact, broad, diagram.Forward())
	d.Connect(broad, selector, diagram.Forward())
	d.Connect(selector, scorer, diagram.Forward())
	d.Connect(broad, searches, diagram.Forward())

	if err := d.Render(); err != nil {
		log.WithError(err).Fatal("Failed to render component diagram")
	}
}
