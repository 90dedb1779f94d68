package main

import (
	"context"
	"encoding/json"
	"fmt"

	"allie-graph/internal/docstore"
	"allie-graph/internal/graphstore"
	"allie-graph/internal/knowledge"
	"allie-graph/internal/migration"
	"allie-graph/internal/resolution"
	"allie-graph/pkg/config"
)

// services wires the full stack for one command invocation.
type services struct {
	cfg      *config.Config
	graph    *graphstore.Store
	graphs   *knowledge.Service
	migrator *migration.Service
	resolver *resolution.Resolver
}

// withServices loads config, opens the stores, runs fn and tears down.
func withServices(ctx context.Context, fn func(ctx context.Context, s *services) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := docstore.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	defer store.Close()

	graph := graphstore.NewStore(graphstore.Options{
		URI:         cfg.Neo4jURI,
		User:        cfg.Neo4jUser,
		Password:    cfg.Neo4jPassword,
		Database:    cfg.Neo4jDatabase,
		MaxPoolSize: cfg.Neo4jMaxPoolSize,
	})
	defer graph.Close(ctx)

	resolutionConfig := resolution.DefaultConfig()
	if cfg.ResolutionConfig != "" {
		resolutionConfig, err = resolution.LoadConfig(cfg.ResolutionConfig)
		if err != nil {
			return fmt.Errorf("loading resolution config: %w", err)
		}
	}

	var classifier knowledge.IntentClassifier
	if cfg.OpenAIBaseURL != "" || cfg.OpenAIAPIKey != "" {
		classifier = knowledge.NewLLMClassifier(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.IntentModel)
	}

	return fn(ctx, &services{
		cfg:      cfg,
		graph:    graph,
		graphs:   knowledge.NewService(store, classifier),
		migrator: migration.NewService(store, graph),
		resolver: resolution.NewResolver(graph, resolutionConfig),
	})
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(value interface{}) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
