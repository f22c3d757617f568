package app

import (
	"fmt"

	"github.com/feedback-intel/core/internal/cache"
	"github.com/feedback-intel/core/internal/clients/openai"
	"github.com/feedback-intel/core/internal/config"
	"github.com/feedback-intel/core/internal/model"
	"github.com/feedback-intel/core/internal/platform/logger"
	"github.com/feedback-intel/core/internal/queue"
	"github.com/feedback-intel/core/internal/vectorstore"
)

// Clients bundles the external-system adapters, grounded on the teacher's
// app.Clients (internal/app/clients.go): one field per adapter, all
// constructed up front so New() can fail fast on misconfiguration.
type Clients struct {
	Queue       queue.Queue
	Cache       cache.Cache
	VectorStore vectorstore.VectorStore
	OpenAI      openai.Client
	Sentiment   model.Model
}

func wireClients(log *logger.Logger, cfg config.Config) (Clients, error) {
	log.Info("wiring clients")

	q, err := queue.NewRedisQueue(cfg.RedisAddr, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init job queue: %w", err)
	}

	c := cache.NewRedisCache(cfg.RedisAddr, log)

	vsClient, err := vectorstore.NewClient(log, vectorstore.Config{
		APIKey:  cfg.PineconeAPIKey,
		BaseURL: "",
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init vector store client: %w", err)
	}
	vs := vectorstore.New(log, vsClient, cfg.PineconeIndexName, cfg.PineconeIndexHost, cfg.PineconeNamespacePrefix)

	oaClient := openai.NewClient(log, cfg)

	// FEATURE_HF_SENTIMENT selects the offline lexicon classifier in place
	// of the OpenAI-backed one — a stand-in for a self-hosted model this
	// deployment can run without an external API dependency.
	var sentimentModel model.Model
	if cfg.SentimentModelHF {
		sentimentModel = model.NewLexiconModel(log)
	} else {
		sentimentModel = model.NewOpenAIModel(log, oaClient, cfg)
	}

	return Clients{
		Queue:       q,
		Cache:       c,
		VectorStore: vs,
		OpenAI:      oaClient,
		Sentiment:   sentimentModel,
	}, nil
}
