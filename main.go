package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/chatcart/chatcart/agent/catalog"
	contractx "github.com/chatcart/chatcart/agent/contract"
	"github.com/chatcart/chatcart/agent/handlers"
	"github.com/chatcart/chatcart/agent/llm"
	"github.com/chatcart/chatcart/agent/order"
	"github.com/chatcart/chatcart/agent/orchestrator"
	"github.com/chatcart/chatcart/agent/retrieval"
	statex "github.com/chatcart/chatcart/agent/state"
	configx "github.com/chatcart/chatcart/pkg/config"
	_ "github.com/chatcart/chatcart/pkg/logger/autoload"
	openaix "github.com/chatcart/chatcart/pkg/openai"
)

type AppConfig struct {
	CatalogPath string `envconfig:"CATALOG_PATH" split_words:"true" default:"data/products.json"`
}

const cliSessionID = "cli"

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llm.Config]("OPENAI")
	retrievalCfg := configx.MustNew[retrieval.Config]("RETRIEVAL")
	orchestratorCfg := configx.MustNew[orchestrator.Config]("ORCHESTRATOR")
	pgCfg := configx.MustNew[order.PostgresConfig]("ORDER_STORE")

	sdkClient := openaix.NewSDKClient(llmCfg.BaseURL, llmCfg.APIKey)
	if sdkClient == nil {
		panic("failed to initialize openai client")
	}
	embedder := catalog.NewOpenAIEmbedder(sdkClient, llmCfg.EmbeddingModel)

	products, err := catalog.Load(appCfg.CatalogPath, embedder)
	if err != nil {
		panic(fmt.Sprintf("load catalog: %v", err))
	}

	store, cleanup, err := newOrderStore(ctx, *pgCfg)
	if err != nil {
		panic(fmt.Sprintf("init order store: %v", err))
	}
	defer cleanup()

	pipeline := order.NewPipeline(products, store)
	resolver := retrieval.New(products, *retrievalCfg)

	registry, err := handlers.NewRegistry(ctx, *llmCfg, resolver, pipeline)
	if err != nil {
		panic(fmt.Sprintf("build handler registry: %v", err))
	}

	svc, err := orchestrator.New(statex.NewRegistry(products), registry, *orchestratorCfg)
	if err != nil {
		panic(fmt.Sprintf("build orchestrator: %v", err))
	}

	runChatLoop(ctx, svc)
}

// newOrderStore picks the order backend: Postgres when a DSN is configured,
// otherwise the in-memory store.
func newOrderStore(ctx context.Context, cfg order.PostgresConfig) (contractx.OrderStore, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		log.Info().Msg("no order store dsn configured, using in-memory store")
		return order.NewMemoryStore(), func() {}, nil
	}

	pg, err := order.NewPostgresStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Init(ctx); err != nil {
		return nil, nil, err
	}
	return pg, func() { _ = pg.Close() }, nil
}

func runChatLoop(ctx context.Context, svc *orchestrator.Orchestrator) {
	fmt.Println("Welcome to ChatCart! Ask about products or start an order.")
	fmt.Println("Type 'exit' or 'quit' to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			fmt.Println("Goodbye!")
			return
		}

		reply, err := svc.HandleTurn(ctx, cliSessionID, input)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			fmt.Println("Sorry, something went wrong. Please try again.")
			continue
		}
		fmt.Println(reply)
	}
}
