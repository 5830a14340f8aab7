package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	auditx "github.com/techflow/careflow/agent/audit"
	contractx "github.com/techflow/careflow/agent/contract"
	customerx "github.com/techflow/careflow/agent/customer"
	enginex "github.com/techflow/careflow/agent/engine"
	knowledgex "github.com/techflow/careflow/agent/knowledge"
	llmx "github.com/techflow/careflow/agent/llm"
	sessionx "github.com/techflow/careflow/agent/session"
	stagesx "github.com/techflow/careflow/agent/stages"
	statex "github.com/techflow/careflow/agent/state"
	configx "github.com/techflow/careflow/pkg/config"
	_ "github.com/techflow/careflow/pkg/logger/autoload"
	openrouterx "github.com/techflow/careflow/pkg/openrouter"
	qstashx "github.com/techflow/careflow/pkg/qstash"
)

type AppConfig struct {
	CustomerCSVPath string `envconfig:"CUSTOMER_CSV_PATH" default:"data/customers.csv"`
	PostgresDSN     string `envconfig:"POSTGRES_DSN"`
	OfferRulesPath  string `envconfig:"OFFER_RULES_PATH" default:"data/retention_rules.json"`
	KnowledgeDir    string `envconfig:"KNOWLEDGE_DIR" default:"data/policies"`
	ActionLogPath   string `envconfig:"ACTION_LOG_PATH" default:"data/actions_log.jsonl"`

	UseRedisStore  bool   `envconfig:"USE_REDIS_STORE" default:"false"`
	NotifyEndpoint string `envconfig:"NOTIFY_ENDPOINT"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("APP")

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if client := openrouterx.NewClient(llmCfg.OpenRouterConfig()); client == nil {
		log.Fatal().Msg("failed to initialize openrouter client")
	}

	models, err := llmx.NewRegistry(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build model registry")
	}

	store := buildStore(*appCfg)
	profiles := buildProfiles(ctx, *appCfg)

	offers, err := customerx.LoadRules(appCfg.OfferRulesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load offer rules")
	}

	retriever, err := knowledgex.LoadDir(appCfg.KnowledgeDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load knowledge index")
	}

	actions := buildActionLog(*appCfg)

	stageSet, err := stagesx.NewSet(stagesx.Deps{
		Models:    models,
		Retriever: retriever,
		Profiles:  profiles,
		Offers:    offers,
		Actions:   actions,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build stages")
	}

	engine, err := enginex.New(stageSet)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build turn engine")
	}

	manager, err := sessionx.NewManager(store, engine)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build session manager")
	}

	runConsole(ctx, manager)
}

func buildStore(cfg AppConfig) statex.Store {
	if !cfg.UseRedisStore {
		return statex.NewMemoryStore()
	}
	redisCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	store, err := statex.NewUpstashRedisStore(*redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build redis session store")
	}
	return store
}

func buildProfiles(ctx context.Context, cfg AppConfig) contractx.ProfileStore {
	if dsn := strings.TrimSpace(cfg.PostgresDSN); dsn != "" {
		store, err := customerx.NewBunStore(ctx, dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect customer database")
		}
		return store
	}
	store, err := customerx.NewCSVStore(cfg.CustomerCSVPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load customer profiles")
	}
	return store
}

func buildActionLog(cfg AppConfig) contractx.ActionLog {
	fileLog, err := auditx.NewFileLog(cfg.ActionLogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open action log")
	}
	endpoint := strings.TrimSpace(cfg.NotifyEndpoint)
	if endpoint == "" {
		return fileLog
	}
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	return auditx.NewNotifyingLog(fileLog, qstashx.MustNew(*qstashCfg), endpoint)
}

func runConsole(ctx context.Context, manager *sessionx.Manager) {
	fmt.Println("TechFlow customer support. Type 'quit' to exit.")
	fmt.Println(strings.Repeat("-", 60))

	scanner := bufio.NewScanner(os.Stdin)
	sessionID := uuid.NewString()

	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			break
		}

		result, err := manager.Submit(ctx, sessionID, text)
		if err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
			fmt.Println("Agent: Sorry, something went wrong on our side. Please try again.")
			continue
		}

		fmt.Printf("Agent: %s\n", result.Reply)
		if result.Complete {
			fmt.Println(strings.Repeat("-", 60))
			fmt.Println("Session complete. Starting a new conversation.")
			sessionID = uuid.NewString()
		}
	}
}
