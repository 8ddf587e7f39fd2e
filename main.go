package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/technova-support-bot/agent/contract"
	loopx "github.com/tanpawarit/technova-support-bot/agent/loop"
	promptx "github.com/tanpawarit/technova-support-bot/agent/prompt"
	storex "github.com/tanpawarit/technova-support-bot/agent/store"
	toolx "github.com/tanpawarit/technova-support-bot/agent/tool"
	claudex "github.com/tanpawarit/technova-support-bot/pkg/claude"
	configx "github.com/tanpawarit/technova-support-bot/pkg/config"
	consolex "github.com/tanpawarit/technova-support-bot/pkg/console"
	logx "github.com/tanpawarit/technova-support-bot/pkg/logger"
	openrouterx "github.com/tanpawarit/technova-support-bot/pkg/openrouter"
	webhookx "github.com/tanpawarit/technova-support-bot/pkg/webhook"
)

type AppConfig struct {
	Provider      string `envconfig:"LLM_PROVIDER" default:"claude"`
	MaxTokens     int    `envconfig:"MAX_TOKENS" default:"4096"`
	MaxToolRounds int    `envconfig:"MAX_TOOL_ROUNDS" default:"16"`
	FallbackReply string `envconfig:"FALLBACK_REPLY"`
}

func main() {
	logCfg := configx.MustLoad[logx.Config]("LOG")
	logx.Init(*logCfg)

	appCfg := configx.MustLoad[AppConfig]("")

	store, err := storex.Seeded()
	if err != nil {
		log.Fatal().Err(err).Msg("seed data store")
	}

	var toolOpts []toolx.Option
	webhookCfg := configx.MustLoad[webhookx.Config]("WEBHOOK")
	if webhookCfg.Enabled() {
		publisher, err := webhookx.New(*webhookCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize webhook publisher")
		}
		toolOpts = append(toolOpts, toolx.WithCancelPublisher(publisher))
	}

	dispatcher, err := toolx.New(store, toolOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("build tool dispatcher")
	}

	model, err := buildChatModel(appCfg.Provider)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize chat model")
	}

	ui := consolex.New()

	conversation, err := loopx.New(model, dispatcher,
		loopx.WithSystemPrompt(promptx.System()),
		loopx.WithMaxTokens(appCfg.MaxTokens),
		loopx.WithMaxToolRounds(appCfg.MaxToolRounds),
		loopx.WithFallbackReply(appCfg.FallbackReply),
		loopx.WithToolUseNotifier(ui.ShowToolUse),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build conversation loop")
	}

	ui.Banner("Welcome to the TechNova Customer Support")

	if err := conversation.Run(context.Background(), ui); err != nil {
		log.Fatal().Err(err).Msg("conversation ended abnormally")
	}
}

func buildChatModel(provider string) (contract.ChatModel, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "claude", "":
		cfg := configx.MustLoad[claudex.Config]("CLAUDE")
		return claudex.New(*cfg)
	case "openrouter":
		cfg := configx.MustLoad[openrouterx.Config]("OPENROUTER")
		return openrouterx.New(*cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
