package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/sells-group/jace/internal/compliance"
	"github.com/sells-group/jace/internal/config"
	"github.com/sells-group/jace/internal/llm"
	"github.com/sells-group/jace/internal/resilience"
	"github.com/sells-group/jace/internal/rules"
	"github.com/sells-group/jace/internal/scout"
	"github.com/sells-group/jace/internal/store"
	anthropicpkg "github.com/sells-group/jace/pkg/anthropic"
	"github.com/sells-group/jace/pkg/openai"
)

// appEnv holds the components shared by the check, scout, serve, and
// worker commands. Scout is nil when the command needs no model.
type appEnv struct {
	Store  store.Store
	Rules  *rules.Table
	Engine *compliance.Engine
	Scout  *scout.Scout
	Gate   *scout.Gate
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates the config for mode, opens and migrates the store,
// loads the static rule table, and wires the engine, gate, and, for modes
// that call a model, the Scout. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	table, err := rules.Load(cfg.Rules.StaticPath)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("static rules loaded", zap.Int("jurisdictions", table.Len()), zap.String("path", cfg.Rules.StaticPath))

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env := &appEnv{
		Store:  st,
		Rules:  table,
		Engine: compliance.NewEngine(st, table),
		Gate:   scout.NewGate(st),
	}

	switch mode {
	case "scout", "serve", "worker":
		completer, err := initCompleter(cfg)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.Scout = scout.New(completer, st, scoutConfig(cfg))
	}
	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "jace.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initCompleter builds the configured provider wrapped in the rate limit,
// timeout, retry, and breaker guard.
func initCompleter(c *config.Config) (llm.Completer, error) {
	var (
		next      llm.Completer
		maxTokens int
	)
	switch c.LLM.Provider {
	case "anthropic":
		var opts []anthropicpkg.Option
		if c.Anthropic.BaseURL != "" {
			opts = append(opts, anthropicpkg.WithBaseURL(c.Anthropic.BaseURL))
		}
		maxTokens = c.Anthropic.MaxTokens
		next = llm.NewAnthropic(anthropicpkg.NewClient(c.Anthropic.Key, opts...), c.Anthropic.Model, maxTokens)
	case "openai":
		maxTokens = c.OpenAI.MaxTokens
		oc := openai.NewClient(c.OpenAI.Key, openai.WithBaseURL(c.OpenAI.BaseURL), openai.WithModel(c.OpenAI.Model))
		next = llm.NewOpenAI(oc, c.OpenAI.Model, maxTokens)
	default:
		return nil, eris.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}

	retry := resilience.DefaultRetryPolicy()
	if c.LLM.RetryAttempts > 0 {
		retry = retry.WithAttempts(c.LLM.RetryAttempts)
	}
	return llm.NewGuarded(c.LLM.Provider, next, llm.GuardConfig{
		Timeout:           c.LLM.Timeout(),
		RequestsPerMinute: c.LLM.RequestsPerMinute,
		Retry:             retry,
		BreakerThreshold:  c.LLM.BreakerThreshold,
		BreakerCooldown:   c.LLM.BreakerCooldown(),
	}), nil
}

func scoutConfig(c *config.Config) scout.Config {
	sc := scout.DefaultConfig()
	sc.ResearchTemperature = c.Scout.ResearchTemperature
	sc.VerifyTemperature = c.Scout.VerifyTemperature
	sc.MinConfidence = c.Scout.MinConfidence
	switch c.LLM.Provider {
	case "openai":
		sc.MaxTokens = c.OpenAI.MaxTokens
	default:
		sc.MaxTokens = c.Anthropic.MaxTokens
	}
	if sc.MaxTokens <= 0 {
		sc.MaxTokens = llm.DefaultMaxTokens
	}
	return sc
}

func dialTemporal() (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "dial temporal %s", cfg.Temporal.HostPort)
	}
	return c, nil
}
