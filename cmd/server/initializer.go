package main

import (
	"context"
	"log"
	"time"

	"unified-thinking/internal/config"
	"unified-thinking/internal/epistemic"
	"unified-thinking/internal/llm"
	"unified-thinking/internal/memory"
	"unified-thinking/internal/metrics"
	"unified-thinking/internal/proof"
	"unified-thinking/internal/repl"
	"unified-thinking/internal/server"
	"unified-thinking/internal/trace"
)

// ServerComponents holds all initialized server components.
type ServerComponents struct {
	Config      *config.Config
	Store       memory.Store
	ReplChannel repl.Channel
	ProofEngine *proof.Engine
	TraceStore  *trace.Store
	LLMClient   llm.Client
	Verifier    server.Verifier
	Collector   *metrics.Collector
	Server      *server.UnifiedServer
}

// InitializeServer creates and initializes all server components.
// This function is extracted from main() to enable testing.
func InitializeServer() (*ServerComponents, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	components := &ServerComponents{Config: cfg}

	store, err := memory.NewStore(&memory.Config{
		Backend:       memory.Backend(cfg.Memory.Backend),
		SQLitePath:    cfg.Memory.SQLitePath,
		SQLiteTimeout: cfg.Memory.SQLiteBusyTimeoutMs,
		Neo4jURI:      cfg.Memory.Neo4jURI,
		Neo4jUser:     cfg.Memory.Neo4jUser,
		Neo4jPassword: cfg.Memory.Neo4jPassword,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Memory.NodeCacheSize > 0 {
		store = memory.NewCachedStore(store, cfg.Memory.NodeCacheSize)
	}
	components.Store = store
	log.Printf("Initialized %s memory store", cfg.Memory.Backend)

	components.Collector = metrics.NewCollector()

	needsLLM := cfg.Features.EpistemicVerification || (cfg.Features.ProofGeneration && cfg.Proof.EnableLearning)
	if needsLLM {
		components.LLMClient = buildLLMClient(cfg)
	}

	if cfg.Features.ProofGeneration {
		ctx := context.Background()
		channel, err := repl.NewProcessChannel(ctx, cfg.Proof.ReplBinary, cfg.Proof.ReplArgs...)
		if err != nil {
			log.Printf("Warning: proof-assistant subprocess unavailable (%v), prove tool will report errors until one is configured", err)
		} else {
			components.ReplChannel = channel
			engineCfg := proof.EngineConfig{
				MaxTacticsPerTier: cfg.Proof.MaxTacticsPerTier,
				DecidableTimeout:  millis(cfg.Proof.DecidableTimeoutMs),
				AutomationTimeout: millis(cfg.Proof.AutomationTimeoutMs),
				AITimeout:         millis(cfg.Proof.AITimeoutMs),
				EnableAI:          cfg.Proof.EnableAI,
				EnableLearning:    cfg.Proof.EnableLearning,
				TryVariations:     cfg.Proof.TryVariations,
			}
			components.ProofEngine = proof.NewEngine(engineCfg, channel).WithMemory(store)
			if cfg.Proof.EnableLearning && components.LLMClient != nil {
				if index, err := memory.NewEmbeddingIndex(store); err != nil {
					log.Printf("Warning: proof-pattern embedding index unavailable (%v), recall falls back to exact-match search", err)
				} else {
					components.ProofEngine = components.ProofEngine.WithEmbeddings(components.LLMClient, index)
					log.Println("Initialized proof-pattern embedding recall")
				}
			}
			log.Println("Initialized tiered proof engine")
		}
	} else {
		log.Println("Proof generation disabled via features.proof_generation")
	}

	if cfg.Features.TracePersistence {
		components.TraceStore = trace.NewStore(store)
		log.Println("Initialized reasoning trace store")
	}

	if cfg.Features.EpistemicVerification {
		client := components.LLMClient

		verConfig := epistemic.VerificationConfig{
			NSamples:               uint32(cfg.Epistemic.NumSamples),
			SampleTemperature:      epistemic.DefaultVerificationConfig().SampleTemperature,
			HallucinationThreshold: cfg.Epistemic.GroundedThreshold,
			VerifyAllClaims:        true,
			VerificationModel:      cfg.Epistemic.VerifierModel,
		}

		if cfg.Epistemic.UseBatchVerification {
			components.Verifier = epistemic.NewBatchVerifier(client, verConfig)
			log.Println("Initialized batch epistemic verifier")
		} else {
			components.Verifier = epistemic.NewSelfVerifier(client, verConfig)
			log.Println("Initialized self epistemic verifier")
		}
	} else {
		log.Println("Epistemic verification disabled via features.epistemic_verification")
	}

	components.Server = server.NewUnifiedServer(
		components.Store,
		components.ProofEngine,
		components.TraceStore,
		components.Verifier,
		components.Collector,
	)
	log.Println("Created unified server")

	return components, nil
}

// buildLLMClient assembles an llm.Client from whichever provider API keys
// are configured, falling back to a mock client so the server still starts
// (with verification effectively disabled) when none are present.
func buildLLMClient(cfg *config.Config) llm.Client {
	multi := llm.NewMultiProviderClient()
	configured := false
	timeout := uint64(cfg.LLM.TimeoutSeconds)

	if cfg.LLM.AnthropicAPIKey != "" {
		multi.WithClient(llm.ProviderAnthropic, llm.NewAnthropicClient(llm.NewClientConfig(cfg.LLM.AnthropicAPIKey).WithTimeout(timeout)))
		configured = true
	}
	if cfg.LLM.OpenAIAPIKey != "" {
		multi.WithClient(llm.ProviderOpenAI, llm.NewOpenAIClient(llm.NewClientConfig(cfg.LLM.OpenAIAPIKey).WithTimeout(timeout)))
		configured = true
	}
	if cfg.LLM.GoogleAPIKey != "" {
		multi.WithClient(llm.ProviderGoogle, llm.NewGoogleClient(llm.NewClientConfig(cfg.LLM.GoogleAPIKey).WithTimeout(timeout)))
		configured = true
	}

	if !configured {
		log.Println("No LLM provider API key configured, falling back to mock client")
		return llm.NewMockClient(llm.CompletionResponse{Content: ""})
	}

	provider := llm.Provider(cfg.LLM.DefaultProvider)
	multi.WithDefaultProvider(provider)

	var client llm.Client = multi
	if cfg.LLM.TrackCosts {
		client = llm.NewTrackedClient(client)
	}
	return client
}

func millis(n int) (d time.Duration) {
	return time.Duration(n) * time.Millisecond
}

// Cleanup closes all server resources.
func (c *ServerComponents) Cleanup() error {
	if c.ReplChannel != nil {
		if err := c.ReplChannel.Shutdown(context.Background()); err != nil {
			log.Printf("Warning: failed to shut down proof-assistant subprocess: %v", err)
		}
	}
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
