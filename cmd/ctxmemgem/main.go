package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	ctxmemgem "github.com/RKBobe/CtxMemGem"
	"github.com/RKBobe/CtxMemGem/embedding/ollama"
	"github.com/RKBobe/CtxMemGem/persistence/chromem"
	"github.com/RKBobe/CtxMemGem/persistence/redis"
	"github.com/RKBobe/CtxMemGem/source/github"
	"github.com/RKBobe/CtxMemGem/synthesis"
	"github.com/RKBobe/CtxMemGem/synthesis/gemini"
	"github.com/RKBobe/CtxMemGem/vector"

	mcpE "github.com/RKBobe/CtxMemGem/mcp"
	httpT "github.com/RKBobe/CtxMemGem/transport/http"
	natsT "github.com/RKBobe/CtxMemGem/transport/nats"
)

func init() {
	// Load .env file if exists
	_ = godotenv.Load()
}

func main() {
	cmd := &cli.Command{
		Name:  "ctxmemgem",
		Usage: "Repository memory service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the CtxMemGem state directory",
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP server address",
				Value: ":8080",
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL (empty disables the NATS transport)",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".ctxmemgem")
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err != nil {
		return err
	}
	defer f.Close()

	var cfg ctxmemgem.Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return err
	}

	var store vector.Store
	switch cfg.Vector.Provider {
	case vector.ProviderRedis:
		store, err = redis.NewRedisVectorStore(cfg.Vector)

	default:
		cfg.Vector.Path = filepath.Join(path, "vectors")
		store, err = chromem.NewChromemVectorStore(cfg.Vector)
	}

	if err != nil {
		return err
	}

	embedder := ollama.NewClient(cfg.Embedding, func(status string, completed, total int64) {
		log.Info("pulling embedding model",
			zap.String("status", status),
			zap.Int64("completed", completed),
			zap.Int64("total", total),
		)
	})

	if err := embedder.Initialize(ctx); err != nil {
		return err
	}

	log.Info("embedder ready",
		zap.String("model", embedder.ModelName()),
		zap.Int("dimension", embedder.Dimension()),
	)

	tokens := github.NewTokenStore(os.Getenv("GITHUB_TOKEN"))
	fetcher := github.NewFetcher(cfg.GitHub, tokens)

	var synthesizer synthesis.Synthesizer
	if cfg.Synthesis.APIKey != "" || os.Getenv("GEMINI_API_KEY") != "" {
		s, err := gemini.NewSynthesizer(ctx, cfg.Synthesis)
		if err != nil {
			return err
		}

		synthesizer = s
	} else {
		log.Warn("synthesis disabled: no Gemini API key")
	}

	svc, err := ctxmemgem.NewService(cfg, store, embedder, fetcher, synthesizer)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc = ctxmemgem.LoggingMiddleware(log)(svc)

	endpoints := ctxmemgem.EndpointSet{
		IngestRepository: ctxmemgem.IngestRepositoryEndpoint(svc),
		RetrieveContext:  ctxmemgem.RetrieveContextEndpoint(svc),
		Ask:              ctxmemgem.AskEndpoint(svc),
		ListCollections:  ctxmemgem.ListCollectionsEndpoint(svc),
	}

	// Add NATS Transport
	natsURL := cmd.String("nats")
	if natsURL != "" {
		opts := []nats.Option{
			nats.Name("CtxMemGem Server"),
		}

		if creds := cmd.String("nats-creds"); creds != "" {
			opts = append(opts, nats.UserCredentials(creds))
		}

		nc, err := nats.Connect(natsURL, opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "ctxmemgem",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		root := srv.AddGroup("ctxmemgem")
		natsT.AddEndpoints(root, endpoints)
	}

	r := gin.Default()
	httpT.AddRouters(r, endpoints)
	httpT.AddAuthRouters(r, cfg.GitHub, tokens)

	mcpEndpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
	mcpEndpoints[mcp.MethodInitialize] = mcpE.InitializeEndpoint(svc)
	mcpEndpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
	mcpEndpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint(svc)
	mcpEndpoints[mcp.MethodToolsCall] = mcpE.CallToolEndpoint(svc)
	httpT.AddStreamableRouters(r, mcpEndpoints)

	httpAddr := cmd.String("http-addr")
	go r.Run(httpAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}
