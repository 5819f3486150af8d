package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"daisy/core"
	"daisy/httpapi"
	"daisy/pkg/config"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{Use: "daisy"}
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(keygenCmd())
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(prepareCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var envName string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "start a daisy node (api/leader/follower per config)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(envName)
		},
	}
	cmd.Flags().StringVar(&envName, "env", "", "environment overlay to merge onto default.yaml")
	return cmd
}

func runNode(envName string) error {
	log := logrus.StandardLogger()
	cfg, err := config.Load(envName)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if level, perr := logrus.ParseLevel(cfg.Logging.Level); perr == nil {
		log.SetLevel(level)
	}

	client, err := core.NewHTTPDAGClient(cfg.IPFSAPIURL, cfg.CacheSize, log)
	if err != nil {
		return fmt.Errorf("dag client: %w", err)
	}
	storage := core.NewStorage(client, log)
	codeRoot := core.Hash(cfg.CodeRootHash)
	runner := core.NewWasmRunner(codeRoot, log)
	reader := core.NewWasmReader(codeRoot, log)
	processor := core.NewProcessor(storage, runner)
	verifier := core.NewChainVerifier(storage, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initial, err := resolveInitialBlock(ctx, cfg, storage, client)
	if err != nil {
		return fmt.Errorf("resolve initial block: %w", err)
	}

	mode := core.ModeFollower
	if cfg.RunLeader {
		mode = core.ModeLeader
	}
	tracker := core.NewTracker(storage, processor, verifier, reader, mode, initial, log)

	switch {
	case cfg.RunLeader:
		publisher := core.NewPublisher(client, cfg.IPFSKey)
		loop := core.NewLeaderLoop(tracker, publisher, time.Duration(cfg.MiningIntervalMS)*time.Millisecond, log)
		go loop.Run(ctx)
	case cfg.RunFollower:
		loop := core.NewFollowerLoop(tracker, storage, client, cfg.IPFSKey, time.Duration(cfg.PullingIntervalMS)*time.Millisecond, log)
		go loop.Run(ctx)
	}

	var srv *http.Server
	if cfg.RunAPI {
		_, router := httpapi.NewServer(tracker, storage, reader, log)
		srv = &http.Server{Addr: fmt.Sprintf(":%d", cfg.APIPort), Handler: router}
		go func() {
			log.WithField("addr", srv.Addr).Info("http api listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Fatal("http api failed")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	cancel()
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}

func resolveInitialBlock(ctx context.Context, cfg *config.Config, storage *core.Storage, client core.DAGClient) (core.Block, error) {
	switch cfg.InitialBlockReferenceKind {
	case config.InitialBlockResolve:
		root, err := core.Resolve(ctx, client, cfg.IPFSKey)
		if err != nil {
			if core.IsNotFound(err) {
				return core.Genesis(ctx, storage)
			}
			return core.Block{}, err
		}
		tree, err := storage.GetAll(ctx, root, "")
		if err != nil {
			return core.Block{}, err
		}
		return core.DeserializeBlock(tree)
	case config.InitialBlockHash:
		tree, err := storage.GetAll(ctx, core.Hash(cfg.InitialBlockHash), "")
		if err != nil {
			return core.Block{}, err
		}
		return core.DeserializeBlock(tree)
	default:
		return core.Genesis(ctx, storage)
	}
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "generate a secp256k1 keypair, printing base64 (public, private)",
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := core.GenerateKeyPair()
			if err != nil {
				return err
			}
			fmt.Printf("public:  %s\n", base64.StdEncoding.EncodeToString(kp.Public))
			fmt.Printf("private: %s\n", base64.StdEncoding.EncodeToString(kp.Private))
			return nil
		},
	}
}

func signCmd() *cobra.Command {
	var privB64, function string
	cmd := &cobra.Command{
		Use:   "sign [args...]",
		Short: "sign an invocation with a base64 private key",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := base64.StdEncoding.DecodeString(privB64)
			if err != nil {
				return fmt.Errorf("decode private key: %w", err)
			}
			kp := core.KeyPairFromPrivate(priv)
			inv := core.Invocation{Function: function, Args: args}
			sig, err := core.Sign(core.EncodeInvocation(inv), kp)
			if err != nil {
				return err
			}
			fmt.Printf("signature: %s\n", base64.StdEncoding.EncodeToString(sig.Sig))
			fmt.Printf("public_key: %s\n", base64.StdEncoding.EncodeToString(sig.Pub))
			return nil
		},
	}
	cmd.Flags().StringVar(&privB64, "private-key", "", "base64-encoded private key")
	cmd.Flags().StringVar(&function, "function", "", "invocation function name")
	_ = cmd.MarkFlagRequired("private-key")
	_ = cmd.MarkFlagRequired("function")
	return cmd
}

func prepareCmd() *cobra.Command {
	var function string
	cmd := &cobra.Command{
		Use:   "prepare [args...]",
		Short: "print the base64 deterministic invocation payload to sign externally",
		RunE: func(cmd *cobra.Command, args []string) error {
			inv := core.Invocation{Function: function, Args: args}
			fmt.Println(base64.StdEncoding.EncodeToString(core.EncodeInvocation(inv)))
			return nil
		},
	}
	cmd.Flags().StringVar(&function, "function", "", "invocation function name")
	_ = cmd.MarkFlagRequired("function")
	return cmd
}
