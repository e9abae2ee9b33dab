// Command davinci-vote casts a vote in a DaVinci process through a
// sequencer and follows it until it reaches a terminal status.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vocdoni/davinci-sdk/api/client"
	"github.com/vocdoni/davinci-sdk/ballot"
	"github.com/vocdoni/davinci-sdk/crypto/ethereum"
	"github.com/vocdoni/davinci-sdk/log"
	"github.com/vocdoni/davinci-sdk/prover"
	"github.com/vocdoni/davinci-sdk/types"
	"github.com/vocdoni/davinci-sdk/util"
	"github.com/vocdoni/davinci-sdk/vote"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Output, nil)
	log.Infow("starting davinci-vote", "version", Version)

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg *Config) error {
	signer, err := ethereum.NewSignerFromHex(util.TrimHex(cfg.Vote.PrivKey))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	pid, err := types.HexStringToHexBytes(cfg.Vote.Process)
	if err != nil {
		return fmt.Errorf("invalid process id: %w", err)
	}

	cli, err := client.New(cfg.Sequencer.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to sequencer: %w", err)
	}

	process, err := cli.Process(ctx, pid)
	if err != nil {
		return fmt.Errorf("failed to fetch process: %w", err)
	}
	questions, err := processQuestions(ctx, cli, process)
	if err != nil {
		return err
	}
	printQuestions(questions, cfg.Vote.Answers)

	orchestrator := vote.NewOrchestrator(cli, prover.New())
	if _, err := orchestrator.CheckEligibility(ctx, process, signer.Address()); err != nil {
		return err
	}
	orchestrator.OnProgress(func(p vote.Progress) {
		if p.Stage == vote.StageIdle {
			return
		}
		log.Infow("submission progress", "stage", p.Stage.String(), "elapsed", p.Elapsed)
	})

	submitted, tracking, err := orchestrator.Submit(ctx, signer, process, questions, cfg.Vote.Answers)
	if err != nil {
		return err
	}
	defer tracking.Stop()
	fmt.Printf("vote submitted, id %s\n", submitted.VoteID)

	// follow the vote until a terminal status or an interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	for {
		select {
		case status, ok := <-tracking.Updates():
			if !ok {
				return nil
			}
			fmt.Printf("vote status: %s\n", status)
			if status.Terminal() {
				return nil
			}
		case sig := <-sigCh:
			log.Infow("received signal, stopped tracking", "signal", sig.String())
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// processQuestions resolves the questions of the process, fetching its
// metadata from the sequencer when the process record does not embed it.
func processQuestions(ctx context.Context, cli *client.HTTPclient, process *types.Process) ([]types.Question, error) {
	metadata := process.Metadata
	if metadata == nil {
		hash, err := types.HexStringToHexBytes(process.MetadataURI)
		if err != nil {
			return nil, fmt.Errorf("process has no metadata and its URI is not a hash: %w", err)
		}
		if metadata, err = cli.Metadata(ctx, hash); err != nil {
			return nil, fmt.Errorf("failed to fetch process metadata: %w", err)
		}
	}
	if len(metadata.Questions) == 0 {
		return nil, fmt.Errorf("process metadata carries no questions")
	}
	return metadata.Questions, nil
}

func printQuestions(questions []types.Question, answers []int) {
	for i, q := range questions {
		fmt.Printf("question %d: %s\n", i, q.Title["default"])
		for _, choice := range q.Choices {
			marker := " "
			if i < len(answers) && answers[i] != ballot.SentinelAnswer && answers[i] == choice.Value {
				marker = "*"
			}
			fmt.Printf("  [%s] %d: %s\n", marker, choice.Value, choice.Title["default"])
		}
	}
}
