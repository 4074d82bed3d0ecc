// Command indexer is the CLI entrypoint: flag-based subcommands, following
// the teacher's cmd/chrd/main.go shape (one flag.FlagSet per subcommand,
// switch on os.Args[1]), standing in for the live RPC-fetcher/event-observer
// collaborators the core module doesn't itself own.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/chrondx/indexer/internal/sink"
	"github.com/chrondx/indexer/pkg/chainevent"
	"github.com/chrondx/indexer/pkg/indexer"
	"github.com/chrondx/indexer/pkg/logging"
	"github.com/chrondx/indexer/pkg/metrics"
	"github.com/chrondx/indexer/pkg/normalize"
)

// envelope is one line of an ingest fixture: a discriminant plus the raw
// payload for whichever normalizer it targets.
type envelope struct {
	Kind    string          `json:"kind"` // "bitcoin_block" | "stacks_block" | "stacks_microblock"
	Payload json.RawMessage `json:"payload"`
}

// stacksMicroblockPayload carries the anchor a microblock trail claims to
// extend alongside the trail itself. The anchor is carried explicitly in
// the fixture rather than inferred from whatever the indexer's tracker
// currently holds, since the anchor block for a trail may not have been
// ingested yet (spec §1: arrival order is arbitrary).
type stacksMicroblockPayload struct {
	AnchorIndex uint64                          `json:"anchor_index"`
	AnchorHash  string                          `json:"anchor_hash"`
	Microblocks []normalize.RawStacksMicroblock `json:"microblocks"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ingest":
		ingestCmd := flag.NewFlagSet("ingest", flag.ExitOnError)
		fixturePath := ingestCmd.String("fixture", "", "path to a JSONL envelope fixture (defaults to stdin)")
		metricsAddr := ingestCmd.String("metrics-addr", ":9102", "address to serve /metrics and /healthz on")
		logLevel := ingestCmd.String("log-level", "info", "zerolog level")
		logPretty := ingestCmd.Bool("log-pretty", false, "use the console writer instead of JSON logs")
		ingestCmd.Parse(os.Args[2:])
		runIngest(*fixturePath, *metricsAddr, *logLevel, *logPretty)
	case "replay":
		replayCmd := flag.NewFlagSet("replay", flag.ExitOnError)
		eventLogPath := replayCmd.String("events", "", "path to a captured ChainEvent JSONL log")
		fixturePath := replayCmd.String("fixture", "", "path to the JSONL envelope fixture that produced it")
		replayCmd.Parse(os.Args[2:])
		if *eventLogPath == "" || *fixturePath == "" {
			fmt.Println("Error: --events and --fixture are required")
			os.Exit(1)
		}
		runReplay(*fixturePath, *eventLogPath)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  indexer ingest [--fixture path] [--metrics-addr :9102] [--log-level info]")
	fmt.Println("  indexer replay --fixture path --events path")
}

// runIngest drives an Indexer from a JSONL envelope stream, the local
// stand-in for the live RPC fetcher the core module doesn't own, logging and
// exposing metrics the way a long-running deployment would.
func runIngest(fixturePath, metricsAddr, logLevel string, logPretty bool) {
	log := logging.New(logLevel, logPretty)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	events := sink.NewChannel(256)
	idx := indexer.New(events, collector, log)

	metricsSrv := metrics.NewServer(metricsAddr, reg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := metricsSrv.ListenAndServe(ctx); err != nil {
			log.Error().Err(err).Msg("metrics server exited")
		}
	}()

	go func() {
		for ev := range events.Events() {
			log.Info().Str("chain", ev.Chain).Str("type", string(ev.Type)).Msg("chain event emitted")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn().Msg("shutting down")
		cancel()
		events.Close()
	}()

	in, closeFn, err := openFixture(fixturePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open fixture")
	}
	defer closeFn()

	if err := driveFixture(ctx, idx, in, log); err != nil {
		log.Error().Err(err).Msg("ingestion stopped")
	}
}

// runReplay re-drives a captured fixture through a fresh Indexer and compares
// the events it produces against a previously captured event log: the event
// count, and each event's type and chain in order (block contents are not
// compared), exercising the determinism property from spec §7/§8.
func runReplay(fixturePath, eventLogPath string) {
	log := logging.New("info", false)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	replayed := sink.NewChannel(4096)
	idx := indexer.New(replayed, collector, log)

	in, closeFn, err := openFixture(fixturePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open fixture")
	}
	defer closeFn()

	if err := driveFixture(context.Background(), idx, in, log); err != nil {
		log.Fatal().Err(err).Msg("replay ingestion failed")
	}
	replayed.Close()

	recordedFile, err := os.Open(eventLogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open recorded event log")
	}
	defer recordedFile.Close()

	var recorded, got []chainevent.ChainEvent
	recScanner := bufio.NewScanner(recordedFile)
	for recScanner.Scan() {
		var ev chainevent.ChainEvent
		if err := json.Unmarshal(recScanner.Bytes(), &ev); err != nil {
			log.Fatal().Err(err).Msg("malformed recorded event")
		}
		recorded = append(recorded, ev)
	}
	// Close does not close the receive side, so drain what is buffered
	// without blocking instead of ranging over the channel.
drain:
	for {
		select {
		case ev := <-replayed.Events():
			got = append(got, ev)
		default:
			break drain
		}
	}

	if len(recorded) != len(got) {
		fmt.Printf("replay mismatch: recorded %d events, replay produced %d\n", len(recorded), len(got))
		os.Exit(1)
	}
	for i := range recorded {
		if recorded[i].Type != got[i].Type || recorded[i].Chain != got[i].Chain {
			fmt.Printf("replay mismatch at event %d: recorded %s/%s, got %s/%s\n",
				i, recorded[i].Chain, recorded[i].Type, got[i].Chain, got[i].Type)
			os.Exit(1)
		}
	}
	fmt.Printf("replay matched: %d events\n", len(got))
}

func openFixture(path string) (*bufio.Scanner, func(), error) {
	if path == "" {
		return bufio.NewScanner(os.Stdin), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return bufio.NewScanner(f), func() { f.Close() }, nil
}

// driveFixture reads one envelope per line and calls the matching Indexer
// method, retrying only on lock contention via indexer.ProcessWithRetry.
func driveFixture(ctx context.Context, idx *indexer.Indexer, in *bufio.Scanner, log zerolog.Logger) error {
	for in.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := in.Bytes()
		if len(line) == 0 {
			continue
		}
		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			log.Warn().Err(err).Msg("skipping malformed envelope line")
			continue
		}

		var handleErr error
		switch env.Kind {
		case "bitcoin_block":
			var raw normalize.RawBitcoinBlock
			if err := json.Unmarshal(env.Payload, &raw); err != nil {
				log.Warn().Err(err).Msg("skipping malformed bitcoin_block payload")
				continue
			}
			handleErr = indexer.ProcessWithRetry(ctx, func() error { return idx.HandleBitcoinBlock(ctx, raw) })
		case "stacks_block":
			var raw normalize.RawStacksBlock
			if err := json.Unmarshal(env.Payload, &raw); err != nil {
				log.Warn().Err(err).Msg("skipping malformed stacks_block payload")
				continue
			}
			handleErr = indexer.ProcessWithRetry(ctx, func() error { return idx.HandleStacksBlock(ctx, raw) })
		case "stacks_microblock":
			var payload stacksMicroblockPayload
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				log.Warn().Err(err).Msg("skipping malformed stacks_microblock payload")
				continue
			}
			anchorHash, err := chainevent.HashFromHex(payload.AnchorHash)
			if err != nil {
				log.Warn().Err(err).Msg("skipping stacks_microblock envelope with malformed anchor hash")
				continue
			}
			anchor := chainevent.BlockIdentifier{Index: payload.AnchorIndex, Hash: anchorHash}
			handleErr = indexer.ProcessWithRetry(ctx, func() error {
				return idx.HandleStacksMicroblock(ctx, anchor, payload.Microblocks)
			})
		default:
			log.Warn().Str("kind", env.Kind).Msg("skipping envelope with unknown kind")
			continue
		}

		if handleErr != nil {
			log.Warn().Err(handleErr).Str("kind", env.Kind).Msg("envelope processing failed, state left unmodified")
		}
	}
	return in.Err()
}
