package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/graph"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/oracle"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/render"
	"github.com/goodnatureofminers/txancestry-backend/internal/dotenv"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

const (
	formatJSON = "json"
	formatDOT  = "dot"
)

type config struct {
	TxID                string        `long:"txid" env:"ANCESTRY_TXID" description:"root transaction id" required:"true"`
	Depth               int           `long:"depth" env:"ANCESTRY_DEPTH" description:"hops to follow from the root" default:"3"`
	MaxNodes            int           `long:"max-nodes" env:"ANCESTRY_MAX_NODES" description:"abort graphs with more nodes, 0 disables" default:"0"`
	Workers             int           `long:"workers" env:"ANCESTRY_WORKERS" description:"concurrent oracle calls" default:"8"`
	Timeout             time.Duration `long:"timeout" env:"ANCESTRY_TIMEOUT" description:"time budget for the whole graph, 0 disables" default:"0"`
	AllowMissingAddress bool          `long:"allow-missing-address" env:"ANCESTRY_ALLOW_MISSING_ADDRESS" description:"keep edges whose spent output has no address"`
	Format              string        `long:"format" env:"ANCESTRY_FORMAT" description:"output format" choice:"json" choice:"dot" default:"json"`
	JQ                  string        `long:"jq" env:"ANCESTRY_JQ" description:"jq expression applied to the JSON document"`
	Verbose             bool          `short:"v" long:"verbose" description:"log traversal progress to stderr"`

	Oracle oracle.Config `group:"Bitcoin node"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config{}
	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	logger := zap.NewNop()
	if cfg.Verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			panic("can't initialize zap logger: " + err.Error())
		}
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(ctx, cfg, os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "ancestry:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, out io.Writer, logger *zap.Logger) error {
	txid, err := oracle.NormalizeTxID(cfg.TxID)
	if err != nil {
		return err
	}
	if cfg.JQ != "" && cfg.Format != formatJSON {
		return errors.New("--jq only applies to json output")
	}
	var filter *render.Filter
	if cfg.JQ != "" {
		if filter, err = render.NewFilter(cfg.JQ); err != nil {
			return err
		}
	}

	client, err := oracle.New(cfg.Oracle, nil, logger.Named("oracle"))
	if err != nil {
		return fmt.Errorf("init oracle: %w", err)
	}
	defer client.Close()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	builder := graph.NewBuilder(client, logger.Named("graph"),
		graph.WithWorkerCount(cfg.Workers),
		graph.WithMaxNodes(cfg.MaxNodes),
		graph.WithRequireAddress(!cfg.AllowMissingAddress),
	)
	g, err := builder.Build(ctx, txid, cfg.Depth)
	if err != nil {
		return err
	}
	return write(out, g, cfg.Format, filter)
}

func write(out io.Writer, g *model.Graph, format string, filter *render.Filter) error {
	if format == formatDOT {
		return render.WriteDOT(out, g)
	}

	doc := render.NewDocument(g)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if filter == nil {
		return enc.Encode(doc)
	}
	values, err := filter.Apply(doc)
	if err != nil {
		return err
	}
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}
