package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/oracle"
	"github.com/goodnatureofminers/txancestry-backend/pkg/workerpool"
	"github.com/lightningnetwork/lnd/fn/v2"
	"go.uber.org/zap"
)

const defaultWorkerCount = 8

// Builder reconstructs ancestry graphs. A Builder is safe for concurrent use;
// every Build call gets its own visited set and resolution cache.
type Builder struct {
	oracle         Oracle
	logger         *zap.Logger
	metrics        Metrics
	workerCount    int
	maxNodes       int
	requireAddress bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithWorkerCount bounds concurrent oracle calls per traversal level.
func WithWorkerCount(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workerCount = n
		}
	}
}

// WithMaxNodes aborts traversals that discover more than n nodes. Zero disables the limit.
func WithMaxNodes(n int) Option {
	return func(b *Builder) {
		if n >= 0 {
			b.maxNodes = n
		}
	}
}

// WithRequireAddress controls whether spent outputs without a decodable
// address still produce edges.
func WithRequireAddress(require bool) Option {
	return func(b *Builder) {
		b.requireAddress = require
	}
}

// WithMetrics records every traversal.
func WithMetrics(m Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// NewBuilder constructs a Builder resolving transactions through o.
func NewBuilder(o Oracle, logger *zap.Logger, opts ...Option) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Builder{
		oracle:         o,
		logger:         logger,
		workerCount:    defaultWorkerCount,
		requireAddress: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// workItem is one non-coinbase input of a frontier transaction.
type workItem struct {
	order int
	tx    *model.Transaction
	input model.TransactionInput
	prev  model.OutPoint
}

// workResult carries either an edge with its funding transaction or a notice.
type workResult struct {
	edge   model.Edge
	prevTx *model.Transaction
	notice fn.Option[model.Notice]
}

// Build returns the ancestry graph of root up to maxDepth hops. A node at
// depth d has its inputs followed only while d < maxDepth. The graph root is
// the txid as the oracle reports it.
//
// If the root cannot be resolved for reasons specific to it, Build returns an
// empty graph together with an error wrapping ErrRootNotFound. Any failure not
// attributable to a single transaction aborts the traversal.
func (b *Builder) Build(ctx context.Context, root string, maxDepth int) (g *model.Graph, err error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, maxDepth)
	}

	started := time.Now()
	defer func() {
		if b.metrics == nil {
			return
		}
		var nodes, edges, notices int
		if g != nil {
			nodes, edges, notices = len(g.Nodes), len(g.Edges), len(g.Notices)
		}
		b.metrics.ObserveBuild(err, nodes, edges, notices, started)
	}()

	logger := b.logger.With(zap.String("root", root), zap.Int("max_depth", maxDepth))
	resolver := newCache(b.oracle)
	acc := newAccumulator(root, maxDepth, b.maxNodes)

	rootTx, err := resolver.resolve(ctx, root)
	if err != nil {
		if oracle.IsLocal(err) {
			logger.Info("root transaction unresolvable", zap.Error(err))
			return acc.graph, fmt.Errorf("%w: %w", ErrRootNotFound, err)
		}
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	acc.graph.Root = rootTx.TxID
	if _, err := acc.addNode(rootTx, 0); err != nil {
		return nil, err
	}

	frontier := []*model.Transaction{rootTx}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items := collectInputs(frontier)
		results := make([]workResult, len(items))
		err := workerpool.Process(ctx, b.workerCount, items, func(ctx context.Context, item workItem) error {
			res, err := b.followInput(ctx, resolver, item)
			if err != nil {
				return err
			}
			results[item.order] = res
			return nil
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("expand depth %d: %w", depth+1, err)
		}

		var next []*model.Transaction
		for _, res := range results {
			if res.notice.IsSome() {
				n := res.notice.UnwrapOr(model.Notice{})
				logger.Debug("input skipped",
					zap.String("txid", n.TxID),
					zap.Uint32("vin", n.Vin),
					zap.String("reason", string(n.Reason)),
				)
				acc.addNotice(n)
				continue
			}
			acc.addEdge(res.edge)
			added, err := acc.addNode(res.prevTx, depth+1)
			if err != nil {
				return nil, err
			}
			if added {
				next = append(next, res.prevTx)
			}
		}
		frontier = next
	}

	logger.Debug("ancestry graph built",
		zap.Int("nodes", len(acc.graph.Nodes)),
		zap.Int("edges", len(acc.graph.Edges)),
		zap.Int("notices", len(acc.graph.Notices)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return acc.graph, nil
}

func collectInputs(frontier []*model.Transaction) []workItem {
	var items []workItem
	for _, tx := range frontier {
		for _, in := range tx.Inputs {
			in.Prev.WhenSome(func(prev model.OutPoint) {
				items = append(items, workItem{
					order: len(items),
					tx:    tx,
					input: in,
					prev:  prev,
				})
			})
		}
	}
	return items
}

// followInput resolves the transaction funding item and turns it into an
// edge. Failures local to the funding transaction become notices; anything
// else is returned and aborts the level.
func (b *Builder) followInput(ctx context.Context, resolver *cache, item workItem) (workResult, error) {
	notice := model.Notice{
		TxID:     item.tx.TxID,
		Vin:      item.input.Index,
		PrevTxID: item.prev.TxID,
		Vout:     item.prev.Vout,
	}

	prevTx, err := resolver.resolve(ctx, item.prev.TxID)
	if err != nil {
		if !oracle.IsLocal(err) {
			return workResult{}, err
		}
		notice.Reason = noticeReason(err)
		notice.Detail = err.Error()
		return workResult{notice: fn.Some(notice)}, nil
	}

	out, ok := prevTx.Output(item.prev.Vout)
	if !ok {
		notice.Reason = model.NoticeVoutOutOfRange
		notice.Detail = fmt.Sprintf("transaction has %d outputs", len(prevTx.Outputs))
		return workResult{notice: fn.Some(notice)}, nil
	}
	if b.requireAddress && out.Address.IsNone() {
		notice.Reason = model.NoticeAddressMissing
		notice.Detail = fmt.Sprintf("output script type %q", out.ScriptType)
		return workResult{notice: fn.Some(notice)}, nil
	}

	return workResult{
		edge: model.Edge{
			Source:  prevTx.TxID,
			Target:  item.tx.TxID,
			Vin:     item.input.Index,
			Vout:    item.prev.Vout,
			Address: out.Address,
			Value:   out.Value,
		},
		prevTx: prevTx,
		notice: fn.None[model.Notice](),
	}, nil
}

func noticeReason(err error) model.NoticeReason {
	kind, _ := oracle.KindOf(err)
	switch kind {
	case oracle.KindNotFound:
		return model.NoticePrevNotFound
	case oracle.KindMalformed:
		return model.NoticePrevMalformed
	default:
		return model.NoticePrevRPCError
	}
}
