// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/hypersim/blockchain"
)

var errTestBoom = errors.New("boom")

type testChain struct {
	lock   sync.Mutex
	head   *blockchain.Block
	blocks []*blockchain.Block
}

func newTestChain(t *testing.T) *testChain {
	genesis, err := blockchain.NewGenesis(0)
	require.NoError(t, err)
	return &testChain{head: genesis}
}

func (*testChain) AwaitReady(context.Context) error {
	return nil
}

func (c *testChain) Head() *blockchain.Block {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.head
}

func (c *testChain) SetHead(_ context.Context, blk *blockchain.Block) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.head = blk
	c.blocks = append(c.blocks, blk)
	return nil
}

func (c *testChain) built() []*blockchain.Block {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]*blockchain.Block(nil), c.blocks...)
}

func (c *testChain) builtTxs() int {
	var n int
	for _, blk := range c.built() {
		n += len(blk.Extrinsics)
	}
	return n
}

type testInherents struct{}

func (testInherents) CreateInherents(_ context.Context, parent *blockchain.Block, _ BuildParams) (*blockchain.Inherents, error) {
	return &blockchain.Inherents{Timestamp: parent.Timestamp + 1}, nil
}

func assembleAll(
	_ context.Context,
	parent *blockchain.Block,
	inherents *blockchain.Inherents,
	txs [][]byte,
	upward map[uint32][][]byte,
	_ func([]byte, error),
) (*blockchain.Block, [][]byte, error) {
	blk, err := blockchain.NewBlock(
		parent.Hash(),
		parent.Number+1,
		inherents.Timestamp,
		inherents.Validation,
		txs,
		blockchain.SortedOrigins(upward),
	)
	return blk, nil, err
}

// gatedAssembler blocks its first build until [release] is closed or the
// build context is cancelled.
type gatedAssembler struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newGatedAssembler() *gatedAssembler {
	return &gatedAssembler{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedAssembler) Assemble(
	ctx context.Context,
	parent *blockchain.Block,
	inherents *blockchain.Inherents,
	txs [][]byte,
	upward map[uint32][][]byte,
	onApplyError func([]byte, error),
) (*blockchain.Block, [][]byte, error) {
	if g.calls.Inc() == 1 {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	return assembleAll(ctx, parent, inherents, txs, upward, onApplyError)
}

func newTestPool(t *testing.T, mode Mode, inherents InherentProvider, assemble AssembleFunc) (*TxPool, *testChain) {
	config := NewDefaultConfig()
	config.Mode = mode
	config.BatchQuietWindow = 20 * time.Millisecond
	config.BatchMaxWait = 200 * time.Millisecond

	chain := newTestChain(t)
	p, err := New(config, logging.NoLog{}, trace.Noop, prometheus.NewRegistry(), chain, inherents, assemble)
	require.NoError(t, err)
	p.Start()
	t.Cleanup(func() {
		require.NoError(t, p.Shutdown(context.Background()))
	})
	return p, chain
}

func queued(p *TxPool) int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.requests.Size()
}

func TestNewInvalidMode(t *testing.T) {
	require := require.New(t)

	config := NewDefaultConfig()
	config.Mode = Mode(7)
	_, err := New(config, logging.NoLog{}, trace.Noop, prometheus.NewRegistry(), newTestChain(t), testInherents{}, assembleAll)
	require.ErrorIs(err, ErrInvalidMode)
}

func TestBuildBlockRequeuesNotIncluded(t *testing.T) {
	require := require.New(t)

	var calls atomic.Int32
	assemble := func(
		ctx context.Context,
		parent *blockchain.Block,
		inherents *blockchain.Inherents,
		txs [][]byte,
		upward map[uint32][][]byte,
		onApplyError func([]byte, error),
	) (*blockchain.Block, [][]byte, error) {
		if calls.Inc() > 1 {
			return assembleAll(ctx, parent, inherents, txs, upward, onApplyError)
		}
		var included, notIncluded [][]byte
		for _, tx := range txs {
			if bytes.Equal(tx, []byte("t2")) {
				notIncluded = append(notIncluded, tx)
				continue
			}
			included = append(included, tx)
		}
		blk, _, err := assembleAll(ctx, parent, inherents, included, upward, onApplyError)
		return blk, notIncluded, err
	}
	p, chain := newTestPool(t, Manual, testInherents{}, assemble)

	ctx := context.Background()
	for _, tx := range []string{"t1", "t2", "t3"} {
		require.NoError(p.SubmitTransaction(ctx, []byte(tx)))
	}
	require.Equal(0, queued(p))
	require.Empty(chain.built())

	require.NoError(p.BuildBlock(ctx, nil))
	head := chain.Head()
	require.Equal(uint64(1), head.Number)
	require.Equal([][]byte{[]byte("t1"), []byte("t3")}, head.Extrinsics)
	require.Equal([][]byte{[]byte("t2")}, p.PendingTransactions())

	// The requeued transaction is built ahead of newer submissions.
	require.NoError(p.SubmitTransaction(ctx, []byte("t4")))
	require.NoError(p.BuildBlock(ctx, nil))
	head = chain.Head()
	require.Equal(uint64(2), head.Number)
	require.Equal([][]byte{[]byte("t2"), []byte("t4")}, head.Extrinsics)
	require.Empty(p.PendingTransactions())
}

func TestBuildBlockOverrides(t *testing.T) {
	require := require.New(t)

	p, chain := newTestPool(t, Manual, testInherents{}, assembleAll)

	ctx := context.Background()
	require.NoError(p.SubmitTransaction(ctx, []byte{1}))
	require.NoError(p.SubmitUpward(ctx, 1000, [][]byte{{0xa}}))
	require.NoError(p.BuildBlock(ctx, &Overrides{Transactions: [][]byte{{2}}}))

	head := chain.Head()
	require.Equal([][]byte{{2}}, head.Extrinsics)
	require.Len(head.UpwardMessages, 1)
	require.Equal([][]byte{{1}}, p.PendingTransactions())

	require.NoError(p.BuildBlockWithParams(ctx, BuildParams{Transactions: [][]byte{{3}}}))
	require.Equal([][]byte{{3}}, chain.Head().Extrinsics)
	require.Equal([][]byte{{1}}, p.PendingTransactions())
}

func TestBuildRequestsAreFIFO(t *testing.T) {
	require := require.New(t)

	gate := newGatedAssembler()
	p, chain := newTestPool(t, Manual, testInherents{}, gate.Assemble)

	ctx := context.Background()
	g := &errgroup.Group{}
	g.Go(func() error {
		return p.BuildBlockWithParams(ctx, BuildParams{Transactions: [][]byte{{0}}})
	})
	<-gate.entered
	for i := 1; i < 4; i++ {
		tx := []byte{byte(i)}
		g.Go(func() error {
			return p.BuildBlockWithParams(ctx, BuildParams{Transactions: [][]byte{tx}})
		})
		require.Eventually(func() bool {
			return queued(p) == i+1
		}, time.Second, time.Millisecond)
	}
	close(gate.release)
	require.NoError(g.Wait())

	built := chain.built()
	require.Len(built, 4)
	for i, blk := range built {
		require.Equal(uint64(i+1), blk.Number)
		require.Equal([][]byte{{byte(i)}}, blk.Extrinsics)
	}
}

func TestBuildsAreSingleFlight(t *testing.T) {
	require := require.New(t)

	var (
		active    atomic.Int32
		maxActive atomic.Int32
	)
	assemble := func(
		ctx context.Context,
		parent *blockchain.Block,
		inherents *blockchain.Inherents,
		txs [][]byte,
		upward map[uint32][][]byte,
		onApplyError func([]byte, error),
	) (*blockchain.Block, [][]byte, error) {
		n := active.Inc()
		defer active.Dec()
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		return assembleAll(ctx, parent, inherents, txs, upward, onApplyError)
	}
	p, chain := newTestPool(t, Manual, testInherents{}, assemble)

	ctx := context.Background()
	g := &errgroup.Group{}
	for i := 0; i < 20; i++ {
		tx := []byte{byte(i)}
		g.Go(func() error {
			return p.BuildBlockWithParams(ctx, BuildParams{Transactions: [][]byte{tx}})
		})
	}
	require.NoError(g.Wait())
	require.Equal(int32(1), maxActive.Load())

	built := chain.built()
	require.Len(built, 20)
	for i, blk := range built {
		require.Equal(uint64(i+1), blk.Number)
	}
}

func TestInstantModeBuildsPerSubmission(t *testing.T) {
	require := require.New(t)

	p, chain := newTestPool(t, Instant, testInherents{}, assembleAll)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(p.SubmitTransaction(ctx, []byte{byte(i)}))
	}
	_, err := p.PendingCount(ctx)
	require.NoError(err)

	built := chain.built()
	require.Len(built, 5)
	for i, blk := range built {
		require.Equal([][]byte{{byte(i)}}, blk.Extrinsics)
	}
}

func TestBatchModeCoalescesBurst(t *testing.T) {
	require := require.New(t)

	p, chain := newTestPool(t, Batch, testInherents{}, assembleAll)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(p.SubmitTransaction(ctx, []byte{byte(i)}))
	}
	require.Eventually(func() bool {
		return len(chain.built()) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	built := chain.built()
	require.Len(built, 1)
	require.Len(built[0].Extrinsics, 10)
	require.Empty(p.PendingTransactions())
}

func TestBatchModeBuildsUnderSteadyLoad(t *testing.T) {
	require := require.New(t)

	p, chain := newTestPool(t, Batch, testInherents{}, assembleAll)

	// submissions never leave a quiet window, so only the max wait fires
	ctx := context.Background()
	submitted := 0
	stop := time.Now().Add(700 * time.Millisecond)
	for time.Now().Before(stop) {
		require.NoError(p.SubmitTransaction(ctx, []byte{byte(submitted)}))
		submitted++
		time.Sleep(5 * time.Millisecond)
	}
	require.GreaterOrEqual(len(chain.built()), 2)

	require.NoError(p.BuildBlock(ctx, nil))
	require.Equal(submitted, chain.builtTxs())
}

func TestBuildBlockDropsBatchedBuild(t *testing.T) {
	require := require.New(t)

	p, chain := newTestPool(t, Batch, testInherents{}, assembleAll)

	ctx := context.Background()
	require.NoError(p.SubmitTransaction(ctx, []byte{1}))
	require.NoError(p.BuildBlock(ctx, nil))
	require.Len(chain.built(), 1)

	// the debounced build had nothing left to carry
	time.Sleep(100 * time.Millisecond)
	require.Len(chain.built(), 1)

	// overriding the transactions leaves them pending, so the trigger
	// still fires for them
	require.NoError(p.SubmitTransaction(ctx, []byte{2}))
	require.NoError(p.BuildBlock(ctx, &Overrides{Transactions: [][]byte{{3}}}))
	require.Eventually(func() bool {
		return len(chain.built()) == 3
	}, time.Second, 5*time.Millisecond)
	require.Equal([][]byte{{2}}, chain.Head().Extrinsics)
	require.Empty(p.PendingTransactions())
}

func TestConcurrentSubmissionsAreNotLost(t *testing.T) {
	require := require.New(t)

	p, chain := newTestPool(t, Batch, testInherents{}, assembleAll)

	const (
		submitters = 8
		perWorker  = 50
	)
	ctx := context.Background()
	g := &errgroup.Group{}
	for w := 0; w < submitters; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				if err := p.SubmitTransaction(ctx, []byte{byte(w), byte(i)}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(g.Wait())

	// Flush whatever the trigger has not picked up yet.
	require.NoError(p.BuildBlock(ctx, nil))
	require.Equal(submitters*perWorker, chain.builtTxs())
	require.Empty(p.PendingTransactions())
}

func TestBuildFailureResolvesRequest(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	inherents := NewMockInherentProvider(ctrl)
	gomock.InOrder(
		inherents.EXPECT().CreateInherents(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errTestBoom),
		inherents.EXPECT().CreateInherents(gomock.Any(), gomock.Any(), gomock.Any()).Return(&blockchain.Inherents{Timestamp: 1}, nil),
	)
	p, chain := newTestPool(t, Manual, inherents, assembleAll)

	ctx := context.Background()
	require.NoError(p.SubmitTransaction(ctx, []byte{1}))
	err := p.BuildBlock(ctx, nil)
	require.ErrorIs(err, ErrBuildFailed)
	require.ErrorIs(err, errTestBoom)
	require.Empty(chain.built())
	require.Equal(0, queued(p))

	// The loop keeps serving requests after a failure.
	require.NoError(p.SubmitTransaction(ctx, []byte{2}))
	require.NoError(p.BuildBlock(ctx, nil))
	require.Equal([][]byte{{2}}, chain.Head().Extrinsics)
}

func TestApplyErrorsArePublished(t *testing.T) {
	require := require.New(t)

	errBad := errors.New("bad transaction")
	assemble := func(
		ctx context.Context,
		parent *blockchain.Block,
		inherents *blockchain.Inherents,
		txs [][]byte,
		upward map[uint32][][]byte,
		onApplyError func([]byte, error),
	) (*blockchain.Block, [][]byte, error) {
		var included [][]byte
		for _, tx := range txs {
			if len(tx) == 0 {
				onApplyError(tx, errBad)
				continue
			}
			included = append(included, tx)
		}
		return assembleAll(ctx, parent, inherents, included, upward, onApplyError)
	}
	p, chain := newTestPool(t, Manual, testInherents{}, assemble)
	require.Equal(ApplyExtrinsicErrorEvent, p.ApplyErrors().Name())

	var (
		lock     sync.Mutex
		received []ApplyError
		heads    []*blockchain.Block
	)
	unsubscribe := p.ApplyErrors().SubscribeFunc(func(_ context.Context, e ApplyError) error {
		lock.Lock()
		defer lock.Unlock()
		received = append(received, e)
		return nil
	})
	p.NewHeads().SubscribeFunc(func(_ context.Context, blk *blockchain.Block) error {
		lock.Lock()
		defer lock.Unlock()
		heads = append(heads, blk)
		return nil
	})

	headCount := func() int {
		lock.Lock()
		defer lock.Unlock()
		return len(heads)
	}

	ctx := context.Background()
	require.NoError(p.SubmitTransaction(ctx, []byte{}))
	require.NoError(p.SubmitTransaction(ctx, []byte{1}))
	require.NoError(p.BuildBlock(ctx, nil))

	// apply errors of a build are delivered before its head
	require.Eventually(func() bool {
		return headCount() == 1
	}, time.Second, time.Millisecond)
	lock.Lock()
	require.Len(received, 1)
	require.Empty(received[0].Tx)
	require.ErrorIs(received[0].Err, errBad)
	require.Equal([]*blockchain.Block{chain.Head()}, heads)
	lock.Unlock()

	// Failed transactions are dropped, not requeued.
	require.Empty(p.PendingTransactions())

	require.NoError(unsubscribe())
	require.NoError(p.SubmitTransaction(ctx, []byte{}))
	require.NoError(p.BuildBlock(ctx, nil))

	require.Eventually(func() bool {
		return headCount() == 2
	}, time.Second, time.Millisecond)
	lock.Lock()
	require.Len(received, 1)
	lock.Unlock()
}

func TestNewHeadSubscriberMayBuild(t *testing.T) {
	require := require.New(t)

	p, chain := newTestPool(t, Manual, testInherents{}, assembleAll)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	nested := make(chan error, 1)
	p.NewHeads().SubscribeFunc(func(_ context.Context, blk *blockchain.Block) error {
		if blk.Number == 1 {
			nested <- p.BuildBlockWithParams(ctx, BuildParams{Transactions: [][]byte{{2}}})
		}
		return nil
	})

	require.NoError(p.BuildBlockWithParams(ctx, BuildParams{Transactions: [][]byte{{1}}}))
	require.NoError(<-nested)

	built := chain.built()
	require.Len(built, 2)
	require.Equal([][]byte{{2}}, built[1].Extrinsics)
}

func TestSlowSubscriberDoesNotStallBuilds(t *testing.T) {
	require := require.New(t)

	p, chain := newTestPool(t, Manual, testInherents{}, assembleAll)

	var (
		unblock = make(chan struct{})
		lock    sync.Mutex
		heights []uint64
	)
	p.NewHeads().SubscribeFunc(func(_ context.Context, blk *blockchain.Block) error {
		<-unblock
		lock.Lock()
		defer lock.Unlock()
		heights = append(heights, blk.Number)
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(p.BuildBlockWithParams(ctx, BuildParams{Transactions: [][]byte{{byte(i)}}}))
	}
	require.Len(chain.built(), 3)

	close(unblock)
	require.Eventually(func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(heights) == 3
	}, time.Second, time.Millisecond)
	require.Equal([]uint64{1, 2, 3}, heights)
}

func TestAbandonedWaitStillBuilds(t *testing.T) {
	require := require.New(t)

	gate := newGatedAssembler()
	p, chain := newTestPool(t, Manual, testInherents{}, gate.Assemble)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.BuildBlockWithParams(ctx, BuildParams{Transactions: [][]byte{{1}}})
	require.ErrorIs(err, context.DeadlineExceeded)

	close(gate.release)
	_, err = p.PendingCount(context.Background())
	require.NoError(err)
	require.Len(chain.built(), 1)
}

func TestPendingCount(t *testing.T) {
	require := require.New(t)

	gate := newGatedAssembler()
	p, chain := newTestPool(t, Manual, testInherents{}, gate.Assemble)

	ctx := context.Background()
	count, err := p.PendingCount(ctx)
	require.NoError(err)
	require.Zero(count)

	g := &errgroup.Group{}
	for i := 0; i < 3; i++ {
		g.Go(func() error {
			return p.BuildBlock(ctx, nil)
		})
	}
	require.Eventually(func() bool {
		return queued(p) == 3
	}, time.Second, time.Millisecond)

	shortCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	count, err = p.PendingCount(shortCtx)
	require.ErrorIs(err, context.DeadlineExceeded)
	require.Equal(3, count)

	close(gate.release)
	_, err = p.PendingCount(ctx)
	require.NoError(err)
	require.Len(chain.built(), 3)
	require.NoError(g.Wait())
}

func TestShutdown(t *testing.T) {
	require := require.New(t)

	gate := newGatedAssembler()
	p, chain := newTestPool(t, Manual, testInherents{}, gate.Assemble)

	ctx := context.Background()
	first := make(chan error, 1)
	go func() {
		first <- p.BuildBlockWithParams(ctx, BuildParams{Transactions: [][]byte{{1}}})
	}()
	<-gate.entered
	second := make(chan error, 1)
	go func() {
		second <- p.BuildBlockWithParams(ctx, BuildParams{Transactions: [][]byte{{2}}})
	}()
	require.Eventually(func() bool {
		return queued(p) == 2
	}, time.Second, time.Millisecond)

	require.NoError(p.Shutdown(ctx))
	require.ErrorIs(<-first, ErrBuildFailed)
	require.ErrorIs(<-second, ErrClosed)
	require.Empty(chain.built())

	require.ErrorIs(p.SubmitTransaction(ctx, []byte{3}), ErrClosed)
	require.ErrorIs(p.BuildBlock(ctx, nil), ErrClosed)
	require.NoError(p.Shutdown(ctx))
}

func TestShutdownTimeoutResolvesQueued(t *testing.T) {
	require := require.New(t)

	var (
		entered = make(chan struct{})
		release = make(chan struct{})
		calls   atomic.Int32
	)
	// the first build ignores cancellation
	assemble := func(
		ctx context.Context,
		parent *blockchain.Block,
		inherents *blockchain.Inherents,
		txs [][]byte,
		upward map[uint32][][]byte,
		onApplyError func([]byte, error),
	) (*blockchain.Block, [][]byte, error) {
		if calls.Inc() == 1 {
			close(entered)
			<-release
		}
		return assembleAll(ctx, parent, inherents, txs, upward, onApplyError)
	}
	p, chain := newTestPool(t, Manual, testInherents{}, assemble)

	ctx := context.Background()
	first := make(chan error, 1)
	go func() {
		first <- p.BuildBlockWithParams(ctx, BuildParams{Transactions: [][]byte{{1}}})
	}()
	<-entered
	second := make(chan error, 1)
	go func() {
		second <- p.BuildBlockWithParams(ctx, BuildParams{Transactions: [][]byte{{2}}})
	}()
	require.Eventually(func() bool {
		return queued(p) == 2
	}, time.Second, time.Millisecond)

	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(p.Shutdown(shortCtx), context.DeadlineExceeded)

	close(release)
	require.NoError(<-first)
	require.ErrorIs(<-second, ErrClosed)
	require.Len(chain.built(), 1)

	require.NoError(p.Shutdown(ctx))
	require.Zero(queued(p))
}
