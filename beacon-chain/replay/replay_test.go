package replay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forkchoice/beacon/beacon-chain/blockchain"
	testDB "github.com/forkchoice/beacon/beacon-chain/db/testing"
	"github.com/forkchoice/beacon/testing/assert"
	"github.com/forkchoice/beacon/testing/require"
	types "github.com/prysmaticlabs/eth2-types"
	"github.com/prysmaticlabs/go-bitfield"
)

func hexRoot(b byte) string {
	return fmt.Sprintf("%#x", [32]byte{b})
}

func setupChain(t *testing.T) *blockchain.Service {
	s, err := blockchain.NewService(context.Background(),
		blockchain.WithDatabase(testDB.SetupDB(t)),
		blockchain.WithVotesFlushPeriod(0),
	)
	require.NoError(t, err)
	return s
}

//   g <- a
//    \
//     b
const scenarioYAML = `
default_balance: 32
steps:
  - block:
      slot: 0
      root: "%[1]s"
      justified_checkpoint: {epoch: 0}
      finalized_checkpoint: {epoch: 0}
  - block:
      slot: 1
      root: "%[2]s"
      parent_root: "%[1]s"
      justified_checkpoint: {epoch: 0}
      finalized_checkpoint: {epoch: 0}
  - block:
      slot: 1
      root: "%[3]s"
      parent_root: "%[1]s"
      justified_checkpoint: {epoch: 0}
      finalized_checkpoint: {epoch: 0}
  - check:
      head: {slot: 1, root: "%[3]s"}
      node_count: 3
  - attestation:
      block_root: "%[2]s"
      target_epoch: 1
      aggregation_bits: "0x0f"
      committee: [0, 1, 2]
  - tick: 2
  - check:
      head: {slot: 1, root: "%[2]s"}
  - payload_status: {root: "%[2]s", status: INVALID}
  - check:
      head: {slot: 1, root: "%[3]s"}
      justified_checkpoint: {epoch: 0, root: "%[1]s"}
  - block:
      slot: 2
      root: "%[4]s"
      parent_root: "%[5]s"
      justified_checkpoint: {epoch: 0}
      finalized_checkpoint: {epoch: 0}
    valid: false
  - check:
      node_count: 3
`

func testScenario() string {
	return fmt.Sprintf(scenarioYAML, hexRoot('g'), hexRoot('a'), hexRoot('b'), hexRoot('c'), hexRoot('x'))
}

func TestDecode(t *testing.T) {
	s, err := Decode(strings.NewReader(testScenario()))
	require.NoError(t, err)
	assert.Equal(t, uint64(32), s.DefaultBalance)
	require.Equal(t, 11, len(s.Steps))
	assert.Equal(t, types.Slot(1), s.Steps[1].Block.Slot)
	assert.Equal(t, types.Slot(2), *s.Steps[5].Tick)
	assert.Equal(t, false, *s.Steps[9].Valid)
	assert.Equal(t, 3, *s.Steps[10].Check.NodeCount)
}

func TestDecode_UnknownField(t *testing.T) {
	_, err := Decode(strings.NewReader("steps:\n  - blok: {slot: 1}\n"))
	require.ErrorContains(t, "could not decode scenario", err)
}

func TestReplayer_Run(t *testing.T) {
	chain := setupChain(t)
	s, err := Decode(strings.NewReader(testScenario()))
	require.NoError(t, err)
	require.NoError(t, NewReplayer(chain).Run(context.Background(), s))

	votes := chain.ForkChoicer().Votes()
	require.Equal(t, 3, len(votes))
	assert.Equal(t, uint64(32), votes[2].Balance)
}

func TestReplayer_CheckFails(t *testing.T) {
	chain := setupChain(t)
	s := &Scenario{Steps: []*Step{
		{Block: &Block{Root: hexRoot('g'), JustifiedCheckpoint: &Checkpoint{}, FinalizedCheckpoint: &Checkpoint{}}},
		{Check: &Check{Head: &Head{Root: hexRoot('a')}}},
	}}
	err := NewReplayer(chain).Run(context.Background(), s)
	require.ErrorIs(t, err, errCheckFailed)
	require.ErrorContains(t, "step 1", err)
}

func TestReplayer_UnexpectedValid(t *testing.T) {
	chain := setupChain(t)
	invalid := false
	s := &Scenario{Steps: []*Step{
		{Block: &Block{Root: hexRoot('g'), JustifiedCheckpoint: &Checkpoint{}, FinalizedCheckpoint: &Checkpoint{}}, Valid: &invalid},
	}}
	err := NewReplayer(chain).Run(context.Background(), s)
	require.ErrorIs(t, err, errUnexpectedValid)
}

func TestReplayer_BalancesOverrideDefault(t *testing.T) {
	chain := setupChain(t)
	s := &Scenario{
		DefaultBalance: 32,
		Steps: []*Step{
			{Block: &Block{Root: hexRoot('g'), JustifiedCheckpoint: &Checkpoint{}, FinalizedCheckpoint: &Checkpoint{}}},
			{Balances: []uint64{10}},
			{Attestation: &Attestation{BlockRoot: hexRoot('g'), TargetEpoch: 1, AggregationBits: "0x07", Committee: []types.ValidatorIndex{0, 5}}},
		},
	}
	require.NoError(t, NewReplayer(chain).Run(context.Background(), s))
	votes := chain.ForkChoicer().Votes()
	assert.Equal(t, uint64(10), votes[0].Balance)
	assert.Equal(t, uint64(32), votes[5].Balance)
}

func TestReplayer_EmptyStep(t *testing.T) {
	err := NewReplayer(setupChain(t)).Run(context.Background(), &Scenario{Steps: []*Step{{}}})
	require.ErrorIs(t, err, errEmptyStep)
}

func TestReplayer_BadInput(t *testing.T) {
	chain := setupChain(t)
	tests := []struct {
		name string
		step *Step
		want string
	}{
		{
			name: "short root",
			step: &Step{Block: &Block{Root: "0x01", JustifiedCheckpoint: &Checkpoint{}, FinalizedCheckpoint: &Checkpoint{}}},
			want: "is 1 bytes, want 32",
		},
		{
			name: "bad hex",
			step: &Step{PayloadStatus: &PayloadStatus{Root: "zz", Status: "VALID"}},
			want: "could not decode root",
		},
		{
			name: "committee size",
			step: &Step{Attestation: &Attestation{BlockRoot: hexRoot('g'), AggregationBits: "0x0f", Committee: []types.ValidatorIndex{0}}},
			want: "does not match committee size",
		},
		{
			name: "no length bit",
			step: &Step{Attestation: &Attestation{BlockRoot: hexRoot('g'), AggregationBits: "0x00"}},
			want: "have no length bit",
		},
		{
			name: "unknown status",
			step: &Step{PayloadStatus: &PayloadStatus{Root: hexRoot('g'), Status: "SYNCING"}},
			want: "unknown payload status",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewReplayer(chain).Run(context.Background(), &Scenario{Steps: []*Step{tt.step}})
			require.ErrorContains(t, tt.want, err)
		})
	}
}

func TestAttestingIndices(t *testing.T) {
	committee := []types.ValidatorIndex{10, 20, 30}
	tests := []struct {
		name string
		bits bitfield.Bitlist
		want []types.ValidatorIndex
	}{
		{name: "none", bits: bitfield.Bitlist{0x08}, want: []types.ValidatorIndex{}},
		{name: "first and last", bits: bitfield.Bitlist{0x0d}, want: []types.ValidatorIndex{10, 30}},
		{name: "all", bits: bitfield.Bitlist{0x0f}, want: []types.ValidatorIndex{10, 20, 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.DeepEqual(t, tt.want, AttestingIndices(tt.bits, committee))
		})
	}
}

func TestService_ReplaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScenario()), 0600))
	chain := setupChain(t)

	s := NewService(context.Background(), path, chain, nil)
	require.ErrorIs(t, s.Result(), errNotFinished)
	s.Start()
	<-s.Done()
	require.NoError(t, s.Result())
	assert.NoError(t, s.Status())
	require.NoError(t, s.Stop())
	assert.Equal(t, [32]byte{'b'}, chain.HeadRoot())
}

func TestService_MissingFile(t *testing.T) {
	s := NewService(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), setupChain(t), nil)
	s.Start()
	<-s.Done()
	require.ErrorContains(t, "could not open scenario file", s.Result())
	require.ErrorContains(t, "could not open scenario file", s.Status())
}

func TestService_WaitsForChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScenario()), 0600))
	ready := make(chan struct{})

	s := NewService(context.Background(), path, setupChain(t), ready)
	s.Start()
	require.ErrorIs(t, s.Result(), errNotFinished)
	close(ready)
	<-s.Done()
	require.NoError(t, s.Result())
}

func TestService_StopBeforeReady(t *testing.T) {
	s := NewService(context.Background(), "unused.yaml", setupChain(t), make(chan struct{}))
	s.Start()
	require.NoError(t, s.Stop())
	<-s.Done()
	require.ErrorIs(t, s.Result(), context.Canceled)
}
