package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, symbol string, kind TransactionKind, shares int64) *TransactionRecord {
	return &TransactionRecord{ID: id, Symbol: symbol, Kind: kind, Shares: shares, Price: MustParseMoney("1")}
}

func TestAggregatePositions(t *testing.T) {
	records := []*TransactionRecord{
		record("1", "SYM", KindBuy, 10),
		record("2", "ABC", KindBuy, 5),
		record("3", "SYM", KindSell, 4),
		record("4", "ABC", KindSell, 5),
	}

	positions, err := AggregatePositions(records)
	require.NoError(t, err)
	assert.Equal(t, Positions{"SYM": 6, "ABC": 0}, positions)
	assert.Equal(t, []string{"ABC", "SYM"}, positions.Symbols())
	assert.Equal(t, []string{"SYM"}, positions.Open())
	assert.Equal(t, int64(0), positions.Held("NOPE"))

	// order does not change the aggregate
	reversed := []*TransactionRecord{records[3], records[2], records[1], records[0]}
	again, err := AggregatePositions(reversed)
	require.NoError(t, err)
	assert.Equal(t, positions, again)
}

func TestAggregatePositionsEmpty(t *testing.T) {
	positions, err := AggregatePositions(nil)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestAggregatePositionsRejectsMalformed(t *testing.T) {
	_, err := AggregatePositions([]*TransactionRecord{record("1", "SYM", KindBuy, 0)})
	assert.ErrorIs(t, err, ErrDataIntegrity)

	_, err = AggregatePositions([]*TransactionRecord{record("1", "SYM", KindBuy, -3)})
	assert.ErrorIs(t, err, ErrDataIntegrity)

	_, err = AggregatePositions([]*TransactionRecord{record("1", "SYM", "short", 3)})
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestReplayPositionsFindsOversell(t *testing.T) {
	records := []*TransactionRecord{
		record("1", "SYM", KindSell, 2),
		record("2", "SYM", KindBuy, 5),
		record("3", "SYM", KindSell, 3),
	}
	positions, violations, err := ReplayPositions(records)
	require.NoError(t, err)
	assert.Equal(t, int64(0), positions.Held("SYM"))
	require.Len(t, violations, 1)
	assert.Equal(t, "1", violations[0].RecordID)
	assert.Equal(t, int64(-2), violations[0].Position)
}

func TestAggregatePositionsRejectsRunawayPosition(t *testing.T) {
	_, err := AggregatePositions([]*TransactionRecord{record("1", "SYM", KindBuy, MaxShares+1)})
	assert.ErrorIs(t, err, ErrDataIntegrity)

	// each record is valid on its own, the sum is not
	_, err = AggregatePositions([]*TransactionRecord{
		record("1", "SYM", KindBuy, MaxShares),
		record("2", "SYM", KindBuy, MaxShares),
	})
	assert.ErrorIs(t, err, ErrDataIntegrity)

	_, _, err = ReplayPositions([]*TransactionRecord{
		record("1", "SYM", KindSell, MaxShares),
		record("2", "SYM", KindSell, 1),
	})
	assert.ErrorIs(t, err, ErrDataIntegrity)
}
