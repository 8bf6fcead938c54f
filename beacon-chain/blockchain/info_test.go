package blockchain

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	testDB "github.com/forkchoice/beacon/beacon-chain/db/testing"
	"github.com/forkchoice/beacon/config/params"
	"github.com/forkchoice/beacon/testing/assert"
	"github.com/forkchoice/beacon/testing/require"
)

func TestService_TreeHandler(t *testing.T) {
	s := setupService(t, testDB.SetupDB(t))

	req, err := http.NewRequest("GET", "/tree", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	s.TreeHandler(rr, req)
	assert.Equal(t, true, strings.Contains(rr.Body.String(), "Unavailable"))

	receiveBlocks(t, s,
		testBlock(0, genesisRoot, params.BeaconConfig().ZeroHash),
		testBlock(1, rootA, genesisRoot),
	)
	rr = httptest.NewRecorder()
	s.TreeHandler(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Equal(t, true, strings.Contains(body, "digraph"), "Expected a dot graph")
	assert.Equal(t, true, strings.Contains(body, "green"), "Expected the head to be highlighted")
	assert.Equal(t, true, strings.Contains(body, "status: OPTIMISTIC"))
}

func TestService_HeadsHandler(t *testing.T) {
	s := setupService(t, testDB.SetupDB(t))
	receiveBlocks(t, s,
		testBlock(0, genesisRoot, params.BeaconConfig().ZeroHash),
		testBlock(1, rootA, genesisRoot),
		testBlock(2, rootB, genesisRoot),
	)

	req, err := http.NewRequest("GET", "/heads", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	s.HeadsHandler(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Equal(t, true, strings.Contains(body, "Head slot"))
	assert.Equal(t, 2, strings.Count(body, "0x"), "Expected one line per tip")
}
