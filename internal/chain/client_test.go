package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

func newTestNode(t *testing.T, results map[string]string, counts map[string]*int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if counter, ok := counts[req.Method]; ok {
			atomic.AddInt32(counter, 1)
		}
		result, ok := results[req.Method]
		if !ok {
			http.Error(w, "unknown method", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  json.RawMessage(result),
		})
	}))
}

func TestClientCachesChainID(t *testing.T) {
	var chainIDCalls int32
	node := newTestNode(t,
		map[string]string{"eth_chainId": `"0x38"`, "eth_blockNumber": `"0x3e8"`},
		map[string]*int32{"eth_chainId": &chainIDCalls},
	)
	defer node.Close()

	client, err := NewClient(context.Background(), node.URL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	for i := 0; i < 3; i++ {
		id, err := client.GetChainID(context.Background())
		if err != nil {
			t.Fatalf("chain id: %v", err)
		}
		if id.Uint64() != 56 {
			t.Fatalf("unexpected chain id %s", id)
		}
		id.SetInt64(1)
	}
	if atomic.LoadInt32(&chainIDCalls) != 1 {
		t.Fatalf("expected one eth_chainId call, got %d", chainIDCalls)
	}

	number, err := client.LatestBlockNumber(context.Background())
	if err != nil || number != 1000 {
		t.Fatalf("unexpected block number %d err=%v", number, err)
	}
}
