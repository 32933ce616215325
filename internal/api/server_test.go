package api

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stablemint/stablemint/internal/engine"
	"github.com/stablemint/stablemint/internal/oracle"
	"github.com/stablemint/stablemint/internal/token"
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func newTestServer(t *testing.T) (*Server, *token.MemoryToken) {
	t.Helper()

	weth := token.NewMemoryToken("WETH")
	feed := oracle.NewStaticFeed(big.NewInt(2000_0000_0000), 8) // 2000 USD
	stable := token.NewStableToken("USDm")

	eng, err := engine.New(
		zap.NewNop(),
		[]token.Token{weth},
		[]oracle.PriceFeed{feed},
		stable,
		oracle.NewAdapter(time.Hour),
	)
	require.NoError(t, err)
	stable.AuthorizeMinter(engine.VaultAccount)

	return NewServer(zap.NewNop(), Config{}, eng), weth
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec, resp := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestTokensEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec, resp := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/tokens", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	tokens := data["tokens"].([]interface{})
	require.Len(t, tokens, 1)
	assert.Equal(t, "WETH", tokens[0])
}

func TestDepositMintQueryFlow(t *testing.T) {
	t.Parallel()

	srv, weth := newTestServer(t)
	weth.Credit("alice", units(10))
	router := srv.Router()

	rec, resp := doJSON(t, router, http.MethodPost, "/api/v1/deposit", map[string]string{
		"account": "alice",
		"token":   "WETH",
		"amount":  units(10).String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)

	rec, resp = doJSON(t, router, http.MethodPost, "/api/v1/mint", map[string]string{
		"account": "alice",
		"amount":  units(5000).String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)

	rec, resp = doJSON(t, router, http.MethodGet, "/api/v1/accounts/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, units(5000).String(), data["debt"])
	assert.Equal(t, units(20000).String(), data["collateral_value_usd"])
	assert.Equal(t, units(2).String(), data["health_factor"])

	rec, resp = doJSON(t, router, http.MethodGet, "/api/v1/accounts/alice/collateral/WETH", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data = resp.Data.(map[string]interface{})
	assert.Equal(t, units(10).String(), data["balance"])
}

func TestConversionEndpoints(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	router := srv.Router()

	rec, resp := doJSON(t, router, http.MethodGet,
		"/api/v1/convert/usd?token=WETH&amount="+units(15).String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, units(30000).String(), data["usd_value"])

	rec, resp = doJSON(t, router, http.MethodGet,
		"/api/v1/convert/token?token=WETH&usd="+units(100).String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data = resp.Data.(map[string]interface{})
	assert.Equal(t, "50000000000000000", data["amount"])
}

func TestErrorStatusMapping(t *testing.T) {
	t.Parallel()

	srv, weth := newTestServer(t)
	weth.Credit("alice", units(1))
	router := srv.Router()

	// unknown token is a client error
	rec, resp := doJSON(t, router, http.MethodPost, "/api/v1/deposit", map[string]string{
		"account": "alice", "token": "DOGE", "amount": "1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)

	// malformed amount is a client error
	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/deposit", map[string]string{
		"account": "alice", "token": "WETH", "amount": "lots",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// minting with no collateral breaks the health factor
	rec, resp = doJSON(t, router, http.MethodPost, "/api/v1/mint", map[string]string{
		"account": "bob", "amount": units(100).String(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, resp.Error, "health factor")

	// liquidating a healthy position is rejected
	_, resp = doJSON(t, router, http.MethodPost, "/api/v1/deposit-and-mint", map[string]string{
		"account": "alice", "token": "WETH",
		"collateral_amount": units(1).String(),
		"debt_amount":       units(100).String(),
	})
	require.True(t, resp.Success, resp.Error)
	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/liquidate", map[string]string{
		"liquidator": "bob", "target": "alice", "token": "WETH",
		"debt_to_cover": units(10).String(),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// redeeming more than deposited
	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/redeem", map[string]string{
		"account": "alice", "token": "WETH", "amount": units(100).String(),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSolvencyEndpoint(t *testing.T) {
	t.Parallel()

	srv, weth := newTestServer(t)
	weth.Credit("alice", units(2))
	router := srv.Router()

	_, resp := doJSON(t, router, http.MethodPost, "/api/v1/deposit-and-mint", map[string]string{
		"account": "alice", "token": "WETH",
		"collateral_amount": units(2).String(),
		"debt_amount":       units(1000).String(),
	})
	require.True(t, resp.Success, resp.Error)

	rec, resp := doJSON(t, router, http.MethodGet, "/api/v1/solvency", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, units(4000).String(), data["total_collateral_usd"])
	assert.Equal(t, units(1000).String(), data["total_debt"])
	assert.Equal(t, true, data["solvent"])
}

func TestConstantsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec, resp := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/constants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
}

func TestEventStream(t *testing.T) {
	t.Parallel()

	srv, weth := newTestServer(t)
	weth.Credit("alice", units(5))

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Subscription races the deposit without this handshake settling first;
	// a short pause keeps the test deterministic enough in practice.
	time.Sleep(50 * time.Millisecond)

	_, resp := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/deposit", map[string]string{
		"account": "alice", "token": "WETH", "amount": units(5).String(),
	})
	require.True(t, resp.Success, resp.Error)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "collateral_deposited", msg.Type)

	var ev engine.EventCollateralDeposited
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, "alice", ev.Account)
	assert.Equal(t, "WETH", ev.Token)
	assert.Equal(t, units(5), ev.Amount)
	assert.NotEmpty(t, ev.ID)
}
