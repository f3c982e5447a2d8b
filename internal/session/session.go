// Package session owns the state of one operator session: the node
// connection, the network parameters it reported, the relay height cache
// and the log of looked-up accounts.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/matrixise/balance-lookup/internal/address"
	"github.com/matrixise/balance-lookup/internal/balance"
	"github.com/matrixise/balance-lookup/internal/chain"
	"github.com/matrixise/balance-lookup/internal/relay"
	"github.com/matrixise/balance-lookup/internal/ss58"
	"github.com/matrixise/balance-lookup/internal/vesting"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotConnected means there is no node to query yet. Callers treat it
	// as "nothing to do".
	ErrNotConnected = errors.New("not connected")

	// ErrStaleResponse means a newer lookup started while this one was in
	// flight; its result was discarded.
	ErrStaleResponse = errors.New("response superseded by a newer lookup")
)

// InvalidAddressError reports input that does not name an account on the
// connected network. No lookup is performed.
type InvalidAddressError struct {
	Input  string
	Reason string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Input, e.Reason)
}

// VestingReport is the classified schedule set of one account.
type VestingReport struct {
	Account string         `json:"account"`
	Result  vesting.Result `json:"result"`
}

// Lookup is the combined balance and vesting result for one account.
type Lookup struct {
	Balance balance.Record `json:"balance"`
	Vesting VestingReport  `json:"vesting"`
}

// Session is safe for concurrent use.
type Session struct {
	dial   chain.Dialer
	codec  *ss58.Codec
	relay  *relay.Cache
	log    *balance.Log
	now    func() time.Time
	logger *slog.Logger

	mu        sync.RWMutex
	conn      chain.Conn
	endpoints []string
	params    chain.NetworkParameters
	gen       uint64

	tokens requestTokens
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now for timestamps and unlock estimates.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New creates a disconnected session.
func New(dial chain.Dialer, codec *ss58.Codec, relayCache *relay.Cache, opts ...Option) *Session {
	s := &Session{
		dial:   dial,
		codec:  codec,
		relay:  relayCache,
		log:    balance.NewLog(),
		now:    time.Now,
		logger: slog.Default(),
		params: chain.DefaultNetworkParameters(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens a connection to endpoints, replacing any existing one, and
// refreshes the network parameters. The relay cache is emptied since the
// new chain may hang off a different relay chain.
func (s *Session) Connect(ctx context.Context, endpoints ...string) error {
	if len(endpoints) == 0 {
		return errors.New("no endpoint given")
	}

	s.Disconnect()

	conn, err := s.dial(ctx, endpoints...)
	if err != nil {
		return fmt.Errorf("connect %s: %w", endpoints[0], err)
	}

	params, err := conn.Properties(ctx)
	if err != nil {
		conn.Close()
		return fmt.Errorf("read chain properties: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.endpoints = endpoints
	s.params = params
	s.gen++
	s.mu.Unlock()

	s.relay.Reset()

	s.logger.Info("Connected",
		"endpoint", endpoints[0],
		"prefix", params.Prefix,
		"unit", params.Unit,
		"decimals", params.Decimals)
	return nil
}

// Disconnect closes the connection, if any.
func (s *Session) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.endpoints = nil
	s.gen++
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
		s.logger.Info("Disconnected")
	}
}

// Connected reports whether a node connection is open.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

// Endpoint returns the preferred endpoint of the current connection.
func (s *Session) Endpoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.endpoints) == 0 {
		return ""
	}
	return s.endpoints[0]
}

// NodeHealth reports per-endpoint health when the connection tracks it.
// It is nil when disconnected.
func (s *Session) NodeHealth() map[string]bool {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if hc, ok := conn.(interface{ Health() map[string]bool }); ok {
		return hc.Health()
	}
	if conn != nil {
		return map[string]bool{s.Endpoint(): true}
	}
	return nil
}

// Params returns the current network parameters.
func (s *Session) Params() chain.NetworkParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Log returns the session's account log.
func (s *Session) Log() *balance.Log {
	return s.log
}

// Relay returns the session's relay height cache.
func (s *Session) Relay() *relay.Cache {
	return s.relay
}

// Validate checks input against the current network prefix.
func (s *Session) Validate(input string) address.Result {
	return address.Validate(input, s.Params().Prefix, s.codec)
}

// resolve validates input and returns the canonical address and account id.
func (s *Session) resolve(input string, params chain.NetworkParameters) (string, []byte, error) {
	res := address.Validate(input, params.Prefix, s.codec)
	if !res.Valid {
		return "", nil, &InvalidAddressError{Input: input, Reason: res.Reason}
	}
	pub, err := ss58.PublicKey(res.Normalized)
	if err != nil {
		return "", nil, &InvalidAddressError{Input: input, Reason: err.Error()}
	}
	return res.Normalized, pub, nil
}

// target is a validated account bound to the connection it was resolved on.
type target struct {
	conn    chain.Conn
	params  chain.NetworkParameters
	account string
	pub     []byte
	key     string
	token   uint64
	gen     uint64
}

// Request kinds; tokens are tracked per kind and account.
const (
	kindBalance = "balance"
	kindVesting = "vesting"
)

// prepare validates input and takes a request token for its account.
func (s *Session) prepare(input, kind string) (target, error) {
	s.mu.RLock()
	conn, params, gen := s.conn, s.params, s.gen
	s.mu.RUnlock()
	if conn == nil {
		return target{}, ErrNotConnected
	}

	account, pub, err := s.resolve(input, params)
	if err != nil {
		return target{}, err
	}

	key := kind + "/" + account
	return target{
		conn:    conn,
		params:  params,
		account: account,
		pub:     pub,
		key:     key,
		token:   s.tokens.begin(key),
		gen:     gen,
	}, nil
}

// current reports whether t is still the newest request for its account on
// the current connection.
func (s *Session) current(t target) bool {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()
	return gen == t.gen && s.tokens.isLatest(t.key, t.token)
}

// LookupBalance queries and aggregates the balance of input and records it
// in the log.
func (s *Session) LookupBalance(ctx context.Context, input, note string) (balance.Record, error) {
	t, err := s.prepare(input, kindBalance)
	if err != nil {
		return balance.Record{}, err
	}

	rec, err := s.fetchBalance(ctx, t, note)
	if err != nil {
		return balance.Record{}, err
	}
	if !s.current(t) {
		s.logger.Debug("Discarding stale balance response", "account", t.account)
		return balance.Record{}, ErrStaleResponse
	}

	s.log.Put(rec)
	s.logger.Info("Balance retrieved",
		"account", rec.Account,
		"decimal", rec.Decimal,
		"plancks", rec.PlancksTotal,
		"note", rec.Note)
	return rec, nil
}

// LookupVesting queries and classifies the time-release schedules of input.
func (s *Session) LookupVesting(ctx context.Context, input string) (VestingReport, error) {
	t, err := s.prepare(input, kindVesting)
	if err != nil {
		return VestingReport{}, err
	}

	report, err := s.fetchVesting(ctx, t)
	if err != nil {
		return VestingReport{}, err
	}
	if !s.current(t) {
		s.logger.Debug("Discarding stale vesting response", "account", t.account)
		return VestingReport{}, ErrStaleResponse
	}
	return report, nil
}

// Lookup runs the balance and vesting queries for input concurrently and
// returns once both have completed.
func (s *Session) Lookup(ctx context.Context, input, note string) (Lookup, error) {
	t, err := s.prepare(input, kindBalance)
	if err != nil {
		return Lookup{}, err
	}

	var out Lookup
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := s.fetchBalance(gctx, t, note)
		out.Balance = rec
		return err
	})
	g.Go(func() error {
		report, err := s.fetchVesting(gctx, t)
		out.Vesting = report
		return err
	})
	if err := g.Wait(); err != nil {
		return Lookup{}, err
	}

	if !s.current(t) {
		s.logger.Debug("Discarding stale lookup response", "account", t.account)
		return Lookup{}, ErrStaleResponse
	}

	s.log.Put(out.Balance)
	s.logger.Info("Lookup completed",
		"account", t.account,
		"decimal", out.Balance.Decimal,
		"claimable", out.Vesting.Result.ClaimableCount,
		"upcoming", len(out.Vesting.Result.Upcoming))
	return out, nil
}

func (s *Session) fetchBalance(ctx context.Context, t target, note string) (balance.Record, error) {
	raw, err := t.conn.Account(ctx, t.pub)
	if err != nil {
		return balance.Record{}, fmt.Errorf("query account %s: %w", t.account, err)
	}

	rec := balance.Aggregate(raw, t.account, t.params, note)
	rec.QueriedAt = s.now().UTC()
	return rec, nil
}

func (s *Session) fetchVesting(ctx context.Context, t target) (VestingReport, error) {
	schedules, err := t.conn.ReleaseSchedules(ctx, t.pub)
	if err != nil {
		return VestingReport{}, fmt.Errorf("query schedules %s: %w", t.account, err)
	}

	report := VestingReport{Account: t.account}
	if len(schedules) == 0 {
		report.Result = vesting.Classify(nil, 0, s.now())
		return report, nil
	}

	relayBlock, err := s.relay.CurrentBlock(ctx, t.params.Prefix)
	if err != nil {
		return VestingReport{}, err
	}

	report.Result = vesting.Classify(schedules, relayBlock, s.now())
	return report, nil
}
