package protocol

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"github.com/anidbgo/anidb/anerr"
	"github.com/anidbgo/anidb/internal/anlog"
	"github.com/anidbgo/anidb/internal/metrics"
)

// SessionState is the protocol client's lifecycle (spec §4.6), using the
// teacher's enum-via-methods idiom (see hashing.Algorithm) instead of a
// plain iota block.
type SessionState uint8

var EState = SessionState(0)

func (SessionState) Disconnected() SessionState  { return SessionState(0) }
func (SessionState) Authenticating() SessionState { return SessionState(1) }
func (SessionState) Alive() SessionState          { return SessionState(2) }
func (SessionState) Expiring() SessionState       { return SessionState(3) }
func (SessionState) Encrypted() SessionState      { return SessionState(4) }

func (s SessionState) String() string {
	switch s {
	case EState.Authenticating():
		return "Authenticating"
	case EState.Alive():
		return "Alive"
	case EState.Expiring():
		return "Expiring"
	case EState.Encrypted():
		return "Encrypted"
	default:
		return "Disconnected"
	}
}

const (
	idleExpiryAfter = 35 * time.Minute
	natPingAfter    = 30 * time.Minute
	defaultTimeout  = 15 * time.Second
	pushAckMaxFails = 3
)

// Config configures a Client.
type Config struct {
	ServerAddr  string // "api.anidb.net:9000"
	ClientName  string
	ClientVer   int
	APIKey      string // used only if/when ENCRYPT is negotiated
	NATMode     bool
	Logger      anlog.Logger
	Metrics     *metrics.Registry
}

// Client is a single AniDB UDP session: one local port, one rate
// limiter, one in-flight session key, for the process lifetime (spec
// §4.6's "local port discipline"). Reconfiguration requires a new Client.
type Client struct {
	cfg   Config
	conn  net.PacketConn
	addr  net.Addr
	limit *RateLimiter
	log   anlog.Logger

	mu           sync.Mutex
	state        SessionState
	session      string
	salt         string
	lastSeen     time.Time
	pushAckFails int
	username     string
	password     string

	pending map[string]chan *Response
	notify  chan *Response

	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens the local UDP socket and resolves the server address, but
// does not authenticate; call Auth to reach the Alive state.
func Dial(cfg Config) (*Client, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.ServerAddr)
	if err != nil {
		return nil, anerr.Wrap(err, anerr.Network, "resolve %s", cfg.ServerAddr)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, anerr.Wrap(err, anerr.Network, "open local UDP socket")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = anlog.Nop
	}

	c := &Client{
		cfg:     cfg,
		conn:    conn,
		addr:    addr,
		limit:   NewRateLimiter(cfg.Metrics),
		log:     logger,
		state:   EState.Disconnected(),
		pending: make(map[string]chan *Response),
		notify:  make(chan *Response, 64),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	go c.idleMonitor()
	return c, nil
}

// idleMonitor implements the NAT keepalive and 35-minute idle expiry from
// spec §4.6: it only acts while the session is Alive or Encrypted.
func (c *Client) idleMonitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			state, idle := c.state, time.Since(c.lastSeen)
			c.mu.Unlock()
			if state != EState.Alive() && state != EState.Encrypted() {
				continue
			}
			if idle >= idleExpiryAfter {
				c.mu.Lock()
				c.state = EState.Expiring()
				c.mu.Unlock()
				go func() {
					c.mu.Lock()
					c.state = EState.Disconnected()
					c.session = ""
					c.mu.Unlock()
				}()
				continue
			}
			if c.cfg.NATMode && idle >= natPingAfter {
				go func() { _, _ = c.Command(context.Background(), "PING", map[string]string{"nat": "1"}) }()
			}
			if c.pushAckFails >= pushAckMaxFails {
				c.log.Log(anlog.LevelWarning, "push ack failures exceeded threshold, expecting server logout")
			}
		}
	}
}

func (c *Client) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Notifications returns the channel onto which push notifications
// (codes 720-799) are delivered; PUSHACK is sent automatically.
func (c *Client) Notifications() <-chan *Response { return c.notify }

func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

// Auth performs the AUTH handshake, transitioning Disconnected ->
// Authenticating -> Alive.
func (c *Client) Auth(ctx context.Context, username, password string) error {
	c.mu.Lock()
	c.state = EState.Authenticating()
	// Retained only in memory, never logged, for the lifetime of this
	// Client: sendWithRetry's RetryReauth case needs it to silently
	// re-AUTH and resend a command on codes 501/506 (spec §4.6).
	c.username = username
	c.password = password
	c.mu.Unlock()

	resp, err := c.send(ctx, Request{Command: "AUTH", Params: ParamsFromMap(map[string]string{
		"user": username, "pass": password,
		"protover": "3", "client": c.cfg.ClientName, "clientver": fmt.Sprint(c.cfg.ClientVer),
	})})
	if err != nil {
		c.mu.Lock()
		c.state = EState.Disconnected()
		c.mu.Unlock()
		return err
	}

	switch resp.Code {
	case CodeLoginAccepted, CodeLoginAcceptedNewVersion:
		fields := firstField(resp)
		c.mu.Lock()
		c.session = firstToken(fields)
		c.state = EState.Alive()
		c.lastSeen = time.Now()
		c.mu.Unlock()
		return nil
	default:
		c.mu.Lock()
		c.state = EState.Disconnected()
		c.mu.Unlock()
		return anerr.WithProtocolCode(resp.Code, resp.Text)
	}
}

// Logout sends LOGOUT and returns to Disconnected.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Command(ctx, "LOGOUT", nil)
	c.mu.Lock()
	c.state = EState.Disconnected()
	c.session = ""
	c.mu.Unlock()
	return err
}

// Encrypt negotiates AES-128-CBC for the remainder of the session
// (spec §4.5/§4.6: Encrypted never downgrades).
func (c *Client) Encrypt(ctx context.Context, username string) error {
	resp, err := c.Command(ctx, "ENCRYPT", map[string]string{"user": username, "type": "1"})
	if err != nil {
		return err
	}
	if resp.Code != 209 {
		return anerr.WithProtocolCode(resp.Code, resp.Text)
	}
	c.mu.Lock()
	c.salt = firstToken(firstField(resp))
	c.state = EState.Encrypted()
	c.mu.Unlock()
	return nil
}

// Command sends an authenticated command, attaching the session key and
// applying the full retry/reauth policy from spec §4.6.
func (c *Client) Command(ctx context.Context, command string, params map[string]string) (*Response, error) {
	if params == nil {
		params = map[string]string{}
	}
	c.mu.Lock()
	params["s"] = c.session
	c.mu.Unlock()

	resp, err := c.sendWithRetry(ctx, Request{Command: command, Params: ParamsFromMap(params)}, true)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lastSeen = time.Now()
	if c.state == EState.Alive() || c.state == EState.Encrypted() {
		// refresh, no state change
	}
	c.mu.Unlock()
	return resp, nil
}

// sendWithRetry implements the timeout/602/604 backoff, 601 pause,
// 555 fatal, and 501/506 single-silent-reauth rules from spec §4.6.
func (c *Client) sendWithRetry(ctx context.Context, req Request, allowReauth bool) (*Response, error) {
	bo := &backoff.Backoff{Min: 4 * time.Second, Max: 2 * time.Hour, Factor: 2, Jitter: true}

	for {
		resp, err := c.send(ctx, req)
		if err != nil {
			if anerr.KindOf(err) != anerr.Timeout || ctx.Err() != nil {
				return nil, err
			}
			select {
			case <-time.After(bo.Duration()):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		switch ClassifyRetry(resp.Code) {
		case NoRetry:
			if resp.Code >= 200 && resp.Code < 600 && !IsNotification(resp.Code) {
				return resp, nil
			}
			return resp, nil
		case RetryReauth:
			if !allowReauth {
				return nil, anerr.WithProtocolCode(resp.Code, resp.Text)
			}
			if reErr := c.reauth(ctx); reErr != nil {
				return nil, reErr
			}
			for i, p := range req.Params {
				if p.Key == "s" {
					c.mu.Lock()
					req.Params[i].Value = c.session
					c.mu.Unlock()
					break
				}
			}
			return c.sendWithRetry(ctx, req, false)
		case RetryBackoff:
			select {
			case <-time.After(bo.Duration()):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		case PauseClient:
			select {
			case <-time.After(30 * time.Minute):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		case FatalSession:
			c.mu.Lock()
			c.state = EState.Disconnected()
			c.mu.Unlock()
			return nil, anerr.WithProtocolCode(resp.Code, resp.Text)
		default:
			return resp, nil
		}
	}
}

// reauth performs the single silent re-AUTH spec §4.6 requires on
// codes 501/506 before the original command is resent. It uses the
// credential retained by the most recent successful Auth call; a
// Client that was never authenticated, or whose session expired
// before any Auth, has nothing to reauth with.
func (c *Client) reauth(ctx context.Context) error {
	c.mu.Lock()
	username, password := c.username, c.password
	c.mu.Unlock()
	if username == "" {
		return anerr.New(anerr.Protocol, "re-auth required but no prior credential to reuse")
	}
	return c.Auth(ctx, username, password)
}

// send admits req through the rate limiter, transmits it, and waits for
// the matching tagged response or ctx's deadline.
func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	if req.Tag == "" {
		req.Tag = NewTag()
	}

	sendCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := c.limit.Admit(sendCtx); err != nil {
		return nil, anerr.Wrap(err, anerr.Timeout, "rate limiter admission for %s", req.Command)
	}

	ch := make(chan *Response, 1)
	c.mu.Lock()
	c.pending[req.Tag] = ch
	encrypted := c.state == EState.Encrypted()
	salt, key := c.salt, c.cfg.APIKey
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, req.Tag)
		c.mu.Unlock()
	}()

	payload := []byte(req.Encode())
	if encrypted && req.Command != "ENCRYPT" {
		enc, err := Encrypt(key, salt, payload)
		if err != nil {
			return nil, err
		}
		payload = enc
	}

	if _, err := c.conn.WriteTo(payload, c.addr); err != nil {
		return nil, anerr.Wrap(err, anerr.Network, "send %s", req.Command)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-sendCtx.Done():
		return nil, anerr.New(anerr.Timeout, "no response to %s within %s", req.Command, defaultTimeout)
	}
}

// readLoop receives datagrams, decrypts/decompresses as needed, and
// dispatches by tag; untagged responses and codes 720-799 go to notify.
func (c *Client) readLoop() {
	buf := make([]byte, 2048)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		n, _, err := c.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				c.log.Log(anlog.LevelWarning, "protocol read error", anlog.F("error", err.Error()))
				continue
			}
		}

		payload := append([]byte(nil), buf[:n]...)
		c.mu.Lock()
		encrypted := c.state == EState.Encrypted()
		salt, key := c.salt, c.cfg.APIKey
		c.mu.Unlock()

		if encrypted {
			if dec, err := Decrypt(key, salt, payload); err == nil {
				payload = dec
			}
		}
		if IsCompressed(payload) {
			if dec, err := Decompress(payload); err == nil {
				payload = dec
			}
		}

		resp, err := DecodeResponse(payload)
		if err != nil {
			c.log.Log(anlog.LevelWarning, "protocol decode error", anlog.F("error", err.Error()))
			continue
		}

		if IsNotification(resp.Code) {
			c.dispatchNotification(resp)
			continue
		}

		if resp.Tag != "" {
			c.mu.Lock()
			ch, ok := c.pending[resp.Tag]
			c.mu.Unlock()
			if ok {
				ch <- resp
				continue
			}
		}
		// untagged, non-notification reply: nothing is waiting for it
	}
}

func (c *Client) dispatchNotification(resp *Response) {
	select {
	case c.notify <- resp:
	default:
		// bounded channel: drop rather than block the read loop
	}
	// auto-ack per spec §4.6; failures count toward pushAckMaxFails
	go func() {
		nid := firstToken(firstField(resp))
		if _, err := c.send(context.Background(), Request{Command: "PUSHACK", Params: []Param{{Key: "nid", Value: nid}}}); err != nil {
			c.mu.Lock()
			c.pushAckFails++
			c.mu.Unlock()
		} else {
			c.mu.Lock()
			c.pushAckFails = 0
			c.mu.Unlock()
		}
	}()
}

func firstField(resp *Response) []string {
	if len(resp.DataLines) == 0 {
		return nil
	}
	return resp.DataLines[0]
}

func firstToken(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
