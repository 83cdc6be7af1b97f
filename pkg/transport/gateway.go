package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"meshbbs/pkg/logger"
	"meshbbs/pkg/router"
)

const (
	DefaultMailboxSize = 64
	defaultInboundSize = 256
	webhookTimeout     = 5 * time.Second
)

type GatewayOptions struct {
	// MailboxSize bounds the fragments held per identity; oldest drop first.
	MailboxSize int
	// WebhookURL, when set, receives every outbound fragment as JSON.
	WebhookURL string
	Client     *fasthttp.Client
}

// Gateway bridges a radio node over HTTP. The node posts what it hears to
// /v1/packets and polls /v1/outbox for what to transmit.
type Gateway struct {
	packets chan Packet
	opts    GatewayOptions

	mu        sync.Mutex
	mailboxes map[string][]string
	closed    bool
}

type inboundRequest struct {
	From string `json:"from"`
	Text string `json:"text"`
}

type outboundFragment struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func NewGateway(opts GatewayOptions) *Gateway {
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = DefaultMailboxSize
	}
	if opts.WebhookURL != "" && opts.Client == nil {
		opts.Client = &fasthttp.Client{Name: "meshbbs"}
	}
	return &Gateway{
		packets:   make(chan Packet, defaultInboundSize),
		opts:      opts,
		mailboxes: make(map[string][]string),
	}
}

func (g *Gateway) Name() string { return "http" }

func (g *Gateway) Packets() <-chan Packet { return g.packets }

// Register mounts the gateway routes.
func (g *Gateway) Register(r *router.Router) {
	r.POST("/v1/packets", g.handlePacket)
	r.GET("/v1/outbox", g.handleOutbox)
}

func (g *Gateway) handlePacket(ctx *fasthttp.RequestCtx) {
	var req inboundRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "invalid json body")
		return
	}
	req.From = strings.TrimSpace(req.From)
	if req.From == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "from is required")
		return
	}

	id := router.RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	p := Packet{ID: id, From: req.From, Text: req.Text, ReceivedAt: time.Now()}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "shutting down")
		return
	}
	select {
	case g.packets <- p:
	default:
		logger.Warn("gateway_inbound_full", "from", p.From, "request_id", id)
		router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "inbound queue full")
		return
	}
	_ = router.WriteJSON(ctx, fasthttp.StatusAccepted, map[string]string{"id": id})
}

func (g *Gateway) handleOutbox(ctx *fasthttp.RequestCtx) {
	to := string(ctx.QueryArgs().Peek("to"))
	if to == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "to is required")
		return
	}
	frags := g.Drain(to)
	if frags == nil {
		frags = []string{}
	}
	_ = router.WriteJSON(ctx, fasthttp.StatusOK, map[string]any{"to": to, "fragments": frags})
}

// Drain removes and returns the fragments waiting for to, oldest first.
func (g *Gateway) Drain(to string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.mailboxes[to]
	delete(g.mailboxes, to)
	return out
}

// Send files payload in the destination's mailbox and pushes it to the
// webhook if one is configured. A webhook failure is returned after the
// fragment is already in the mailbox.
func (g *Gateway) Send(ctx context.Context, to, payload string) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	box := append(g.mailboxes[to], payload)
	if over := len(box) - g.opts.MailboxSize; over > 0 {
		logger.Warn("gateway_mailbox_overflow", "to", to, "dropped", over)
		box = box[over:]
	}
	g.mailboxes[to] = box
	g.mu.Unlock()

	if g.opts.WebhookURL == "" {
		return nil
	}
	return g.push(ctx, outboundFragment{To: to, Text: payload})
}

func (g *Gateway) push(ctx context.Context, f outboundFragment) error {
	body, err := json.Marshal(f)
	if err != nil {
		return err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(g.opts.WebhookURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(router.RequestIDHeader, uuid.NewString())
	req.SetBody(body)

	timeout := webhookTimeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	if err := g.opts.Client.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	if code := resp.StatusCode(); code >= 300 {
		return fmt.Errorf("webhook: status %d", code)
	}
	return nil
}

// Close stops accepting packets and closes the Packets channel.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	close(g.packets)
	return nil
}
