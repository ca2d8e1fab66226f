package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"glacier/calculator"
	"glacier/deque"
	"glacier/model"
	"glacier/report"
)

// Request and reply types.
const (
	TypeParams = "params"
	TypeRun    = "run"
	TypeSweep  = "sweep"
	TypeSample = "sample"
	TypeReset  = "reset"

	TypeParamsSet = "paramsSet"
	TypeResult    = "result"
	TypeCurve     = "curve"
	TypeWindow    = "window"
	TypeError     = "error"
)

var ErrUnknownType = errors.New("server: unknown message type")

type ParamsContent struct {
	Params   model.Params `json:"params"`
	Warnings []string     `json:"warnings,omitempty"`
}

type ResultContent struct {
	Run   *report.Envelope `json:"run"`
	Field []float64        `json:"field"`
}

type WindowContent struct {
	Size     int `json:"size"`
	Capacity int `json:"capacity"`
	Evicted  int `json:"evicted"`
}

type ErrorContent struct {
	Request string `json:"request"`
	Error   string `json:"error"`
}

// Hub serves one websocket connection. Requests are handled one at a time in
// arrival order, so the hub state needs no locking.
type Hub struct {
	opts    Options
	metrics *Metrics
	enc     encoder

	c      *calculator.Calculator
	window deque.Deque
	domain calculator.Domain
	dt     float64

	// request
	msg chan []byte
	// response
	reply chan frame
	done  chan struct{}
}

func NewHub(opts Options, metrics *Metrics, enc encoder) *Hub {
	opts = opts.withDefaults()
	return &Hub{
		opts:    opts,
		metrics: metrics,
		enc:     enc,
		c:       calculator.NewCalculator(opts.Params, opts.Workers),
		window:  deque.NewArrDeque(opts.Window),
		domain:  opts.Domain,
		dt:      opts.Dt,
		msg:     make(chan []byte, 10),
		reply:   make(chan frame, 10),
		done:    make(chan struct{}),
	}
}

func (h *Hub) handleRequest(ctx context.Context) {
	for data := range h.msg {
		if f, ok := h.respond(ctx, data); ok {
			h.reply <- f
		}
	}
	close(h.reply)
}

func (h *Hub) handleResponse(conn *websocket.Conn) {
	defer close(h.done)
	for f := range h.reply {
		if err := writeFrame(conn, f); err != nil {
			log.WithFields(log.Fields{
				"type":   f.typ,
				"format": h.enc.name(),
			}).WithError(err).Warn("write reply failed")
		}
	}
}

// respond handles one raw request and encodes the reply. A reply that cannot
// be encoded is answered with an error reply; ok is false only when even that
// fails.
func (h *Hub) respond(ctx context.Context, data []byte) (f frame, ok bool) {
	var msg model.Msg
	if err := json.Unmarshal(data, &msg); err != nil {
		return h.encodeError(h.malformed(err))
	}
	label, reply, err := h.dispatch(ctx, msg)
	if err == nil {
		if f, err = h.enc.encode(reply); err == nil {
			h.outcome(label, msg.Type, nil)
			return f, true
		}
		err = fmt.Errorf("server: encode %s reply: %w", reply.Type, err)
	}
	return h.encodeError(h.outcome(label, msg.Type, err))
}

func (h *Hub) encodeError(reply model.Reply) (frame, bool) {
	f, err := h.enc.encode(reply)
	if err != nil {
		log.WithFields(log.Fields{
			"format": h.enc.name(),
		}).WithError(err).Error("encode error reply failed")
		return frame{}, false
	}
	return f, true
}

func (h *Hub) malformed(err error) model.Reply {
	h.metrics.Requests.WithLabelValues("unknown", "error").Inc()
	return errorReply("", fmt.Errorf("server: malformed request: %w", err))
}

// handle answers msg without encoding the reply.
func (h *Hub) handle(ctx context.Context, msg model.Msg) model.Reply {
	label, reply, err := h.dispatch(ctx, msg)
	if err != nil {
		return h.outcome(label, msg.Type, err)
	}
	h.outcome(label, msg.Type, nil)
	return reply
}

func (h *Hub) dispatch(ctx context.Context, msg model.Msg) (label string, reply model.Reply, err error) {
	label = msg.Type
	switch msg.Type {
	case TypeParams:
		reply, err = h.setParams(msg.Content)
	case TypeRun:
		reply, err = h.run(ctx, msg.Content)
	case TypeSweep:
		reply, err = h.sweep(ctx, msg.Content)
	case TypeSample:
		reply, err = h.addSamples(msg.Content)
	case TypeReset:
		reply = h.reset()
	default:
		label = "unknown"
		err = fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
	return label, reply, err
}

// outcome counts a handled request and returns the error reply for err.
func (h *Hub) outcome(label, request string, err error) model.Reply {
	if err == nil {
		h.metrics.Requests.WithLabelValues(label, "ok").Inc()
		return model.Reply{}
	}
	h.metrics.Requests.WithLabelValues(label, "error").Inc()
	log.WithFields(log.Fields{
		"type": request,
	}).WithError(err).Info("request failed")
	return errorReply(request, err)
}

func errorReply(request string, err error) model.Reply {
	return model.Reply{
		Type:    TypeError,
		Content: ErrorContent{Request: request, Error: err.Error()},
	}
}

func decode(content json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil
	}
	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("server: bad content: %w", err)
	}
	return nil
}

// setParams updates the fields present in content and keeps the others.
func (h *Hub) setParams(content json.RawMessage) (model.Reply, error) {
	p := h.c.Params()
	if err := decode(content, &p); err != nil {
		return model.Reply{}, err
	}
	h.c = h.c.WithParams(p)
	log.WithFields(log.Fields{
		"meltFactor": p.MeltFactor,
		"tThreshold": p.TThreshold,
		"lapseRate":  p.LapseRate,
	}).Info("parameters set")
	return model.Reply{
		Type:    TypeParamsSet,
		Content: ParamsContent{Params: p, Warnings: p.Validate()},
	}, nil
}

type runInput struct {
	c       *calculator.Calculator
	domain  calculator.Domain
	dt      float64
	forcing model.Forcing
	offsets []float64
}

// resolve fills what the request leaves out from the hub state.
func (h *Hub) resolve(content json.RawMessage) (runInput, error) {
	var req model.RunRequest
	if err := decode(content, &req); err != nil {
		return runInput{}, err
	}
	in := runInput{
		c:       h.c,
		domain:  h.domain,
		dt:      h.dt,
		offsets: req.Offsets,
	}
	if req.Params != nil {
		in.c = h.c.WithParams(*req.Params)
	}
	if req.Dt > 0 {
		in.dt = req.Dt
	}
	if req.Elevations != nil {
		in.domain = calculator.Domain{Elevations: req.Elevations}
	}
	if req.Weights != nil {
		in.domain.Weights = req.Weights
	}
	switch {
	case req.Forcing != nil:
		in.forcing = *req.Forcing
	case req.Last > 0:
		in.forcing = h.window.Last(req.Last)
	default:
		in.forcing = h.window.Forcing()
	}
	if err := calculator.ValidateForcing(in.forcing); err != nil {
		return runInput{}, err
	}
	return in, nil
}

func (h *Hub) run(ctx context.Context, content json.RawMessage) (model.Reply, error) {
	in, err := h.resolve(content)
	if err != nil {
		return model.Reply{}, err
	}
	env := report.NewEnvelope(h.opts.Site, in.c.Params(), in.dt, in.forcing.Len(), in.domain.Len())
	start := time.Now()
	res, err := in.c.Run(ctx, in.domain, in.dt, in.forcing)
	h.metrics.RunDuration.WithLabelValues(TypeRun).Observe(time.Since(start).Seconds())
	if err != nil {
		return model.Reply{}, err
	}
	env.GlacierBalance = res.GlacierBalance
	env.Finish()
	return model.Reply{
		Type:    TypeResult,
		Content: ResultContent{Run: env, Field: res.Field},
	}, nil
}

func (h *Hub) sweep(ctx context.Context, content json.RawMessage) (model.Reply, error) {
	in, err := h.resolve(content)
	if err != nil {
		return model.Reply{}, err
	}
	if in.offsets == nil {
		in.offsets = calculator.DefaultOffsets()
	}
	env := report.NewEnvelope(h.opts.Site, in.c.Params(), in.dt, in.forcing.Len(), in.domain.Len())
	start := time.Now()
	curve, err := in.c.Sweep(ctx, in.domain, in.dt, in.forcing, in.offsets)
	h.metrics.RunDuration.WithLabelValues(TypeSweep).Observe(time.Since(start).Seconds())
	if err != nil {
		return model.Reply{}, err
	}
	for _, pt := range curve {
		if pt.Offset == 0 {
			env.GlacierBalance = pt.Balance
		}
	}
	env.Curve = curve
	env.Finish()
	return model.Reply{Type: TypeCurve, Content: env}, nil
}

// addSamples accepts a single sample object or an array of samples.
func (h *Hub) addSamples(content json.RawMessage) (model.Reply, error) {
	var samples []model.Sample
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := decode(trimmed, &samples); err != nil {
			return model.Reply{}, err
		}
	} else {
		var s model.Sample
		if len(trimmed) == 0 {
			return model.Reply{}, errors.New("server: sample request without content")
		}
		if err := decode(trimmed, &s); err != nil {
			return model.Reply{}, err
		}
		samples = append(samples, s)
	}

	evicted := 0
	for _, s := range samples {
		if _, ok := h.window.Push(s); ok {
			evicted++
		}
	}
	h.metrics.SamplesReceived.Add(float64(len(samples)))
	h.metrics.SamplesEvicted.Add(float64(evicted))
	return h.windowReply(evicted), nil
}

// reset empties the window and restores the configured parameters.
func (h *Hub) reset() model.Reply {
	h.window.Clear()
	h.c = h.c.WithParams(h.opts.Params)
	log.WithFields(log.Fields{
		"capacity": h.window.Capacity(),
	}).Info("hub reset")
	return h.windowReply(0)
}

func (h *Hub) windowReply(evicted int) model.Reply {
	return model.Reply{
		Type: TypeWindow,
		Content: WindowContent{
			Size:     h.window.Size(),
			Capacity: h.window.Capacity(),
			Evicted:  evicted,
		},
	}
}
